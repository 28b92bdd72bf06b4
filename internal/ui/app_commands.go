package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"nbterm/internal/contents"
	"nbterm/internal/document"
	"nbterm/internal/notebook"
)

// Contents is the slice of the contents store the UI needs.
type Contents interface {
	List(ctx context.Context, dir string) ([]contents.Entry, error)
	Open(ctx context.Context, rel string) (document.FileRecord, error)
	Reload(ctx context.Context, rec document.FileRecord) (document.FileRecord, error)
	WriteNotebook(ctx context.Context, rel string, nb notebook.Notebook) (time.Time, error)
	Watch(ctx context.Context, rel string, cb func(modTime time.Time)) error
}

// listDirCmd reads a directory off the UI goroutine.
func listDirCmd(ctx context.Context, store Contents, dir string) tea.Cmd {
	return func() tea.Msg {
		entries, err := store.List(ctx, dir)
		return EntriesLoadedMsg{Dir: dir, Entries: entries, Err: err}
	}
}

// openNotebookCmd reads and parses a notebook.
func openNotebookCmd(ctx context.Context, store Contents, path string) tea.Cmd {
	return func() tea.Msg {
		rec, err := store.Open(ctx, path)
		return NotebookLoadedMsg{Record: rec, Err: err}
	}
}

// reloadNotebookCmd re-reads rec's file. rec must already be loading.
func reloadNotebookCmd(ctx context.Context, store Contents, rec document.FileRecord) tea.Cmd {
	return func() tea.Msg {
		out, err := store.Reload(ctx, rec)
		return NotebookLoadedMsg{Record: out, Err: err}
	}
}

// saveNotebookCmd writes the snapshot taken when the save started. Edits
// made while it runs are not part of it and stay unsaved.
func saveNotebookCmd(ctx context.Context, store Contents, path string, written notebook.Notebook) tea.Cmd {
	return func() tea.Msg {
		at, err := store.WriteNotebook(ctx, path, written)
		return SavedMsg{Path: path, Written: written, At: at, Err: err}
	}
}

// watchNotebookCmd blocks until ctx ends, forwarding file changes through
// send. Change reports cannot be returned as a single tea.Msg, hence send.
func watchNotebookCmd(ctx context.Context, store Contents, path string, send func(tea.Msg)) tea.Cmd {
	return func() tea.Msg {
		err := store.Watch(ctx, path, func(modTime time.Time) {
			send(FileChangedMsg{Path: path, ModTime: modTime})
		})
		return watchStoppedMsg{Path: path, Err: err}
	}
}
