package ui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"nbterm/internal/contents"
	"nbterm/internal/document"
)

// loadDir starts reading dir into the listing.
func (a *AppModel) loadDir(dir string) tea.Cmd {
	return tea.Batch(a.Listing.SetLoading(true), listDirCmd(a.ctx, a.Store, dir))
}

// handleEntriesLoaded fills the listing, or shows why it could not.
func (a *appModelAdapter) handleEntriesLoaded(msg EntriesLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		a.Logger.Warn().Err(msg.Err).Str("dir", msg.Dir).Msg("list failed")
		a.Listing.SetLoading(false)
		a.Listing.Err = msg.Err
		return a, nil
	}
	a.Listing.SetEntries(msg.Dir, msg.Entries)
	return a, nil
}

// handleOpenEntry enters directories and opens notebooks.
func (a *appModelAdapter) handleOpenEntry(msg OpenEntryMsg) (tea.Model, tea.Cmd) {
	switch msg.Entry.Type {
	case contents.FileDirectory, contents.FileDummy:
		return a, a.loadDir(msg.Entry.Path)
	case contents.FileNotebook:
		return a, a.openNotebook(msg.Entry.Path)
	default:
		a.Listing.Notice = fmt.Sprintf("%s is not a notebook", msg.Entry.Name)
		return a, nil
	}
}

// openNotebook switches to an empty, loading notebook view right away so the
// spinner shows while the file is read.
func (a *AppModel) openNotebook(path string) tea.Cmd {
	a.stopWatching()
	rec := document.NewFileRecord(path).BeginLoad()
	a.Notebook = NewNotebookView(rec, a.Theme)
	a.sized(a.Notebook)
	a.Mode = ModeNotebook
	return tea.Batch(a.Notebook.SpinnerTick(), openNotebookCmd(a.ctx, a.Store, path))
}

// handleNotebookLoaded installs the result of an open or reload. Results for
// a notebook that is no longer shown are dropped.
func (a *appModelAdapter) handleNotebookLoaded(msg NotebookLoadedMsg) (tea.Model, tea.Cmd) {
	if a.Notebook == nil || msg.Record.Path() != a.Notebook.Path() {
		return a, nil
	}
	a.Notebook.SetRecord(msg.Record)
	if msg.Err != nil {
		a.Logger.Warn().Err(msg.Err).Str("path", msg.Record.Path()).Msg("load failed")
		return a, nil
	}
	return a, a.startWatching(msg.Record.Path())
}

// handleSave snapshots the live content and writes it in the background.
func (a *appModelAdapter) handleSave() (tea.Model, tea.Cmd) {
	nv := a.Notebook
	if a.Mode != ModeNotebook || nv == nil {
		return a, nil
	}
	rec := nv.Record
	if nv.Busy() {
		nv.Notice = "busy, try again"
		return a, nil
	}
	if err := rec.Validate(); err != nil {
		nv.Record = rec.SaveFailed(err)
		return a, nil
	}
	if !rec.Writable() {
		nv.Record = rec.SaveFailed(fmt.Errorf("%s: %w", rec.Path(), document.ErrNotWritable))
		return a, nil
	}
	nv.Record = rec.BeginSave()
	written := nv.Record.Document().Notebook()
	return a, tea.Batch(nv.SpinnerTick(), saveNotebookCmd(a.ctx, a.Store, rec.Path(), written))
}

// handleSaved completes a save started by handleSave.
func (a *appModelAdapter) handleSaved(msg SavedMsg) (tea.Model, tea.Cmd) {
	nv := a.Notebook
	if nv == nil || nv.Path() != msg.Path {
		return a, nil
	}
	if msg.Err != nil {
		a.Logger.Error().Err(msg.Err).Str("path", msg.Path).Msg("save failed")
		nv.Record = nv.Record.SaveFailed(msg.Err)
		if errors.Is(msg.Err, document.ErrNotWritable) {
			nv.Record = nv.Record.WithWritable(false)
		}
		return a, nil
	}
	nv.Record = nv.Record.SaveSucceeded(msg.Written, msg.At)
	nv.Notice = "saved"
	return a, nil
}

// handleReload refreshes the listing, or re-reads the notebook after
// confirming that unsaved edits may go.
func (a *appModelAdapter) handleReload() (tea.Model, tea.Cmd) {
	if a.Mode == ModeListing {
		return a, a.loadDir(a.Listing.Dir)
	}
	nv := a.Notebook
	if nv == nil {
		return a, nil
	}
	if nv.Record.Dirty() {
		a.Overlays.Push(Overlay{
			View:    NewDiscardChangesModal("Reload", nv.Path(), func() tea.Msg { return confirmedReloadMsg{} }),
			Dismiss: "esc",
		})
		return a, nil
	}
	return a, a.startReload()
}

func (a *AppModel) startReload() tea.Cmd {
	nv := a.Notebook
	if nv == nil || nv.Busy() {
		return nil
	}
	nv.Record = nv.Record.BeginLoad()
	return tea.Batch(nv.SpinnerTick(), reloadNotebookCmd(a.ctx, a.Store, nv.Record))
}

// handleFileChanged reloads a clean notebook that changed on disk. Our own
// saves are recognised by their modification time.
func (a *appModelAdapter) handleFileChanged(msg FileChangedMsg) (tea.Model, tea.Cmd) {
	nv := a.Notebook
	if nv == nil || nv.Path() != msg.Path || nv.Busy() {
		return a, nil
	}
	if last, ok := nv.Record.LastSaved(); ok && !msg.ModTime.After(last) {
		return a, nil
	}
	if nv.Record.Dirty() || nv.Editing() {
		nv.Notice = "file changed on disk, SPC r to reload"
		return a, nil
	}
	a.Logger.Info().Str("path", msg.Path).Msg("reloading after external change")
	return a, a.startReload()
}

// handleClose goes back to the listing, asking first if edits would be lost.
func (a *appModelAdapter) handleClose() (tea.Model, tea.Cmd) {
	if a.Notebook != nil && a.Notebook.Record.Dirty() {
		a.Overlays.Push(Overlay{
			View:    NewDiscardChangesModal("Close", a.Notebook.Path(), func() tea.Msg { return confirmedCloseMsg{} }),
			Dismiss: "esc",
		})
		return a, nil
	}
	return a, a.closeNotebook()
}

func (a *AppModel) closeNotebook() tea.Cmd {
	a.stopWatching()
	a.Overlays.Clear()
	a.Notebook = nil
	a.Mode = ModeListing
	return a.loadDir(a.Listing.Dir)
}

// handleQuit exits, asking first if edits would be lost.
func (a *appModelAdapter) handleQuit() (tea.Model, tea.Cmd) {
	if a.Notebook != nil && a.Notebook.Record.Dirty() {
		a.Overlays.Push(Overlay{
			View:    NewDiscardChangesModal("Quit", a.Notebook.Path(), func() tea.Msg { return confirmedQuitMsg{} }),
			Dismiss: "esc",
		})
		return a, nil
	}
	a.stopWatching()
	return a, tea.Quit
}

// startWatching follows the open notebook's file. Without a sender there is
// no way to deliver changes, so nothing is watched.
func (a *AppModel) startWatching(path string) tea.Cmd {
	if a.send == nil {
		return nil
	}
	a.stopWatching()
	ctx, cancel := context.WithCancel(a.ctx)
	a.stopWatch = cancel
	return watchNotebookCmd(ctx, a.Store, path, a.send)
}

func (a *AppModel) stopWatching() {
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}
}
