package ui

import (
	"time"

	"nbterm/internal/contents"
	"nbterm/internal/document"
	"nbterm/internal/notebook"
)

// EntriesLoadedMsg carries a directory listing read from the contents store.
type EntriesLoadedMsg struct {
	Dir     string
	Entries []contents.Entry
	Err     error
}

// OpenEntryMsg is sent when the user picks a listing row (Enter).
type OpenEntryMsg struct {
	Entry contents.Entry
}

// NotebookLoadedMsg is the result of opening or reloading a notebook. The
// record carries the error too when loading failed.
type NotebookLoadedMsg struct {
	Record document.FileRecord
	Err    error
}

// SavedMsg is the result of writing a notebook. Written is the exact
// content that went to disk, which becomes the saved snapshot.
type SavedMsg struct {
	Path    string
	Written notebook.Notebook
	At      time.Time
	Err     error
}

// FileChangedMsg reports a write to the open notebook's file by anyone,
// including nbterm itself.
type FileChangedMsg struct {
	Path    string
	ModTime time.Time
}

// watchStoppedMsg ends a file watch.
type watchStoppedMsg struct {
	Path string
	Err  error
}

// SaveMsg saves the open notebook (SPC s).
type SaveMsg struct{}

// ReloadMsg re-reads the open notebook from disk (SPC r).
type ReloadMsg struct{}

// RestartKernelMsg resets the kernel session state of the open notebook (SPC k).
type RestartKernelMsg struct{}

// SetCellTypeMsg changes the focused cell's type (SPC t c/m/r).
type SetCellTypeMsg struct {
	Type notebook.CellType
}

// ClearOutputsMsg clears the focused code cell's outputs (SPC o).
type ClearOutputsMsg struct{}

// CloseNotebookMsg returns to the listing (Esc in the notebook).
type CloseNotebookMsg struct{}

// QuitMsg exits, asking first when there are unsaved changes.
type QuitMsg struct{}

// DismissModalMsg is sent when user cancels a modal (Esc).
type DismissModalMsg struct{}

// Sent by confirmation modals once the user accepts losing changes.
type (
	confirmedReloadMsg struct{}
	confirmedCloseMsg  struct{}
	confirmedQuitMsg   struct{}
)
