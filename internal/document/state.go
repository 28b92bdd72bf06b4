// Package document holds the in-memory editing state of an open notebook.
//
// DocumentState and FileRecord are immutable values. Every change goes
// through a With… method (or an edit action built on them) that returns a
// new value, so a record handed to another part of the UI can never be
// changed behind its back.
//
// Neither type locks. Edits must be serialized by the owner, which in
// nbterm is the Bubble Tea update loop.
package document

import "nbterm/internal/notebook"

// KernelRef identifies the kernel session bound to a notebook.
type KernelRef string

// DocumentState is the editing state of one open notebook.
type DocumentState struct {
	content       notebook.Notebook
	saved         notebook.Notebook
	transient     Transient
	pagers        CellPagers
	editorFocused notebook.CellID
	cellFocused   notebook.CellID
	copied        *notebook.Cell
	kernel        KernelRef
}

// NewDocumentState returns a clean state whose live and saved content are
// independent copies of nb.
func NewDocumentState(nb notebook.Notebook) DocumentState {
	return DocumentState{
		content: nb.Clone(),
		saved:   nb.Clone(),
	}
}

// Notebook returns the live, possibly edited, content.
func (s DocumentState) Notebook() notebook.Notebook { return s.content }

// SavedNotebook returns the content as last persisted.
func (s DocumentState) SavedNotebook() notebook.Notebook { return s.saved }

// Dirty reports whether the live content differs from the saved content.
func (s DocumentState) Dirty() bool { return !s.content.Equal(s.saved) }

// Transient returns the per-session display bookkeeping.
func (s DocumentState) Transient() Transient { return s.transient }

// CellPagers returns the pagers of the last executions.
func (s DocumentState) CellPagers() CellPagers { return s.pagers }

// EditorFocus returns the cell whose editor has focus.
func (s DocumentState) EditorFocus() (notebook.CellID, bool) {
	return s.editorFocused, s.editorFocused != ""
}

// CellFocus returns the selected cell.
func (s DocumentState) CellFocus() (notebook.CellID, bool) {
	return s.cellFocused, s.cellFocused != ""
}

// Copied returns a copy of the cell held for pasting.
func (s DocumentState) Copied() (notebook.Cell, bool) {
	if s.copied == nil {
		return notebook.Cell{}, false
	}
	return s.copied.Clone(), true
}

// Kernel returns the bound kernel session.
func (s DocumentState) Kernel() (KernelRef, bool) { return s.kernel, s.kernel != "" }

// WithNotebook replaces the live content.
func (s DocumentState) WithNotebook(nb notebook.Notebook) DocumentState {
	s.content = nb
	return s
}

// WithSavedNotebook replaces the saved snapshot.
func (s DocumentState) WithSavedNotebook(nb notebook.Notebook) DocumentState {
	s.saved = nb
	return s
}

// WithTransient replaces the transient bookkeeping.
func (s DocumentState) WithTransient(t Transient) DocumentState {
	s.transient = t
	return s
}

// WithCellPagers replaces the pagers.
func (s DocumentState) WithCellPagers(p CellPagers) DocumentState {
	s.pagers = p
	return s
}

// WithEditorFocus focuses the editor of id. An empty id clears it.
func (s DocumentState) WithEditorFocus(id notebook.CellID) DocumentState {
	s.editorFocused = id
	return s
}

// WithCellFocus selects id. An empty id clears it.
func (s DocumentState) WithCellFocus(id notebook.CellID) DocumentState {
	s.cellFocused = id
	return s
}

// WithCopied holds a detached copy of c for pasting.
func (s DocumentState) WithCopied(c notebook.Cell) DocumentState {
	cp := c.Clone()
	s.copied = &cp
	return s
}

// WithoutCopied drops the held cell.
func (s DocumentState) WithoutCopied() DocumentState {
	s.copied = nil
	return s
}

// WithKernel binds a kernel session. An empty ref detaches it.
func (s DocumentState) WithKernel(ref KernelRef) DocumentState {
	s.kernel = ref
	return s
}
