package document

import (
	"errors"
	"fmt"

	"nbterm/internal/notebook"
)

// ErrNotCode is returned when an execution action targets a non-code cell.
var ErrNotCode = errors.New("not a code cell")

// ErrNothingCopied is returned by PasteCell when no cell is held.
var ErrNothingCopied = errors.New("no copied cell")

// The edit actions below change only the live notebook content (plus the
// session bookkeeping tied to it); the saved snapshot is left alone. They
// are the only code that removes cells, and so the only code that clears
// focus references and per-cell state of removed cells.

// InsertCell inserts a new cell of type t after the cell `after` (at the top
// when after is empty) and selects it.
func InsertCell(s DocumentState, after notebook.CellID, t notebook.CellType) (DocumentState, notebook.CellID, error) {
	c := notebook.NewCell(t)
	if t == notebook.CellCode {
		c.Outputs = []notebook.Output{}
	}
	nb := s.content
	if after == "" {
		nb = nb.InsertAt(0, c)
	} else {
		var err error
		nb, err = nb.InsertAfter(after, c)
		if err != nil {
			return s, "", err
		}
	}
	return s.WithNotebook(nb).WithCellFocus(c.ID), c.ID, nil
}

// InsertCellBefore inserts a new cell of type t before `before`.
func InsertCellBefore(s DocumentState, before notebook.CellID, t notebook.CellType) (DocumentState, notebook.CellID, error) {
	i := s.content.IndexOf(before)
	if i < 0 {
		return s, "", fmt.Errorf("insert before %s: %w", before, notebook.ErrCellNotFound)
	}
	if i == 0 {
		return InsertCell(s, "", t)
	}
	prev, _ := s.content.CellAt(i - 1)
	return InsertCell(s, prev.ID, t)
}

// DeleteCell removes a cell. Selection moves to the cell that takes its
// place (or the new last cell); editor focus on it is dropped.
func DeleteCell(s DocumentState, id notebook.CellID) (DocumentState, error) {
	i := s.content.IndexOf(id)
	nb, err := s.content.Remove(id)
	if err != nil {
		return s, err
	}
	s = s.WithNotebook(nb).
		WithTransient(s.transient.withoutCell(id)).
		WithCellPagers(s.pagers.Without(id))
	if s.editorFocused == id {
		s = s.WithEditorFocus("")
	}
	if s.cellFocused == id {
		var next notebook.CellID
		if nb.Len() > 0 {
			if i >= nb.Len() {
				i = nb.Len() - 1
			}
			c, _ := nb.CellAt(i)
			next = c.ID
		}
		s = s.WithCellFocus(next)
	}
	return s, nil
}

// UpdateSource replaces the source text of a cell.
func UpdateSource(s DocumentState, id notebook.CellID, source string) (DocumentState, error) {
	return updateCell(s, id, func(c notebook.Cell) notebook.Cell {
		c.Source = source
		return c
	})
}

// ChangeCellType converts a cell. Leaving code also drops its session state.
func ChangeCellType(s DocumentState, id notebook.CellID, t notebook.CellType) (DocumentState, error) {
	s, err := updateCell(s, id, func(c notebook.Cell) notebook.Cell { return c.WithType(t) })
	if err != nil || t == notebook.CellCode {
		return s, err
	}
	return s.WithTransient(s.transient.withoutCell(id)).WithCellPagers(s.pagers.Without(id)), nil
}

// ClearOutputs empties a code cell's outputs and forgets its displays.
func ClearOutputs(s DocumentState, id notebook.CellID) (DocumentState, error) {
	if err := requireCode(s, id); err != nil {
		return s, err
	}
	s, err := updateCell(s, id, func(c notebook.Cell) notebook.Cell {
		c.Outputs = []notebook.Output{}
		return c
	})
	if err != nil {
		return s, err
	}
	status := s.transient.Status(id)
	return s.WithTransient(s.transient.withoutCell(id).WithStatus(id, status)), nil
}

// SetNotebookMetadata sets a notebook-level metadata key. A nil value deletes it.
func SetNotebookMetadata(s DocumentState, key string, value interface{}) DocumentState {
	return s.WithNotebook(s.content.WithMetadata(key, value))
}

// CopyCell holds a detached copy of a cell for pasting.
func CopyCell(s DocumentState, id notebook.CellID) (DocumentState, error) {
	c, ok := s.content.CellByID(id)
	if !ok {
		return s, fmt.Errorf("copy %s: %w", id, notebook.ErrCellNotFound)
	}
	return s.WithCopied(c), nil
}

// CutCell copies a cell and deletes it.
func CutCell(s DocumentState, id notebook.CellID) (DocumentState, error) {
	s, err := CopyCell(s, id)
	if err != nil {
		return s, err
	}
	return DeleteCell(s, id)
}

// PasteCell inserts the held cell after the selected cell (at the end when
// nothing is selected) under a fresh id, and selects it. The held copy stays
// available for further pastes.
func PasteCell(s DocumentState) (DocumentState, notebook.CellID, error) {
	c, ok := s.Copied()
	if !ok {
		return s, "", ErrNothingCopied
	}
	c.ID = notebook.NewCellID()
	nb := s.content
	if sel, ok := s.CellFocus(); ok && nb.Has(sel) {
		nb, _ = nb.InsertAfter(sel, c)
	} else {
		nb = nb.InsertAt(nb.Len(), c)
	}
	return s.WithNotebook(nb).WithCellFocus(c.ID), c.ID, nil
}

// QueueCell marks a code cell as waiting for the kernel.
func QueueCell(s DocumentState, id notebook.CellID) (DocumentState, error) {
	if err := requireCode(s, id); err != nil {
		return s, err
	}
	return s.WithTransient(s.transient.WithStatus(id, StatusQueued)), nil
}

// StartExecution marks a code cell as running and clears its previous
// outputs and pagers.
func StartExecution(s DocumentState, id notebook.CellID) (DocumentState, error) {
	s, err := ClearOutputs(s, id)
	if err != nil {
		return s, err
	}
	return s.WithTransient(s.transient.WithStatus(id, StatusRunning)).
		WithCellPagers(s.pagers.Without(id)), nil
}

// AppendOutput adds an output to a code cell. A non-empty displayID
// registers the output so UpdateDisplay can rewrite it later.
func AppendOutput(s DocumentState, id notebook.CellID, out notebook.Output, displayID string) (DocumentState, error) {
	if err := requireCode(s, id); err != nil {
		return s, err
	}
	c, _ := s.content.CellByID(id)
	idx := len(c.Outputs)
	s, err := updateCell(s, id, func(c notebook.Cell) notebook.Cell {
		c.Outputs = append(c.Outputs, out.Clone())
		return c
	})
	if err != nil {
		return s, err
	}
	if displayID != "" {
		s = s.WithTransient(s.transient.WithKeyPath(displayID, KeyPath{CellID: id, OutputIndex: idx}))
	}
	return s, nil
}

// UpdateDisplay replaces the data of every output registered under displayID.
func UpdateDisplay(s DocumentState, displayID string, data notebook.MimeBundle) DocumentState {
	for _, kp := range s.transient.KeyPathsForDisplay(displayID) {
		next, err := updateCell(s, kp.CellID, func(c notebook.Cell) notebook.Cell {
			if kp.OutputIndex < len(c.Outputs) {
				c.Outputs[kp.OutputIndex].Data = data.Clone()
			}
			return c
		})
		if err == nil {
			s = next
		}
	}
	return s
}

// FinishExecution stores the execution count and pagers of a completed run
// and marks the cell idle. Outputs arrive earlier through AppendOutput.
func FinishExecution(s DocumentState, id notebook.CellID, count int, pagers []Pager) (DocumentState, error) {
	if err := requireCode(s, id); err != nil {
		return s, err
	}
	s, err := updateCell(s, id, func(c notebook.Cell) notebook.Cell {
		c.ExecutionCount = &count
		return c
	})
	if err != nil {
		return s, err
	}
	cp := s.pagers.Without(id)
	for _, p := range pagers {
		cp = cp.With(id, p)
	}
	return s.WithTransient(s.transient.WithStatus(id, StatusIdle)).WithCellPagers(cp), nil
}

// RestartKernel forgets all kernel-session state: displays, execution
// status and pagers. The kernel binding itself is kept.
func RestartKernel(s DocumentState) DocumentState {
	return s.WithTransient(Transient{}).WithCellPagers(CellPagers{})
}

// FocusCell selects an existing cell.
func FocusCell(s DocumentState, id notebook.CellID) (DocumentState, error) {
	if !s.content.Has(id) {
		return s, fmt.Errorf("focus %s: %w", id, notebook.ErrCellNotFound)
	}
	return s.WithCellFocus(id), nil
}

// FocusNext selects the cell below the selection, or the first cell when
// nothing is selected. It stays on the last cell.
func FocusNext(s DocumentState) DocumentState {
	return moveFocus(s, 1)
}

// FocusPrevious selects the cell above the selection.
func FocusPrevious(s DocumentState) DocumentState {
	return moveFocus(s, -1)
}

// FocusEditor selects a cell and gives its editor focus.
func FocusEditor(s DocumentState, id notebook.CellID) (DocumentState, error) {
	s, err := FocusCell(s, id)
	if err != nil {
		return s, err
	}
	return s.WithEditorFocus(id), nil
}

// BlurEditor drops editor focus, keeping the selection.
func BlurEditor(s DocumentState) DocumentState {
	return s.WithEditorFocus("")
}

func moveFocus(s DocumentState, delta int) DocumentState {
	n := s.content.Len()
	if n == 0 {
		return s.WithCellFocus("")
	}
	i := s.content.IndexOf(s.cellFocused)
	switch {
	case i < 0 && delta > 0:
		i = 0
	case i < 0:
		i = n - 1
	default:
		i += delta
	}
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	c, _ := s.content.CellAt(i)
	return s.WithCellFocus(c.ID)
}

func requireCode(s DocumentState, id notebook.CellID) error {
	c, ok := s.content.CellByID(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, notebook.ErrCellNotFound)
	}
	if !c.IsCode() {
		return fmt.Errorf("%s: %w", id, ErrNotCode)
	}
	return nil
}

func updateCell(s DocumentState, id notebook.CellID, fn func(notebook.Cell) notebook.Cell) (DocumentState, error) {
	nb, err := s.content.Update(id, fn)
	if err != nil {
		return s, err
	}
	return s.WithNotebook(nb), nil
}
