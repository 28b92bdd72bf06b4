package document

import "nbterm/internal/notebook"

// ExecStatus is the per-session execution state of a code cell.
type ExecStatus string

const (
	StatusIdle    ExecStatus = "idle"
	StatusQueued  ExecStatus = "queued"
	StatusRunning ExecStatus = "running"
)

// KeyPath locates an output that belongs to a display id, so a later
// update_display_data can rewrite it in place.
type KeyPath struct {
	CellID      notebook.CellID
	OutputIndex int
}

// Transient is per-session display bookkeeping. It is never saved and is
// reset whenever the kernel restarts.
type Transient struct {
	keyPaths map[string][]KeyPath
	status   map[notebook.CellID]ExecStatus
}

// KeyPathsForDisplay returns the outputs registered for displayID.
func (t Transient) KeyPathsForDisplay(displayID string) []KeyPath {
	return append([]KeyPath(nil), t.keyPaths[displayID]...)
}

// DisplayIDs returns how many display ids are tracked.
func (t Transient) DisplayIDs() int { return len(t.keyPaths) }

// WithKeyPath registers kp under displayID. Duplicates are ignored.
func (t Transient) WithKeyPath(displayID string, kp KeyPath) Transient {
	existing := t.keyPaths[displayID]
	for _, p := range existing {
		if p == kp {
			return t
		}
	}
	out := t.copy()
	out.keyPaths[displayID] = append(append([]KeyPath(nil), existing...), kp)
	return out
}

// Status returns the cell's execution status, idle when unknown.
func (t Transient) Status(id notebook.CellID) ExecStatus {
	if s, ok := t.status[id]; ok {
		return s
	}
	return StatusIdle
}

// WithStatus records the execution status of a cell. Idle removes the entry.
func (t Transient) WithStatus(id notebook.CellID, s ExecStatus) Transient {
	out := t.copy()
	if s == StatusIdle {
		delete(out.status, id)
	} else {
		out.status[id] = s
	}
	return out
}

// withoutCell drops everything recorded for id.
func (t Transient) withoutCell(id notebook.CellID) Transient {
	out := t.copy()
	delete(out.status, id)
	for displayID, paths := range out.keyPaths {
		kept := paths[:0:0]
		for _, p := range paths {
			if p.CellID != id {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(out.keyPaths, displayID)
		} else {
			out.keyPaths[displayID] = kept
		}
	}
	return out
}

func (t Transient) copy() Transient {
	out := Transient{
		keyPaths: make(map[string][]KeyPath, len(t.keyPaths)),
		status:   make(map[notebook.CellID]ExecStatus, len(t.status)),
	}
	for k, v := range t.keyPaths {
		out.keyPaths[k] = v
	}
	for k, v := range t.status {
		out.status[k] = v
	}
	return out
}

// Pager is help or paging text returned by a cell's last execution.
type Pager struct {
	Data  notebook.MimeBundle
	Start int
}

// Text returns the plain text of the pager payload.
func (p Pager) Text() string {
	return notebook.Output{OutputType: notebook.OutputDisplayData, Data: p.Data}.PlainText()
}

// CellPagers maps a cell to the pagers from its last execution.
type CellPagers struct {
	m map[notebook.CellID][]Pager
}

// For returns the pagers of a cell.
func (cp CellPagers) For(id notebook.CellID) []Pager {
	return append([]Pager(nil), cp.m[id]...)
}

// Len returns the number of cells with pagers.
func (cp CellPagers) Len() int { return len(cp.m) }

// With appends p to the cell's pagers.
func (cp CellPagers) With(id notebook.CellID, p Pager) CellPagers {
	out := cp.copy()
	p.Data = p.Data.Clone()
	out.m[id] = append(append([]Pager(nil), cp.m[id]...), p)
	return out
}

// Without clears the cell's pagers.
func (cp CellPagers) Without(id notebook.CellID) CellPagers {
	if _, ok := cp.m[id]; !ok {
		return cp
	}
	out := cp.copy()
	delete(out.m, id)
	return out
}

func (cp CellPagers) copy() CellPagers {
	out := CellPagers{m: make(map[notebook.CellID][]Pager, len(cp.m))}
	for k, v := range cp.m {
		out.m[k] = v
	}
	return out
}
