// Package notebook models an nbformat v4 notebook as a persistent value.
//
// A Notebook is never changed in place: every edit returns a new Notebook
// with its own cell slice, and cells handed in or out are deep-copied, so two
// Notebook values never alias each other's cells or metadata.
package notebook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"nbterm/internal/jsonutil"
)

const (
	// FormatMajor and FormatMinor are the nbformat version written on save.
	FormatMajor = 4
	FormatMinor = 5
)

var (
	// ErrUnsupportedFormat is returned for notebooks older than nbformat 4.
	ErrUnsupportedFormat = errors.New("unsupported nbformat")
	// ErrCellNotFound is returned when an operation names an unknown cell.
	ErrCellNotFound = errors.New("cell not found")
)

// Notebook is an ordered sequence of cells plus notebook-level metadata.
// The zero value is an empty notebook.
type Notebook struct {
	cells    []Cell
	metadata Metadata
	major    int
	minor    int
}

// Empty returns a notebook with no cells and empty metadata.
func Empty() Notebook {
	return Notebook{metadata: Metadata{}, major: FormatMajor, minor: FormatMinor}
}

// New builds a notebook from cells and metadata, copying both.
func New(cells []Cell, meta Metadata) Notebook {
	nb := Empty()
	nb.cells = make([]Cell, len(cells))
	for i, c := range cells {
		nb.cells[i] = c.Clone()
	}
	if meta != nil {
		nb.metadata = Metadata(cloneMap(meta))
	}
	return nb
}

// Len returns the number of cells.
func (nb Notebook) Len() int { return len(nb.cells) }

// Cells returns copies of all cells in order.
func (nb Notebook) Cells() []Cell {
	out := make([]Cell, len(nb.cells))
	for i, c := range nb.cells {
		out[i] = c.Clone()
	}
	return out
}

// CellIDs returns the cell ids in order.
func (nb Notebook) CellIDs() []CellID {
	out := make([]CellID, len(nb.cells))
	for i, c := range nb.cells {
		out[i] = c.ID
	}
	return out
}

// CellAt returns a copy of the cell at index i.
func (nb Notebook) CellAt(i int) (Cell, bool) {
	if i < 0 || i >= len(nb.cells) {
		return Cell{}, false
	}
	return nb.cells[i].Clone(), true
}

// CellByID returns a copy of the cell with the given id.
func (nb Notebook) CellByID(id CellID) (Cell, bool) {
	return nb.CellAt(nb.IndexOf(id))
}

// Has reports whether a cell with id exists.
func (nb Notebook) Has(id CellID) bool { return nb.IndexOf(id) >= 0 }

// IndexOf returns the position of id, or -1.
func (nb Notebook) IndexOf(id CellID) int {
	for i, c := range nb.cells {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Metadata returns a copy of the notebook metadata.
func (nb Notebook) Metadata() Metadata {
	if nb.metadata == nil {
		return Metadata{}
	}
	return Metadata(cloneMap(nb.metadata))
}

// Version returns the nbformat major and minor version.
func (nb Notebook) Version() (int, int) {
	if nb.major == 0 {
		return FormatMajor, FormatMinor
	}
	return nb.major, nb.minor
}

// KernelDisplayName returns metadata.kernelspec.display_name, falling back to
// the kernel name.
func (nb Notebook) KernelDisplayName() string {
	ks, _ := nb.metadata["kernelspec"].(map[string]interface{})
	return jsonutil.GetStringOr(ks, "display_name", jsonutil.GetString(ks, "name"))
}

// Language returns the notebook language from language_info or kernelspec.
func (nb Notebook) Language() string {
	if l := jsonutil.GetPath(nb.metadata, "language_info", "name"); l != "" {
		return l
	}
	return jsonutil.GetPath(nb.metadata, "kernelspec", "language")
}

// InsertAt returns a notebook with c inserted at index i. Out of range
// indexes are clamped to the ends.
func (nb Notebook) InsertAt(i int, c Cell) Notebook {
	if i < 0 {
		i = 0
	}
	if i > len(nb.cells) {
		i = len(nb.cells)
	}
	cells := make([]Cell, 0, len(nb.cells)+1)
	cells = append(cells, nb.cells[:i]...)
	cells = append(cells, c.Clone())
	cells = append(cells, nb.cells[i:]...)
	nb.cells = cells
	return nb
}

// InsertAfter inserts c right after the cell with id.
func (nb Notebook) InsertAfter(id CellID, c Cell) (Notebook, error) {
	i := nb.IndexOf(id)
	if i < 0 {
		return nb, fmt.Errorf("insert after %s: %w", id, ErrCellNotFound)
	}
	return nb.InsertAt(i+1, c), nil
}

// Remove returns a notebook without the cell with id.
func (nb Notebook) Remove(id CellID) (Notebook, error) {
	i := nb.IndexOf(id)
	if i < 0 {
		return nb, fmt.Errorf("remove %s: %w", id, ErrCellNotFound)
	}
	cells := make([]Cell, 0, len(nb.cells)-1)
	cells = append(cells, nb.cells[:i]...)
	cells = append(cells, nb.cells[i+1:]...)
	nb.cells = cells
	return nb, nil
}

// Update replaces the cell with id by fn(copy of cell). The cell id is kept
// even if fn changes it.
func (nb Notebook) Update(id CellID, fn func(Cell) Cell) (Notebook, error) {
	i := nb.IndexOf(id)
	if i < 0 {
		return nb, fmt.Errorf("update %s: %w", id, ErrCellNotFound)
	}
	updated := fn(nb.cells[i].Clone()).Clone()
	updated.ID = id
	cells := make([]Cell, len(nb.cells))
	copy(cells, nb.cells)
	cells[i] = updated
	nb.cells = cells
	return nb, nil
}

// WithMetadata returns a notebook with metadata[key] = value. A nil value
// deletes the key.
func (nb Notebook) WithMetadata(key string, value interface{}) Notebook {
	meta := nb.Metadata()
	if value == nil {
		delete(meta, key)
	} else {
		meta[key] = cloneValue(value)
	}
	nb.metadata = meta
	return nb
}

// Clone returns a deep copy.
func (nb Notebook) Clone() Notebook {
	major, minor := nb.Version()
	out := New(nb.cells, nb.metadata)
	out.major, out.minor = major, minor
	return out
}

// Equal reports whether nb and other serialize to the same document.
func (nb Notebook) Equal(other Notebook) bool {
	a, errA := json.Marshal(nb)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

type notebookWire struct {
	Cells         []Cell   `json:"cells"`
	Metadata      Metadata `json:"metadata"`
	NBFormat      int      `json:"nbformat"`
	NBFormatMinor int      `json:"nbformat_minor"`
}

// MarshalJSON writes the nbformat v4 top level object.
func (nb Notebook) MarshalJSON() ([]byte, error) {
	major, minor := nb.Version()
	cells := nb.cells
	if cells == nil {
		cells = []Cell{}
	}
	return json.Marshal(notebookWire{
		Cells:         cells,
		Metadata:      nb.Metadata(),
		NBFormat:      major,
		NBFormatMinor: minor,
	})
}

// Parse decodes an nbformat v4 document. Cells without an id, or with an id
// already used earlier in the notebook, are given a fresh one. Cell ids need
// nbformat 4.5, so older v4 minors are raised to it.
func Parse(data []byte) (Notebook, error) {
	var w notebookWire
	if err := jsonutil.UnmarshalWithContext(data, &w, "notebook: parse"); err != nil {
		return Notebook{}, err
	}
	if w.NBFormat < FormatMajor {
		return Notebook{}, fmt.Errorf("notebook: nbformat %d: %w", w.NBFormat, ErrUnsupportedFormat)
	}
	seen := make(map[CellID]bool, len(w.Cells))
	for i := range w.Cells {
		if w.Cells[i].ID == "" || seen[w.Cells[i].ID] {
			w.Cells[i].ID = NewCellID()
		}
		seen[w.Cells[i].ID] = true
	}
	meta := w.Metadata
	if meta == nil {
		meta = Metadata{}
	}
	minor := w.NBFormatMinor
	if w.NBFormat == FormatMajor && minor < FormatMinor {
		minor = FormatMinor
	}
	return Notebook{cells: w.Cells, metadata: meta, major: w.NBFormat, minor: minor}, nil
}

// Marshal encodes nb the way Jupyter writes notebooks: one space indent and a
// trailing newline.
func Marshal(nb Notebook) ([]byte, error) {
	data, err := json.MarshalIndent(nb, "", " ")
	if err != nil {
		return nil, fmt.Errorf("notebook: marshal: %w", err)
	}
	return append(data, '\n'), nil
}
