package notebook

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"nbterm/internal/jsonutil"
)

// CellType is the nbformat cell_type.
type CellType string

const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
	CellRaw      CellType = "raw"
)

// CellID identifies a cell within a notebook.
type CellID string

// NewCellID returns a fresh 8 character hex id, the length Jupyter uses.
func NewCellID() CellID {
	return CellID(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Metadata is a free-form JSON object attached to notebooks, cells and outputs.
type Metadata map[string]interface{}

// MimeBundle maps a mime type to its payload.
type MimeBundle map[string]interface{}

// Clone returns a deep copy of m.
func (m MimeBundle) Clone() MimeBundle { return MimeBundle(cloneMap(m)) }

// Cell is one notebook cell. Only code cells carry ExecutionCount and Outputs.
type Cell struct {
	ID             CellID
	Type           CellType
	Source         string
	Metadata       Metadata
	ExecutionCount *int
	Outputs        []Output
	Attachments    map[string]MimeBundle
}

// NewCell returns an empty cell of the given type with a fresh id.
func NewCell(t CellType) Cell {
	return Cell{
		ID:       NewCellID(),
		Type:     t,
		Metadata: Metadata{},
	}
}

// IsCode reports whether the cell is executable.
func (c Cell) IsCode() bool { return c.Type == CellCode }

// Clone returns a deep copy sharing no maps or slices with c.
func (c Cell) Clone() Cell {
	out := c
	out.Metadata = Metadata(cloneMap(c.Metadata))
	if c.ExecutionCount != nil {
		n := *c.ExecutionCount
		out.ExecutionCount = &n
	}
	if c.Outputs != nil {
		out.Outputs = make([]Output, len(c.Outputs))
		for i, o := range c.Outputs {
			out.Outputs[i] = o.Clone()
		}
	}
	if c.Attachments != nil {
		out.Attachments = make(map[string]MimeBundle, len(c.Attachments))
		for k, v := range c.Attachments {
			out.Attachments[k] = MimeBundle(cloneMap(v))
		}
	}
	return out
}

// WithType converts the cell to t. Leaving code drops outputs and the
// execution count; entering code drops attachments.
func (c Cell) WithType(t CellType) Cell {
	out := c.Clone()
	out.Type = t
	if t == CellCode {
		out.Attachments = nil
		if out.Outputs == nil {
			out.Outputs = []Output{}
		}
		return out
	}
	out.ExecutionCount = nil
	out.Outputs = nil
	return out
}

type cellWire struct {
	CellType       CellType                 `json:"cell_type"`
	ID             CellID                   `json:"id,omitempty"`
	Metadata       Metadata                 `json:"metadata"`
	Source         jsonutil.MultilineString `json:"source"`
	Attachments    map[string]MimeBundle    `json:"attachments,omitempty"`
	ExecutionCount *int                     `json:"execution_count,omitempty"`
	Outputs        []Output                 `json:"outputs,omitempty"`
}

type codeCellWire struct {
	CellType       CellType                 `json:"cell_type"`
	ID             CellID                   `json:"id,omitempty"`
	Metadata       Metadata                 `json:"metadata"`
	Source         jsonutil.MultilineString `json:"source"`
	ExecutionCount *int                     `json:"execution_count"`
	Outputs        []Output                 `json:"outputs"`
}

// MarshalJSON writes the nbformat v4 cell shape for the cell's type.
func (c Cell) MarshalJSON() ([]byte, error) {
	meta := c.Metadata
	if meta == nil {
		meta = Metadata{}
	}
	if c.IsCode() {
		outputs := c.Outputs
		if outputs == nil {
			outputs = []Output{}
		}
		return json.Marshal(codeCellWire{
			CellType:       c.Type,
			ID:             c.ID,
			Metadata:       meta,
			Source:         jsonutil.MultilineString(c.Source),
			ExecutionCount: c.ExecutionCount,
			Outputs:        outputs,
		})
	}
	return json.Marshal(cellWire{
		CellType:    c.Type,
		ID:          c.ID,
		Metadata:    meta,
		Source:      jsonutil.MultilineString(c.Source),
		Attachments: c.Attachments,
	})
}

// UnmarshalJSON reads any v4 cell.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var w cellWire
	if err := jsonutil.UnmarshalWithContext(data, &w, "cell"); err != nil {
		return err
	}
	*c = Cell{
		ID:             w.ID,
		Type:           w.CellType,
		Source:         string(w.Source),
		Metadata:       w.Metadata,
		ExecutionCount: w.ExecutionCount,
		Outputs:        w.Outputs,
		Attachments:    w.Attachments,
	}
	if c.Metadata == nil {
		c.Metadata = Metadata{}
	}
	if c.IsCode() && c.Outputs == nil {
		c.Outputs = []Output{}
	}
	return nil
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case Metadata:
		return Metadata(cloneMap(val))
	case MimeBundle:
		return MimeBundle(cloneMap(val))
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}
