package notebook

import (
	"encoding/json"
	"strings"

	"nbterm/internal/jsonutil"
)

// Output types defined by nbformat v4.
const (
	OutputStream        = "stream"
	OutputDisplayData   = "display_data"
	OutputExecuteResult = "execute_result"
	OutputError         = "error"
)

// Output is one entry of a code cell's outputs.
type Output struct {
	OutputType     string
	Name           string // stream name: stdout or stderr
	Text           string
	Data           MimeBundle
	Metadata       Metadata
	ExecutionCount *int
	Ename          string
	Evalue         string
	Traceback      []string
}

// StreamOutput builds a stream output.
func StreamOutput(name, text string) Output {
	return Output{OutputType: OutputStream, Name: name, Text: text}
}

// Clone returns a deep copy of o.
func (o Output) Clone() Output {
	out := o
	out.Data = MimeBundle(cloneMap(o.Data))
	out.Metadata = Metadata(cloneMap(o.Metadata))
	if o.ExecutionCount != nil {
		n := *o.ExecutionCount
		out.ExecutionCount = &n
	}
	if o.Traceback != nil {
		out.Traceback = append([]string(nil), o.Traceback...)
	}
	return out
}

// PlainText returns the text a terminal can show for the output.
func (o Output) PlainText() string {
	switch o.OutputType {
	case OutputStream:
		return o.Text
	case OutputError:
		if len(o.Traceback) > 0 {
			return strings.Join(o.Traceback, "\n")
		}
		return o.Ename + ": " + o.Evalue
	default:
		if v, ok := o.Data["text/plain"]; ok {
			return jsonutil.ToString(v)
		}
		for mime := range o.Data {
			return "<" + mime + ">"
		}
		return ""
	}
}

type outputWire struct {
	OutputType     string                   `json:"output_type"`
	Name           string                   `json:"name,omitempty"`
	Text           jsonutil.MultilineString `json:"text,omitempty"`
	Data           MimeBundle               `json:"data,omitempty"`
	Metadata       Metadata                 `json:"metadata,omitempty"`
	ExecutionCount *int                     `json:"execution_count,omitempty"`
	Ename          string                   `json:"ename,omitempty"`
	Evalue         string                   `json:"evalue,omitempty"`
	Traceback      []string                 `json:"traceback,omitempty"`
}

// MarshalJSON writes only the keys nbformat defines for the output type.
func (o Output) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"output_type": o.OutputType}
	data := o.Data
	if data == nil {
		data = MimeBundle{}
	}
	meta := o.Metadata
	if meta == nil {
		meta = Metadata{}
	}
	switch o.OutputType {
	case OutputStream:
		m["name"] = o.Name
		m["text"] = jsonutil.MultilineString(o.Text)
	case OutputDisplayData:
		m["data"] = data
		m["metadata"] = meta
	case OutputExecuteResult:
		m["data"] = data
		m["metadata"] = meta
		m["execution_count"] = o.ExecutionCount
	case OutputError:
		tb := o.Traceback
		if tb == nil {
			tb = []string{}
		}
		m["ename"] = o.Ename
		m["evalue"] = o.Evalue
		m["traceback"] = tb
	default:
		return json.Marshal(outputWire{
			OutputType:     o.OutputType,
			Name:           o.Name,
			Text:           jsonutil.MultilineString(o.Text),
			Data:           o.Data,
			Metadata:       o.Metadata,
			ExecutionCount: o.ExecutionCount,
			Ename:          o.Ename,
			Evalue:         o.Evalue,
			Traceback:      o.Traceback,
		})
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads any output type.
func (o *Output) UnmarshalJSON(data []byte) error {
	var w outputWire
	if err := jsonutil.UnmarshalWithContext(data, &w, "output"); err != nil {
		return err
	}
	*o = Output{
		OutputType:     w.OutputType,
		Name:           w.Name,
		Text:           string(w.Text),
		Data:           w.Data,
		Metadata:       w.Metadata,
		ExecutionCount: w.ExecutionCount,
		Ename:          w.Ename,
		Evalue:         w.Evalue,
		Traceback:      w.Traceback,
	}
	return nil
}
