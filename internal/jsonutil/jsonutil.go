// Package jsonutil provides shared helpers for the loosely typed parts of
// notebook JSON: error context, metadata lookups, and multiline strings.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnmarshalWithContext unmarshals JSON data into v and wraps any error
// with the provided context message.
func UnmarshalWithContext(data []byte, v interface{}, context string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}
	return nil
}

// GetString safely extracts a string value from a map[string]interface{}.
// Returns the value if it's a string, otherwise returns empty string.
func GetString(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

// GetStringOr is GetString with a fallback for missing or non-string values.
func GetStringOr(m map[string]interface{}, key string, defaultValue string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return defaultValue
}

// GetPath walks nested objects along keys and returns the string at the end,
// e.g. GetPath(meta, "kernelspec", "display_name").
func GetPath(m map[string]interface{}, keys ...string) string {
	cur := m
	for i, k := range keys {
		if i == len(keys)-1 {
			return GetString(cur, k)
		}
		next, ok := cur[k].(map[string]interface{})
		if !ok {
			return ""
		}
		cur = next
	}
	return ""
}

// MultilineString is the nbformat "multiline string": on disk either a single
// JSON string or a list of strings that are concatenated.
type MultilineString string

// UnmarshalJSON accepts both encodings.
func (s *MultilineString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = MultilineString(str)
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("multiline string: %w", err)
	}
	*s = MultilineString(strings.Join(parts, ""))
	return nil
}

// MarshalJSON writes the list form, one element per line with the newline kept,
// matching what Jupyter writes.
func (s MultilineString) MarshalJSON() ([]byte, error) {
	return json.Marshal(SplitLines(string(s)))
}

// SplitLines splits s after each newline. The empty string yields an empty list.
func SplitLines(s string) []string {
	lines := []string{}
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

// ToString converts an interface{} value to a string representation.
// Handles string, float64 (formatted as integer), bool, and other types.
func ToString(v interface{}) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []interface{}:
		// multiline string inside a mime bundle
		var b strings.Builder
		for _, p := range val {
			b.WriteString(ToString(p))
		}
		return b.String()
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
