package output

import (
	"encoding/json"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

// Format formats data as YAML using the JSON field names of typed records.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	v, err := plain(data)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(numbers(v)); err != nil {
		return err
	}
	return enc.Close()
}

// numbers replaces json.Number with int64 or float64 so YAML emits bare
// scalars instead of quoted strings.
func numbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(string(t), 64); err == nil {
			return f
		}
		return string(t)
	case map[string]any:
		for k, e := range t {
			t[k] = numbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = numbers(e)
		}
		return t
	default:
		return v
	}
}
