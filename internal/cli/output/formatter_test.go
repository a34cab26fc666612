package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("json: want *JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("yaml: want *YAMLFormatter")
	}
	tf, ok := NewFormatter(FormatTable, true).(*TableFormatter)
	if !ok || !tf.Wide {
		t.Error("table wide: want *TableFormatter with Wide")
	}
	if _, ok := NewFormatter("unknown", false).(*TableFormatter); !ok {
		t.Error("unknown: want table fallback")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "table": FormatTable, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) error = nil")
	}
}

func TestJSONFormatter_RawMessage(t *testing.T) {
	var buf bytes.Buffer
	raw := json.RawMessage(`{"id":7,"name":"Spring Open"}`)
	if err := (&JSONFormatter{}).Format(&buf, raw); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "{\n  \"id\": 7,\n  \"name\": \"Spring Open\"\n}\n"
	if buf.String() != want {
		t.Errorf("Format() = %q, want %q", buf.String(), want)
	}
}

func TestYAMLFormatter(t *testing.T) {
	type golfer struct {
		ID        int64   `json:"id"`
		FirstName string  `json:"first_name"`
		Handicap  float64 `json:"handicap"`
	}

	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, []golfer{{ID: 3, FirstName: "Ann", Handicap: 4.5}}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"- first_name: Ann", "  handicap: 4.5", "  id: 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestYAMLFormatter_RawMessage(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, json.RawMessage(`{"count":2,"ok":true}`)); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if got := buf.String(); got != "count: 2\nok: true\n" {
		t.Errorf("Format() = %q", got)
	}
}
