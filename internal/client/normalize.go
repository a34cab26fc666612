package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Page is the normalized list contract.
type Page struct {
	Results  []json.RawMessage `json:"results"`
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
}

// EmptyPage returns a page with no results.
func EmptyPage() *Page {
	return &Page{Results: []json.RawMessage{}}
}

// Normalize coerces a raw read payload into a Page. The first matching rule
// wins:
//
//  1. an object whose "results" field is an array is passed through;
//  2. an array becomes the results, with count set to its length;
//  3. any other non-null object becomes a single result;
//  4. anything else (null, a primitive, empty or malformed input) is the
//     empty page.
//
// Normalize never fails, and normalizing an encoded Page returns it unchanged.
func Normalize(payload []byte) *Page {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || !json.Valid(payload) {
		return EmptyPage()
	}

	switch payload[0] {
	case '{':
		var probe struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(payload, &probe); err == nil && isArray(probe.Results) {
			return passThrough(payload)
		}
		return &Page{Results: []json.RawMessage{json.RawMessage(payload)}, Count: 1}

	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(payload, &items); err != nil {
			return EmptyPage()
		}
		if items == nil {
			items = []json.RawMessage{}
		}
		return &Page{Results: items, Count: len(items)}
	}

	return EmptyPage()
}

func passThrough(payload []byte) *Page {
	var raw struct {
		Results  []json.RawMessage `json:"results"`
		Count    *int              `json:"count"`
		Next     *string           `json:"next"`
		Previous *string           `json:"previous"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		// "count" of an unexpected type; keep the results.
		var results struct {
			Results []json.RawMessage `json:"results"`
		}
		_ = json.Unmarshal(payload, &results)
		raw.Results = results.Results
		raw.Count = nil
		raw.Next, raw.Previous = nil, nil
	}

	p := &Page{Results: raw.Results, Next: raw.Next, Previous: raw.Previous}
	if p.Results == nil {
		p.Results = []json.RawMessage{}
	}
	if raw.Count != nil {
		p.Count = *raw.Count
	} else {
		p.Count = len(p.Results)
	}
	return p
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// Decode unmarshals every result into a T.
func Decode[T any](p *Page) ([]T, error) {
	out := make([]T, 0, len(p.Results))
	for i, raw := range p.Results {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode result %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Maps returns the results as generic JSON objects. Results that are not
// objects are skipped.
func (p *Page) Maps() []map[string]any {
	out := make([]map[string]any, 0, len(p.Results))
	for _, raw := range p.Results {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err == nil && m != nil {
			out = append(out, m)
		}
	}
	return out
}
