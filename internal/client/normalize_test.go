package client

import (
	"encoding/json"
	"testing"
)

func TestNormalize(t *testing.T) {
	next := "http://localhost:8001/api/tournaments/?page=2"
	tests := []struct {
		name    string
		payload string
		count   int
		results []string
		next    *string
	}{
		{
			name:    "paginated payload passes through",
			payload: `{"count":12,"next":"` + next + `","previous":null,"results":[{"id":1},{"id":2}]}`,
			count:   12,
			results: []string{`{"id":1}`, `{"id":2}`},
			next:    &next,
		},
		{
			name:    "results without count",
			payload: `{"results":[{"id":1},{"id":2}]}`,
			count:   2,
			results: []string{`{"id":1}`, `{"id":2}`},
		},
		{
			name:    "empty results array",
			payload: `{"results":[],"count":0}`,
			count:   0,
			results: []string{},
		},
		{
			name:    "bare array is wrapped",
			payload: `[{"id":1}]`,
			count:   1,
			results: []string{`{"id":1}`},
		},
		{
			name:    "empty array",
			payload: `[]`,
			count:   0,
			results: []string{},
		},
		{
			name:    "single object is wrapped",
			payload: `{"id":3,"name":"Spring Open"}`,
			count:   1,
			results: []string{`{"id":3,"name":"Spring Open"}`},
		},
		{
			name:    "results that is not an array wraps the object",
			payload: `{"results":null}`,
			count:   1,
			results: []string{`{"results":null}`},
		},
		{"null", `null`, 0, []string{}, nil},
		{"number", `42`, 0, []string{}, nil},
		{"string", `"ok"`, 0, []string{}, nil},
		{"boolean", `true`, 0, []string{}, nil},
		{"empty body", ``, 0, []string{}, nil},
		{"malformed", `{"results": [`, 0, []string{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Normalize([]byte(tt.payload))
			if p.Count != tt.count {
				t.Errorf("Count = %d, want %d", p.Count, tt.count)
			}
			if p.Results == nil {
				t.Fatal("Results is nil")
			}
			if len(p.Results) != len(tt.results) {
				t.Fatalf("len(Results) = %d, want %d", len(p.Results), len(tt.results))
			}
			for i, want := range tt.results {
				if string(p.Results[i]) != want {
					t.Errorf("Results[%d] = %s, want %s", i, p.Results[i], want)
				}
			}
			if (p.Next == nil) != (tt.next == nil) || (p.Next != nil && *p.Next != *tt.next) {
				t.Errorf("Next = %v, want %v", p.Next, tt.next)
			}
			if p.Previous != nil {
				t.Errorf("Previous = %v, want absent", *p.Previous)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		`{"count":5,"next":null,"previous":null,"results":[{"id":1}]}`,
		`[{"id":1},{"id":2}]`,
		`{"id":9}`,
		`null`,
	}

	for _, in := range inputs {
		first := Normalize([]byte(in))
		encoded, err := json.Marshal(first)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		second := Normalize(encoded)
		again, _ := json.Marshal(second)
		if string(again) != string(encoded) {
			t.Errorf("normalizing %s twice: %s != %s", in, again, encoded)
		}
	}
}

func TestDecodeAndMaps(t *testing.T) {
	p := Normalize([]byte(`[{"id":1,"name":"North"},{"id":2,"name":"South"}]`))

	type club struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	clubs, err := Decode[club](p)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(clubs) != 2 || clubs[1].Name != "South" {
		t.Errorf("Decode = %+v", clubs)
	}

	maps := p.Maps()
	if len(maps) != 2 || maps[0]["name"] != "North" {
		t.Errorf("Maps = %v", maps)
	}

	bad := Normalize([]byte(`[1]`))
	if _, err := Decode[club](bad); err == nil {
		t.Error("Decode of a number into a struct succeeded")
	}
}
