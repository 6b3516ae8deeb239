// util/util_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestFindDuplicateJSONKeys(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected []DuplicateJSONKey
	}{
		{
			name: "no duplicates",
			json: `{"a": 1, "b": 2, "c": 3}`,
		},
		{
			name:     "duplicate at root",
			json:     `{"a": 1, "b": 2, "a": 3}`,
			expected: []DuplicateJSONKey{{Path: "", Key: "a"}},
		},
		{
			name:     "duplicate guide expression",
			json:     `{"steps": [{"chase": "right", "along": {"flaps == 0": "a", "flaps == 0": "b"}}]}`,
			expected: []DuplicateJSONKey{{Path: "steps.along", Key: "flaps == 0"}},
		},
		{
			name: "multiple levels",
			json: `{"a": 1, "a": 2, "nested": {"b": [1, 2], "b": {"c": 1}}}`,
			expected: []DuplicateJSONKey{
				{Path: "", Key: "a"},
				{Path: "nested", Key: "b"},
			},
		},
		{
			name: "same key in sibling objects",
			json: `{"items": [{"x": 1}, {"x": 2}]}`,
		},
		{
			name:     "malformed",
			json:     `{"a": 1, "a": `,
			expected: []DuplicateJSONKey{{Path: "", Key: "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindDuplicateJSONKeys([]byte(tt.json))
			if !slices.Equal(result, tt.expected) {
				t.Errorf("got %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestUnmarshalJSONBytesErrors(t *testing.T) {
	var v struct {
		Size [2]int `json:"size"`
	}

	err := UnmarshalJSONBytes([]byte("{\n  \"size\": [1, 2,]\n}"), &v)
	if err == nil || !strings.HasPrefix(err.Error(), "Error at line 2,") {
		t.Errorf("syntax error: got %v", err)
	}

	err = UnmarshalJSONBytes([]byte("{\n\"size\": \"big\"}"), &v)
	if err == nil || !strings.HasPrefix(err.Error(), "Error at line 2,") {
		t.Errorf("type error: got %v", err)
	}

	if err := UnmarshalJSON(strings.NewReader(`{"size": [3, 4]}`), &v); err != nil {
		t.Errorf("unexpected error %v", err)
	} else if v.Size != [2]int{3, 4} {
		t.Errorf("got %v, expected [3 4]", v.Size)
	}
}

type checkedInner struct {
	Name string `json:"name"`
}

type checkedOuter struct {
	Kind  string         `json:"kind"`
	Items []checkedInner `json:"items"`
	Flag  *bool          `json:"flag,omitempty"`
}

func TestCheckJSON(t *testing.T) {
	var e ErrorLogger
	CheckJSON[checkedOuter]([]byte(`{"kind": "x", "items": [{"name": "a"}], "flag": true}`), &e)
	if e.HaveErrors() {
		t.Errorf("unexpected errors: %s", e.String())
	}

	e = ErrorLogger{}
	CheckJSON[checkedOuter]([]byte(`{"kind": "x", "items": [{"nmae": "a"}]}`), &e)
	if !e.HaveErrors() || !strings.Contains(e.String(), `"nmae"`) {
		t.Errorf("misspelled field not reported: %q", e.String())
	}

	e = ErrorLogger{}
	CheckJSON[checkedOuter]([]byte(`{"kind": 12}`), &e)
	if !e.HaveErrors() || !strings.HasPrefix(e.String(), "kind: ") {
		t.Errorf("type mismatch not reported with context: %q", e.String())
	}
}

func TestErrorLogger(t *testing.T) {
	base := errors.New("Invalid chart")

	var e ErrorLogger
	if e.Err(base) != nil {
		t.Errorf("expected nil error with nothing recorded")
	}

	e.Push("steps")
	e.Push("3")
	e.ErrorString("unknown guide %q", "flap")
	e.Pop()
	e.Error(errors.New("trailing"))
	e.Pop()

	if e.CurrentDepth() != 0 {
		t.Errorf("got depth %d, expected 0", e.CurrentDepth())
	}
	err := e.Err(base)
	if !errors.Is(err, base) {
		t.Errorf("Err does not wrap base: %v", err)
	}
	expected := "Invalid chart:\nsteps / 3: unknown guide \"flap\"\nsteps: trailing"
	if err.Error() != expected {
		t.Errorf("got %q, expected %q", err.Error(), expected)
	}
}

func TestCache(t *testing.T) {
	type entry struct {
		Name   string
		Values []float64
	}

	dir := t.TempDir()
	in := entry{Name: "weight", Values: []float64{850, 1200}}
	if err := CacheStoreObject(dir, "https://example.com/chart.wpd.json", in); err != nil {
		t.Fatalf("store: %v", err)
	}

	var out entry
	if _, err := CacheRetrieveObject(dir, "https://example.com/chart.wpd.json", &out); err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if out.Name != in.Name || !slices.Equal(out.Values, in.Values) {
		t.Errorf("got %+v, expected %+v", out, in)
	}

	if _, err := CacheRetrieveObject(dir, "https://example.com/other.json", &out); err == nil {
		t.Errorf("expected error retrieving missing object")
	}

	if CacheKey("a") == CacheKey("b") || CacheKey("a") != CacheKey("a") {
		t.Errorf("cache keys not stable and distinct")
	}
}

func TestDecompressByName(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	raw := []byte(`{"kind": "chase"}`)
	compressed := enc.EncodeAll(raw, nil)

	name, b, err := DecompressByName("charts/cruise.json.zst", compressed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "charts/cruise.json" || string(b) != string(raw) {
		t.Errorf("got %q / %q", name, b)
	}

	name, b, err = DecompressByName("cruise.json", raw)
	if err != nil || name != "cruise.json" || string(b) != string(raw) {
		t.Errorf("uncompressed file altered: %q %q %v", name, b, err)
	}
}

func TestGenerics(t *testing.T) {
	m := map[string]int{"c": 3, "a": 1, "b": 2}
	if keys := SortedMapKeys(m); !slices.Equal(keys, []string{"a", "b", "c"}) {
		t.Errorf("got %v", keys)
	}

	doubled := MapSlice([]int{1, 2, 3}, func(i int) float64 { return 2 * float64(i) })
	if !slices.Equal(doubled, []float64{2, 4, 6}) {
		t.Errorf("got %v", doubled)
	}

	odd := FilterSlice([]int{1, 2, 3, 4, 5}, func(i int) bool { return i%2 == 1 })
	if !slices.Equal(odd, []int{1, 3, 5}) {
		t.Errorf("got %v", odd)
	}

	sum := ReduceSlice([]int{1, 2, 3}, func(v int, acc int) int { return acc + v }, 10)
	if sum != 16 {
		t.Errorf("got %d, expected 16", sum)
	}

	if Select(true, "a", "b") != "a" || Select(false, "a", "b") != "b" {
		t.Errorf("Select returned the wrong value")
	}
}

func TestProfiler(t *testing.T) {
	dir := t.TempDir()
	cpu, mem := filepath.Join(dir, "cpu.prof"), filepath.Join(dir, "mem.prof")

	p, err := StartProfiler(cpu, mem)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	// A second Stop is harmless.
	if err := p.Stop(); err != nil {
		t.Errorf("unexpected error %v on second Stop", err)
	}

	for _, fn := range []string{cpu, mem} {
		if fi, err := os.Stat(fn); err != nil {
			t.Errorf("%s: %v", fn, err)
		} else if fi.Size() == 0 {
			t.Errorf("%s: empty profile", fn)
		}
	}

	if _, err := StartProfiler(filepath.Join(dir, "missing", "cpu.prof"), ""); err == nil {
		t.Errorf("expected error for unwritable profile path")
	}
}
