// util/json.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

///////////////////////////////////////////////////////////////////////////
// JSON

// DuplicateJSONKey records an object key that appears more than once in
// the same object. Decoding silently keeps the last value, which is
// rarely what the author of a hand-edited file intended.
type DuplicateJSONKey struct {
	Path string // dot-separated keys leading to the object
	Key  string
}

func (d DuplicateJSONKey) String() string {
	if d.Path == "" {
		return d.Key
	}
	return d.Path + "." + d.Key
}

// FindDuplicateJSONKeys returns every duplicated object key in the given
// JSON, in document order. Array elements share their parent's path.
// Malformed JSON yields whatever was found before the error.
func FindDuplicateJSONKeys(data []byte) []DuplicateJSONKey {
	dec := json.NewDecoder(bytes.NewReader(data))
	var dups []DuplicateJSONKey

	var walk func(path []string) error
	walk = func(path []string) error {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			return nil
		}

		switch delim {
		case '{':
			seen := make(map[string]bool)
			for dec.More() {
				tok, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := tok.(string)
				if seen[key] {
					dups = append(dups, DuplicateJSONKey{Path: strings.Join(path, "."), Key: key})
				}
				seen[key] = true
				if err := walk(append(path, key)); err != nil {
					return err
				}
			}
		case '[':
			for dec.More() {
				if err := walk(path); err != nil {
					return err
				}
			}
		}

		// Consume the closing delimiter.
		_, err = dec.Token()
		return err
	}
	_ = walk(nil)

	return dups
}

func UnmarshalJSON[T any](r io.Reader, out *T) error {
	// The whole thing is needed up front so that error offsets can be
	// turned into line numbers.
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return UnmarshalJSONBytes(b, out)
}

// UnmarshalJSONBytes unmarshals b into out, reporting syntax and type
// errors with the line and character at which they occurred.
func UnmarshalJSONBytes[T any](b []byte, out *T) error {
	err := json.Unmarshal(b, out)
	if err == nil {
		return nil
	}

	position := func(offset int64) (line, char int) {
		if int(offset) > len(b) {
			offset = int64(len(b))
		}
		before := b[:offset]
		line = bytes.Count(before, []byte{'\n'}) + 1
		char = int(offset) - bytes.LastIndexByte(before, '\n')
		return
	}

	var serr *json.SyntaxError
	var terr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &serr):
		line, char := position(serr.Offset)
		return fmt.Errorf("Error at line %d, character %d: %w", line, char, serr)

	case errors.As(err, &terr):
		line, char := position(terr.Offset)
		field := terr.Field
		if terr.Struct != "" {
			field = terr.Struct + "." + field
		}
		return fmt.Errorf("Error at line %d, character %d: %s value for %s invalid for type %s",
			line, char, terr.Value, field, terr.Type)

	default:
		return err
	}
}

///////////////////////////////////////////////////////////////////////////

// JSONChecker is implemented by types with custom JSON unmarshalers so
// that they can say whether raw decoded JSON has a compatible shape.
type JSONChecker interface {
	CheckJSON(json any) bool
}

// CheckJSON checks that contents is valid JSON whose objects only use
// fields that T declares, recording any problems in e. It catches
// misspelled keys, which the standard decoder silently ignores.
func CheckJSON[T any](contents []byte, e *ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	var items any
	if err := UnmarshalJSONBytes(contents, &items); err != nil {
		e.Error(err)
		return
	}

	ty := reflect.TypeOf((*T)(nil)).Elem()
	tc := jsonTypeChecker{fields: make(map[reflect.Type]map[string]reflect.Type), e: e}
	tc.check(items, ty)
}

type jsonTypeChecker struct {
	// fields caches the JSON field names of each struct type seen.
	fields map[reflect.Type]map[string]reflect.Type
	e      *ErrorLogger
}

var jsonCheckerType = reflect.TypeOf((*JSONChecker)(nil)).Elem()

func (tc *jsonTypeChecker) check(v any, ty reflect.Type) {
	for ty.Kind() == reflect.Pointer {
		ty = ty.Elem()
	}

	if ty.Implements(jsonCheckerType) || reflect.PointerTo(ty).Implements(jsonCheckerType) {
		if !reflect.New(ty).Interface().(JSONChecker).CheckJSON(v) {
			tc.e.ErrorString("unexpected data format provided for %s", ty.Name())
		}
		return
	}

	mismatch := func() {
		tc.e.ErrorString("unexpected %T provided for %s", v, ty)
	}

	switch ty.Kind() {
	case reflect.Array, reflect.Slice:
		array, ok := v.([]any)
		if !ok {
			mismatch()
			return
		}
		for _, item := range array {
			tc.check(item, ty.Elem())
		}

	case reflect.Map:
		m, ok := v.(map[string]any)
		if !ok {
			mismatch()
			return
		}
		for k, item := range m {
			tc.e.Push(k)
			tc.check(item, ty.Elem())
			tc.e.Pop()
		}

	case reflect.Struct:
		m, ok := v.(map[string]any)
		if !ok {
			mismatch()
			return
		}
		fields := tc.structFields(ty)
		for k, item := range m {
			if fty, ok := fields[k]; ok {
				tc.e.Push(k)
				tc.check(item, fty)
				tc.e.Pop()
			} else {
				tc.e.ErrorString("The entry %q is not an expected JSON object. Is it misspelled?", k)
			}
		}

	case reflect.String:
		if _, ok := v.(string); !ok {
			mismatch()
		}

	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int32, reflect.Int64:
		if _, ok := v.(float64); !ok {
			mismatch()
		}

	case reflect.Bool:
		if _, ok := v.(bool); !ok {
			mismatch()
		}
	}
}

func (tc *jsonTypeChecker) structFields(ty reflect.Type) map[string]reflect.Type {
	if f, ok := tc.fields[ty]; ok {
		return f
	}
	f := make(map[string]reflect.Type)
	for _, field := range reflect.VisibleFields(ty) {
		if tag, ok := field.Tag.Lookup("json"); ok {
			if name, _, _ := strings.Cut(tag, ","); name != "-" {
				f[name] = field.Type
			}
		}
	}
	tc.fields[ty] = f
	return f
}
