// Package document holds the JSON tree fetched from an OLT and the
// transformations applied to it before it is cached or queried.
//
// A document is a plain Go value: map[string]any, []any, string, int64,
// float64, bool or nil. Decode produces int64 for integral numbers so
// counters survive a cache round trip without turning into floats.
package document

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
)

// Decode parses JSON into a document.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// Reject trailing garbage after the first value.
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = &json.SyntaxError{Offset: dec.InputOffset()}
		}
		return nil, err
	}
	return nativeNumbers(v), nil
}

// nativeNumbers replaces json.Number leaves with int64 or float64.
func nativeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = nativeNumbers(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = nativeNumbers(child)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// Stringify renders a value the way filters and sort keys compare it.
// Strings are returned verbatim; numbers use their shortest decimal form,
// with integral floats keeping a ".0" suffix.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return formatFloat(t)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return "null"
	case json.Number:
		return t.String()
	default:
		b, err := Encode(v, nil)
		if err != nil {
			return ""
		}
		return string(bytes.TrimSpace(b))
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
