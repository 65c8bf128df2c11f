// Package output renders a selection on stdout in the shape a monitoring
// agent consumes: scalars as one plain line, everything else as indented
// JSON.
package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/rileyhilliard/oltstat/internal/document"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Missing is printed in place of absent, error-shaped and sentinel values.
// Agents that store unsigned numbers reject anything else.
const Missing = "0"

// Scalar renders v as a single line. ok is false for objects and arrays.
func Scalar(v any) (line string, ok bool) {
	switch t := v.(type) {
	case nil:
		return Missing, true
	case string:
		if strings.HasPrefix(t, "error:") {
			return Missing, true
		}
		return t, true
	case bool:
		if t {
			return "1", true
		}
		return "0", true
	case int64:
		if t == -1 {
			return Missing, true
		}
	case int:
		if t == -1 {
			return Missing, true
		}
	case float64:
		if t == -1 {
			return Missing, true
		}
	default:
		return "", false
	}
	return document.Stringify(v), true
}

// Value writes v followed by a newline.
func Value(w io.Writer, v any) error {
	if line, ok := Scalar(v); ok {
		_, err := fmt.Fprintln(w, line)
		return err
	}
	data, err := document.Encode(v, nil)
	if err != nil {
		return err
	}
	return writeJSON(w, data)
}

// Paths writes the values selected by several paths as one JSON object
// whose keys are the paths in the order given. A repeated path keeps its
// first position. The empty path is the "" key.
func Paths(w io.Writer, paths []string, values map[string]any) error {
	obj := []byte("{}")
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true

		raw, err := document.Encode(values[path], nil)
		if err != nil {
			return err
		}
		// A leading ":" makes sjson take the escaped path as one literal
		// object key, including the empty key and all-digit keys.
		obj, err = sjson.SetRawBytes(obj, ":"+gjson.Escape(path), pretty.Ugly(raw))
		if err != nil {
			return fmt.Errorf("add %q to output: %w", path, err)
		}
	}
	return writeJSON(w, pretty.Pretty(obj))
}

func writeJSON(w io.Writer, data []byte) error {
	_, err := fmt.Fprintf(w, "%s\n", bytes.TrimRight(data, "\n"))
	return err
}
