package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/tidwall/pretty"
)

// Encode writes doc as indented JSON. Object keys are alphabetical, except
// in elements of arrays named by spec, where the sort field comes first.
// Integral floats keep their ".0" so Decode gives back a float64.
func Encode(doc any, spec SortSpec) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, doc, []string{}, "", spec); err != nil {
		return nil, err
	}
	return pretty.Pretty(buf.Bytes()), nil
}

// encodeValue writes v. path is the key path from the root, or nil once the
// walk has entered an array or gone deeper than a SortSpec can address.
// priority is the key to write first if v is an object.
func encodeValue(buf *bytes.Buffer, v any, path []string, priority string, spec SortSpec) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case string:
		return writeString(buf, t)
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case int:
		buf.WriteString(strconv.Itoa(t))
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			return fmt.Errorf("unsupported number %v in document", t)
		}
		buf.WriteString(formatFloat(t))
	case json.Number:
		buf.WriteString(t.String())
	case []any:
		elemPriority := ""
		if spec != nil {
			elemPriority = spec.PriorityKey(path...)
		}
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, elem, nil, elemPriority, spec); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range orderedKeys(t, priority) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			var childPath []string
			if path != nil && len(path) < 2 {
				childPath = append(append([]string{}, path...), k)
			}
			if err := encodeValue(buf, t[k], childPath, "", spec); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(raw)
	}
	return nil
}

func orderedKeys(m map[string]any, priority string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if priority != "" && k == priority {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if _, ok := m[priority]; ok && priority != "" {
		keys = append([]string{priority}, keys...)
	}
	return keys
}

// writeString writes s as a JSON string without HTML escaping, so values
// like "<OLT#" stay readable in the cache file.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
