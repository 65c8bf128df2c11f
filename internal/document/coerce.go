package document

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	intPattern   = regexp.MustCompile(`^-?\d+$`)
	floatPattern = regexp.MustCompile(`^-?\d+\.\d+$`)
)

// Coerce rewrites numeric-looking strings and booleans into numbers.
//
// The OLT renders most counters as quoted strings, and the monitoring side
// only understands numbers and strings, so:
//
//	true  -> 1        "123"   -> 123
//	false -> 0        "-7"    -> -7
//	"12.34" -> 12.34  "v1.2.3", "abc123", "1e5" -> unchanged
//
// Matching is anchored to the whole (trimmed) string. A string that matches
// but doesn't fit in int64 is left alone. Coerce returns a new tree and is
// idempotent.
func Coerce(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = Coerce(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = Coerce(child)
		}
		return out
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	case string:
		return coerceString(t)
	default:
		return v
	}
}

func coerceString(s string) any {
	trimmed := strings.TrimSpace(s)
	if intPattern.MatchString(trimmed) {
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return i
		}
		return s
	}
	if floatPattern.MatchString(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
		return s
	}
	return s
}
