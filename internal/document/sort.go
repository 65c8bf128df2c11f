package document

import (
	"sort"
	"strings"
)

// SortSpec maps an array's location to the field its elements are ordered
// by. Locations are one key ("PON") or two dotted keys ("System.Fans").
//
// Sorting is purely for the benefit of later [?Field=value] queries: it
// makes element order stable across fetches and puts the lookup field first
// in each persisted element.
type SortSpec map[string]string

// DefaultSortSpec covers the arrays the OLT's "show all" output contains.
var DefaultSortSpec = SortSpec{
	"ONU":                  "SN",
	"PON":                  "Name",
	"Ethernet":             "Name",
	"System.Fans":          "Name",
	"System.ThermalStatus": "Name",
}

// Normalize sorts the arrays named by spec in place and returns doc.
// It must only be applied to a freshly fetched document the caller owns.
// Elements sort by the string form of their sort field (missing field or
// non-object element sorts as ""); the sort is stable.
func Normalize(doc any, spec SortSpec) any {
	root, ok := doc.(map[string]any)
	if !ok {
		return doc
	}

	for _, loc := range spec.locations(1) {
		if arr, ok := root[loc.path[0]].([]any); ok {
			sortElements(arr, loc.field)
		}
	}

	for _, loc := range spec.locations(2) {
		parent, ok := root[loc.path[0]].(map[string]any)
		if !ok {
			continue
		}
		if arr, ok := parent[loc.path[1]].([]any); ok {
			sortElements(arr, loc.field)
		}
	}

	return doc
}

// PriorityKey returns the field that should be written first in elements
// of the array at the given location, or "" if the location isn't sorted.
func (s SortSpec) PriorityKey(path ...string) string {
	if len(path) == 0 || len(path) > 2 {
		return ""
	}
	return s[strings.Join(path, ".")]
}

type location struct {
	path  []string
	field string
}

// locations returns spec entries of the given depth in a fixed order.
func (s SortSpec) locations(depth int) []location {
	var out []location
	for key, field := range s {
		parts := strings.SplitN(key, ".", 2)
		if len(parts) == depth {
			out = append(out, location{path: parts, field: field})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Join(out[i].path, ".") < strings.Join(out[j].path, ".")
	})
	return out
}

func sortElements(arr []any, field string) {
	sort.SliceStable(arr, func(i, j int) bool {
		return sortKey(arr[i], field) < sortKey(arr[j], field)
	})
}

func sortKey(elem any, field string) string {
	obj, ok := elem.(map[string]any)
	if !ok {
		return ""
	}
	v, ok := obj[field]
	if !ok {
		return ""
	}
	return Stringify(v)
}
