package pathquery

import (
	"github.com/rileyhilliard/oltstat/internal/document"
)

// Select parses path and evaluates it against doc. An empty path selects
// the whole document.
func Select(doc any, path string) (any, error) {
	if path == "" {
		return doc, nil
	}
	tokens, err := Parse(path)
	if err != nil {
		return nil, err
	}
	return Evaluate(doc, tokens), nil
}

// Evaluate applies tokens left to right. Whenever a token doesn't fit the
// value in hand (missing key, wrong container, index out of range, no
// filter match) the result is nil.
//
// A wildcard takes the rest of the path with it: the remaining tokens are
// evaluated against each element and the results collected in order. So
// "A[*][?f=v]" filters inside each element of A, and each element must
// itself be an array for its slot to be non-nil.
func Evaluate(doc any, tokens []Token) any {
	cur := doc
	for i, tok := range tokens {
		if tok.Kind == Wildcard {
			return mapRest(cur, tokens[i+1:])
		}
		cur = apply(cur, tok)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func mapRest(cur any, rest []Token) any {
	arr, ok := cur.([]any)
	if !ok {
		return nil
	}
	out := make([]any, len(arr))
	for i, elem := range arr {
		if len(rest) == 0 {
			out[i] = elem
		} else {
			out[i] = Evaluate(elem, rest)
		}
	}
	return out
}

func apply(cur any, tok Token) any {
	switch tok.Kind {
	case Key:
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		return obj[tok.Name]
	case Index:
		arr, ok := cur.([]any)
		if !ok || tok.Index < 0 || tok.Index >= len(arr) {
			return nil
		}
		return arr[tok.Index]
	case Filter:
		arr, ok := cur.([]any)
		if !ok {
			return nil
		}
		for _, elem := range arr {
			obj, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			if v, ok := obj[tok.Field]; ok && document.Stringify(v) == tok.Value {
				return obj
			}
		}
	}
	return nil
}
