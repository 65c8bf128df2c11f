// Package pathquery selects values out of a document with short path
// expressions such as
//
//	Ethernet[0].Status
//	ONU[*].RxPower
//	PON[?Name=pon1].Status
//	System.PowerStatus."Left slot".Power
//	System["Left slot"]
//
// Parsing is strict: anything the grammar doesn't cover is an error. Lookup
// is lenient: a path that doesn't match the document yields nil.
package pathquery

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rileyhilliard/oltstat/internal/errors"
)

// Kind identifies a path segment.
type Kind int

const (
	// Key selects an object member.
	Key Kind = iota
	// Index selects an array element.
	Index
	// Wildcard maps the rest of the path over every array element.
	Wildcard
	// Filter selects the first array element whose Field equals Value.
	Filter
)

// Token is one parsed path segment.
type Token struct {
	Kind  Kind
	Name  string // Key
	Index int    // Index
	Field string // Filter
	Value string // Filter, compared as text
}

func (t Token) String() string {
	switch t.Kind {
	case Key:
		return fmt.Sprintf("key(%s)", t.Name)
	case Index:
		return fmt.Sprintf("index(%d)", t.Index)
	case Wildcard:
		return "wildcard"
	default:
		return fmt.Sprintf("filter(%s=%s)", t.Field, t.Value)
	}
}

// Parse splits path into tokens. Segments must follow each other with
// nothing in between:
//
//	name | .name          identifier [A-Za-z_][A-Za-z0-9_-]*
//	"a b" | ."a b"        quoted key, no escapes
//	["a b"] | ['a b']     bracket-quoted key
//	[3]                   index
//	[*]                   wildcard
//	[?field=value]        filter, field is [A-Za-z_][A-Za-z0-9_]*
func Parse(path string) ([]Token, error) {
	s := &scanner{src: path}
	var tokens []Token
	for !s.done() {
		tok, ok := s.next()
		if !ok {
			return nil, errors.New(errors.ErrPath,
				"invalid path near: "+s.rest(),
				`Use dotted keys, "quoted keys", [N], [*] or [?Field=value]`)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) done() bool   { return s.pos >= len(s.src) }
func (s *scanner) rest() string { return s.src[s.pos:] }

func (s *scanner) peek(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

// next scans one segment. On failure the position is left at the start of
// the segment so rest() names it.
func (s *scanner) next() (Token, bool) {
	start := s.pos
	tok, ok := s.segment()
	if !ok {
		s.pos = start
	}
	return tok, ok
}

func (s *scanner) segment() (Token, bool) {
	c := s.peek(0)
	if c == '[' {
		return s.bracket()
	}

	if c == '.' {
		s.pos++
		c = s.peek(0)
	}
	switch {
	case isIdentStart(c):
		return Token{Kind: Key, Name: s.ident(true)}, true
	case c == '"':
		name, ok := s.quoted('"')
		return Token{Kind: Key, Name: name}, ok
	}
	return Token{}, false
}

func (s *scanner) bracket() (Token, bool) {
	s.pos++ // [
	var tok Token

	switch c := s.peek(0); {
	case c == '?':
		s.pos++
		if !isIdentStart(s.peek(0)) {
			return tok, false
		}
		field := s.ident(false)
		if s.peek(0) != '=' {
			return tok, false
		}
		s.pos++
		begin := s.pos
		for !s.done() && s.peek(0) != ']' {
			s.pos++
		}
		if s.pos == begin {
			return tok, false
		}
		tok = Token{Kind: Filter, Field: field, Value: s.src[begin:s.pos]}
	case c == '*':
		s.pos++
		tok = Token{Kind: Wildcard}
	case isDigit(c):
		begin := s.pos
		for isDigit(s.peek(0)) {
			s.pos++
		}
		n, err := strconv.Atoi(s.src[begin:s.pos])
		if err != nil {
			// Too large for an int; no array is that long.
			n = math.MaxInt
		}
		tok = Token{Kind: Index, Index: n}
	case c == '"' || c == '\'':
		name, ok := s.quoted(c)
		if !ok {
			return tok, false
		}
		tok = Token{Kind: Key, Name: name}
	default:
		return tok, false
	}

	if s.peek(0) != ']' {
		return Token{}, false
	}
	s.pos++
	return tok, true
}

// quoted scans a non-empty string delimited by q. The opening quote is at
// the current position.
func (s *scanner) quoted(q byte) (string, bool) {
	s.pos++
	begin := s.pos
	for !s.done() && s.peek(0) != q {
		s.pos++
	}
	if s.done() || s.pos == begin {
		return "", false
	}
	name := s.src[begin:s.pos]
	s.pos++
	return name, true
}

// ident scans an identifier; keys may contain '-', filter fields may not.
func (s *scanner) ident(allowDash bool) string {
	begin := s.pos
	s.pos++
	for {
		c := s.peek(0)
		if !isIdentStart(c) && !isDigit(c) && !(allowDash && c == '-') {
			break
		}
		s.pos++
	}
	return s.src[begin:s.pos]
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
