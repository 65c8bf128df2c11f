package pathquery

import (
	"github.com/rileyhilliard/oltstat/internal/logger"
)

// Projector evaluates the paths a caller asked for.
type Projector struct {
	log logger.Logger
}

// NewProjector creates a Projector that logs the shape of each selection.
func NewProjector(log logger.Logger) *Projector {
	if log == nil {
		log = logger.Noop()
	}
	return &Projector{log: log}
}

// Project evaluates paths against doc. With no paths the whole document is
// returned, with one path its value, and with several a map from each path
// string to its value. All paths are parsed before any is evaluated, so a
// syntax error in any of them fails the whole projection.
func (p *Projector) Project(doc any, paths []string) (any, error) {
	if len(paths) == 0 {
		p.log.Debug("path: <none> -> full json")
		return doc, nil
	}

	parsed := make([][]Token, len(paths))
	for i, path := range paths {
		if path == "" {
			continue
		}
		tokens, err := Parse(path)
		if err != nil {
			return nil, err
		}
		parsed[i] = tokens
	}

	if len(paths) == 1 {
		v := evaluateOrDoc(doc, parsed[0])
		p.log.Debug("path: %s -> %s", paths[0], shape(v))
		return v, nil
	}

	out := make(map[string]any, len(paths))
	for i, path := range paths {
		out[path] = evaluateOrDoc(doc, parsed[i])
	}
	p.log.Debug("path: %d paths -> object", len(paths))
	return out, nil
}

func evaluateOrDoc(doc any, tokens []Token) any {
	if tokens == nil {
		return doc
	}
	return Evaluate(doc, tokens)
}

func shape(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "absent"
	default:
		return "scalar"
	}
}
