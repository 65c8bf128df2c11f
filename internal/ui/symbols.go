package ui

// Unicode symbols for check results.
const (
	SymbolSuccess = "✓"
	SymbolWarn    = "!"
	SymbolFail    = "✗"
)

// Symbol renders the marker for a status name: "pass", "warn" or "fail".
func (s *Styles) Symbol(status string) string {
	sym, color := SymbolFail, ColorError
	switch status {
	case "pass":
		sym, color = SymbolSuccess, ColorSuccess
	case "warn":
		sym, color = SymbolWarn, ColorWarning
	}
	if !s.color {
		return sym
	}
	return s.renderer.NewStyle().Foreground(color).Render(sym)
}
