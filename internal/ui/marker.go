package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ErrorPrefix starts every diagnostic line the CLI writes.
const ErrorPrefix = "error:"

// isTerminal is replaced in tests.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// UseColor reports whether styled text should be written to w.
func UseColor(w io.Writer) bool {
	return isTerminal(w) && !termenv.EnvNoColor()
}

// Styles renders text for one destination.
type Styles struct {
	color    bool
	renderer *lipgloss.Renderer
}

// NewStyles picks colour or plain output for w.
func NewStyles(w io.Writer) *Styles {
	s := &Styles{color: UseColor(w), renderer: lipgloss.NewRenderer(w)}
	if s.color {
		s.renderer.SetColorProfile(termenv.ANSI)
	}
	return s
}

// ErrorMarker is ErrorPrefix, bold red on a colour terminal.
func (s *Styles) ErrorMarker() string {
	if !s.color {
		return ErrorPrefix
	}
	return s.renderer.NewStyle().Foreground(ColorError).Bold(true).Render(ErrorPrefix)
}

// Hint renders a secondary line such as a usage pointer.
func (s *Styles) Hint(text string) string {
	if !s.color {
		return text
	}
	return s.renderer.NewStyle().Foreground(ColorMuted).Render(text)
}
