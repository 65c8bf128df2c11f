// Package extract pulls the JSON payload out of an OLT CLI session transcript.
//
// The device echoes the command, prints prompts (often wrapped in ANSI
// colour codes) and sometimes warnings around the JSON it returns, and there
// is no terminator other than the closing brace. Extraction is line-anchored
// and greedy: everything before the first line that opens a JSON value is
// dropped, then the widest {...} span is taken.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
	"github.com/tidwall/gjson"
)

// PreviewBytes bounds how much cleaned output is quoted in diagnostics.
const PreviewBytes = 500

// TerminalWarning is printed by the OLT when stdin isn't a tty. Harmless.
const TerminalWarning = "Warning: Input is not a terminal"

var (
	ansiPattern   = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	promptPattern = regexp.MustCompile(`^(?:[ \t]*<.*?#)+`)
	jsonBlock     = regexp.MustCompile(`(?s)\{.*\}`)
)

// Extractor turns raw session output into JSON text.
type Extractor struct {
	log logger.Logger
}

// New creates an Extractor. A nil logger discards diagnostics.
func New(log logger.Logger) *Extractor {
	if log == nil {
		log = logger.Noop()
	}
	return &Extractor{log: log}
}

// ToJSON cleans raw and returns the embedded JSON object text.
// It fails with an EXTRACT error when no {...} span survives cleaning.
func (e *Extractor) ToJSON(raw string) (string, error) {
	cleaned := Clean(raw)
	span := jsonBlock.FindString(cleaned)
	if span == "" {
		preview := cleaned
		if len(preview) > PreviewBytes {
			preview = preview[:PreviewBytes] + "..."
		}
		e.log.Debug("olt: output after cleaning: %s", logger.Preview(preview, 0))
		return "", errors.New(errors.ErrExtract,
			fmt.Sprintf("no JSON found in OLT output (got %d bytes after cleaning)", len(cleaned)),
			"Run with --debug to see what the device sent")
	}
	return span, nil
}

// Validate reports whether span is well-formed JSON. A span that extracted
// but doesn't parse means the device output was truncated or interleaved,
// which is never worth retrying within the same invocation.
func Validate(span string) error {
	if gjson.Valid(span) {
		return nil
	}
	return errors.New(errors.ErrExtract,
		fmt.Sprintf("OLT output contained a JSON-looking block that doesn't parse (%d bytes)", len(span)),
		"The device output may have been cut off; check the session with --debug")
}

// Clean applies the line-level cleanup without extracting: strip escape
// sequences, strip prompts, drop noise lines and the leading banner.
func Clean(raw string) string {
	text := ansiPattern.ReplaceAllString(raw, "")

	lines := splitLines(text)
	kept := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = stripPrompt(ln)
		ln = strings.TrimRight(ln, " \t\r\v\f")
		if strings.TrimSpace(ln) == "" || strings.Contains(ln, TerminalWarning) {
			continue
		}
		kept = append(kept, ln)
	}

	kept = dropBanner(kept)
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// stripPrompt removes the "<name#" prompt(s) at the start of a line. The
// device may repeat the prompt before echoing a command.
func stripPrompt(line string) string {
	return promptPattern.ReplaceAllString(line, "")
}

// dropBanner discards everything before the first line that opens a JSON
// object or array. If no line does, the input is returned unchanged.
func dropBanner(lines []string) []string {
	for i, ln := range lines {
		trimmed := strings.TrimLeft(ln, " \t")
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			return lines[i:]
		}
	}
	return lines
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
