// Package util provides small string helpers shared by the transport, lock
// and config packages.
package util

import (
	"regexp"
	"strings"
)

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_./:@=-]+$`)

// ShellQuote returns s unchanged when it only contains characters a POSIX
// shell treats literally, and single-quotes it otherwise.
func ShellQuote(s string) string {
	if shellSafe.MatchString(s) {
		return s
	}
	// Replace ' with '"'"' (end quote, quoted quote, start quote)
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// ShellJoin quotes each argument and joins them with spaces, for logging a
// command line in a form that can be pasted into a shell.
func ShellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = ShellQuote(a)
	}
	return strings.Join(quoted, " ")
}
