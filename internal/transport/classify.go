package transport

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
)

// errorPreviewBytes bounds how much output is quoted when no hint matched.
const errorPreviewBytes = 200

type failureClass struct {
	patterns []string
	hint     func(user, host string) string
}

// failureClasses is checked in order; every class that matches contributes
// its hint. Patterns are lower case and matched against lower-cased text.
var failureClasses = []failureClass{
	{
		patterns: []string{"permission denied", "authentication failed", "unable to authenticate"},
		hint: func(user, host string) string {
			return fmt.Sprintf("authentication failed (check password for %s@%s)", user, host)
		},
	},
	{
		patterns: []string{"connection refused"},
		hint: func(_, host string) string {
			return fmt.Sprintf("connection refused by %s (SSH not running or port blocked?)", host)
		},
	},
	{
		patterns: []string{"no route to host", "host is unreachable", "network is unreachable", "no such host"},
		hint: func(_, host string) string {
			return fmt.Sprintf("cannot reach %s (check IP address and network connectivity)", host)
		},
	},
	{
		patterns: []string{"connection timed out", "i/o timeout"},
		hint: func(_, host string) string {
			return fmt.Sprintf("connection to %s timed out (firewall blocking?)", host)
		},
	},
	{
		patterns: []string{"host key verification failed", "host key mismatch", "key is unknown"},
		hint: func(_, host string) string {
			return fmt.Sprintf("host key verification failed for %s", host)
		},
	},
}

// Hints returns the hint of every failure class whose patterns appear in
// text, case-insensitively. An empty user means DefaultUser.
func Hints(user, host, text string) []string {
	if user == "" {
		user = DefaultUser
	}
	lower := strings.ToLower(text)
	var hints []string
	for _, class := range failureClasses {
		for _, p := range class.patterns {
			if strings.Contains(lower, p) {
				hints = append(hints, class.hint(user, host))
				break
			}
		}
	}
	return hints
}

// classify turns a failed session into a CONNECTION error.
func classify(host string, res Result) error {
	combined := res.Output
	if res.Detail != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += res.Detail
	}

	if hints := Hints(res.User, host, combined); len(hints) > 0 {
		return errors.New(errors.ErrConnection,
			"SSH error: "+strings.Join(hints, "; "), "")
	}

	preview := "(no output)"
	if combined != "" {
		preview = logger.Preview(combined, errorPreviewBytes)
	}
	return errors.New(errors.ErrConnection,
		fmt.Sprintf("SSH failed with return code %d: %s", res.ExitCode, preview), "")
}
