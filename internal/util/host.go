package util

import (
	"net/url"
	"strings"
)

// SanitizeHost turns a user-supplied device address into a string safe to
// use as a file name. It accepts bare hosts, host:port, bracketed IPv6
// literals and http(s) URLs:
//
//	" 10.0.0.1:22 "            -> "10.0.0.1"
//	"https://olt.example/x"    -> "olt.example"
//	"[fe80::1]:22"             -> "fe80--1"
//	"fe80::1"                  -> "fe80--1"
//	""                         -> "unknown"
func SanitizeHost(host string) string {
	h := strings.TrimSpace(host)
	if h == "" {
		return "unknown"
	}

	if strings.HasPrefix(h, "http://") || strings.HasPrefix(h, "https://") {
		if u, err := url.Parse(h); err == nil {
			if u.Host != "" {
				h = u.Host
			} else {
				h = u.Path
			}
		}
	}

	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}

	if strings.HasPrefix(h, "[") {
		if end := strings.IndexByte(h, ']'); end >= 0 {
			h = h[1:end]
		}
	}

	if strings.Count(h, ":") == 1 && !strings.ContainsAny(h, "[]") {
		h = h[:strings.IndexByte(h, ':')]
	}

	h = strings.ReplaceAll(h, ":", "-")

	var b strings.Builder
	for _, r := range h {
		if isSafeRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	h = strings.Trim(b.String(), "._-")
	if h == "" {
		return "unknown"
	}
	return h
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
