// Package cli implements the oltstat command-line interface.
//
// oltstat is run by a monitoring agent once per item per poll:
//
//	oltstat <host> <password> [path ...]
//
// It prints one value on stdout and nothing else, so the agent can store it
// directly. Diagnostics go to stderr as a single "error: ..." line, and the
// exit status tells the agent whether to trust stdout:
//
//	0  success
//	1  the device could not be read or a path could not be evaluated
//	2  bad arguments, bad configuration, or --cat-cache could not read
//
// # Configuration
//
// Settings resolve from lowest to highest precedence: built-in defaults,
// the config file (--config, ~/.config/oltstat/config.yaml or
// /etc/oltstat/config.yaml), OLT_* environment variables, then flags.
// "oltstat config" prints the result.
package cli
