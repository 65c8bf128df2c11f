package sshutil

import (
	"bytes"
	"net"
	"os"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// HostEntry is what an SSH config file says about one host alias.
type HostEntry struct {
	Alias    string // The Host pattern (alias)
	Hostname string // The HostName value (actual host to connect to)
	Port     string // The Port value
}

// LookupHost reads the SSH config at configPath and returns the HostName
// and Port it sets for alias. A missing file is not an error. The second
// return value is the line of the first Match block, which hides every
// entry after it, or 0.
func LookupHost(configPath, alias string) (HostEntry, int, error) {
	entry := HostEntry{Alias: alias}

	// The kevinburke/ssh_config library doesn't support Match, so only
	// the content before the first Match block is parsed.
	content, matchLine, err := preprocessSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return entry, 0, nil
		}
		return entry, 0, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return entry, matchLine, err
	}

	if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
		entry.Hostname = hostname
	}
	if port, _ := cfg.Get(alias, "Port"); port != "" {
		entry.Port = port
	}
	return entry, matchLine, nil
}

// sshSettings holds resolved SSH connection parameters.
type sshSettings struct {
	hostname string
	port     string
}

// address returns the host:port string for dialing.
func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSSHSettings splits an explicit port off host and then lets the SSH
// config rename the host or change its port. An explicit port wins over
// the config.
func resolveSSHSettings(host, configPath string) *sshSettings {
	settings := &sshSettings{port: "22"}
	explicitPort := false

	if h, p, err := net.SplitHostPort(host); err == nil {
		host, settings.port, explicitPort = h, p, true
	} else if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	settings.hostname = host

	entry, _, err := LookupHost(configPath, host)
	if err != nil {
		// Unreadable config, just use defaults
		return settings
	}
	if entry.Hostname != "" {
		settings.hostname = entry.Hostname
	}
	if entry.Port != "" && !explicitPort {
		settings.port = entry.Port
	}
	return settings
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
// Returns the original content if no Match directive is found.
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		// Match directive check (case insensitive)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1 // 1-indexed line number
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}
