package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config is the resolved configuration for one invocation.
type Config struct {
	Version   int             `yaml:"version" mapstructure:"version" validate:"gte=0"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Lock      LockConfig      `yaml:"lock" mapstructure:"lock"`
	Transport TransportConfig `yaml:"transport" mapstructure:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Debug     bool            `yaml:"debug" mapstructure:"debug"`
}

// CacheConfig controls where snapshots live and how long they stay fresh.
type CacheConfig struct {
	// Enabled toggles the snapshot cache. --no-cache turns it off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// TTL is how old a snapshot may be and still be served.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`

	// Dir is the preferred cache directory. It is used only if it is a
	// writable directory; otherwise the built-in candidates are tried.
	Dir string `yaml:"dir" mapstructure:"dir" validate:"omitempty,abspath"`

	// File overrides the snapshot path outright. Supports ${HOST},
	// ${USER} and ${HOME}.
	File string `yaml:"file" mapstructure:"file"`
}

// LockConfig controls waiting on another process's fetch.
type LockConfig struct {
	// Timeout is how long to wait before fetching without the lock.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// TransportConfig selects and configures the session runner.
type TransportConfig struct {
	// Kind is "native" (built-in SSH client) or "sshpass".
	Kind string `yaml:"kind" mapstructure:"kind" validate:"oneof=native sshpass"`

	// User is the OLT account.
	User string `yaml:"user" mapstructure:"user" validate:"required"`

	// ConnectTimeout bounds the TCP connect and SSH handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" validate:"gt=0,lte=30s"`

	// StrictHostKeys verifies the OLT against KnownHosts (native only).
	StrictHostKeys bool `yaml:"strict_host_keys" mapstructure:"strict_host_keys"`

	// KnownHosts defaults to ~/.ssh/known_hosts.
	KnownHosts string `yaml:"known_hosts" mapstructure:"known_hosts"`

	// SSHConfig defaults to ~/.ssh/config. Only HostName and Port are used.
	SSHConfig string `yaml:"ssh_config" mapstructure:"ssh_config"`

	// SSHPass is the sshpass executable (sshpass only).
	SSHPass string `yaml:"sshpass" mapstructure:"sshpass"`
}

// MetricsConfig controls the node_exporter textfile output.
type MetricsConfig struct {
	// Dir receives one .prom file per host. Empty disables metrics output.
	Dir string `yaml:"dir" mapstructure:"dir" validate:"omitempty,abspath"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Cache: CacheConfig{
			Enabled: true,
			TTL:     60 * time.Second,
		},
		Lock: LockConfig{
			Timeout: 30 * time.Second,
		},
		Transport: TransportConfig{
			Kind:           "native",
			User:           "admin",
			ConnectTimeout: 10 * time.Second,
		},
	}
}
