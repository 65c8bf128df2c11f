package config

import (
	"github.com/rileyhilliard/oltstat/internal/cache"
	"github.com/rileyhilliard/oltstat/internal/transport"
)

// Policy resolves the cache policy for host: the explicit cache.file if
// set, otherwise the default per-host file under the first usable cache
// directory.
func (c *Config) Policy(host string) cache.Policy {
	path := Expand(c.Cache.File, host)
	if path == "" {
		path = cache.DefaultPath(host, c.Cache.Dir)
	}
	return cache.Policy{
		Path:    path,
		TTL:     c.Cache.TTL,
		Enabled: c.Cache.Enabled,
		Host:    host,
	}
}

// TransportOptions maps the transport section onto runner options.
func (c *Config) TransportOptions() transport.Options {
	return transport.Options{
		Kind:           c.Transport.Kind,
		User:           c.Transport.User,
		ConnectTimeout: c.Transport.ConnectTimeout,
		StrictHostKeys: c.Transport.StrictHostKeys,
		KnownHostsPath: c.Transport.KnownHosts,
		SSHConfigPath:  c.Transport.SSHConfig,
		SSHPassBinary:  c.Transport.SSHPass,
	}
}
