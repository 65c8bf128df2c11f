package doctor

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rileyhilliard/oltstat/internal/cache"
	"github.com/rileyhilliard/oltstat/internal/config"
	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/lock"
	"github.com/rileyhilliard/oltstat/internal/transport"
)

// ConfigCheck verifies that the config resolves and validates.
type ConfigCheck struct {
	ConfigPath string // Explicit path, or empty to search
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return "CONFIG" }

func (c *ConfigCheck) Run(context.Context) CheckResult {
	cfg, path, err := config.LoadOrDefault(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.OneLine(err),
			Suggestion: "Fix the config file or the OLT_* environment variables",
		}
	}

	where := "no config file, defaults and environment"
	if path != "" {
		where = path
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config valid (%s), transport %s", where, cfg.Transport.Kind),
	}
}

func (c *ConfigCheck) Fix() error {
	return nil // Config errors need a human
}

// CacheDirCheck verifies that the polling user can write snapshots and
// locks for Host.
type CacheDirCheck struct {
	Policy    cache.Policy
	Preferred string // cache.dir, may be empty
}

func (c *CacheDirCheck) Name() string     { return "cache_dir" }
func (c *CacheDirCheck) Category() string { return "CACHE" }

func (c *CacheDirCheck) Run(context.Context) CheckResult {
	dir := filepath.Dir(c.Policy.Path)

	if c.Preferred != "" && !isWritableDir(c.Preferred) {
		_, statErr := os.Stat(c.Preferred)
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("cache.dir %s is not a writable directory; snapshots go to %s", c.Preferred, dir),
			Suggestion: fmt.Sprintf("Run: sudo mkdir -p %[1]s && sudo chown -R zabbix:zabbix %[1]s", c.Preferred),
			Fixable:    os.IsNotExist(statErr),
		}
	}

	if !c.Policy.Enabled {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusWarn,
			Message: "Cache disabled; every poll opens an SSH session",
		}
	}

	fl := lock.New(lock.PathFor(c.Policy.Path, c.Policy.Host), c.Policy.Host, nil)
	switch err := fl.TryAcquire(); {
	case err == nil:
		_ = fl.Release()
	case stderrors.Is(err, lock.ErrLocked):
		// Another poller is fetching right now, which proves the directory works.
	default:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Cannot create locks in %s", dir),
			Suggestion: fmt.Sprintf("Run: sudo chown -R zabbix:zabbix %s", dir),
		}
	}

	if !isWritableDir(dir) {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Cache directory %s is not writable", dir),
			Suggestion: fmt.Sprintf("Run: sudo chown -R zabbix:zabbix %s", dir),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Snapshots: %s (ttl %s)", c.Policy.Path, c.Policy.TTL),
	}
}

func (c *CacheDirCheck) Fix() error {
	if c.Preferred == "" {
		return nil
	}
	return os.MkdirAll(c.Preferred, 0o755)
}

// TransportCheck verifies that the configured runner can start.
type TransportCheck struct {
	Options transport.Options

	// LookPath finds executables; nil means exec.LookPath.
	LookPath func(file string) (string, error)
}

func (c *TransportCheck) Name() string     { return "transport" }
func (c *TransportCheck) Category() string { return "TRANSPORT" }

func (c *TransportCheck) Run(context.Context) CheckResult {
	switch c.Options.Kind {
	case transport.KindSSHPass:
		lookPath := c.LookPath
		if lookPath == nil {
			lookPath = exec.LookPath
		}
		binary := c.Options.SSHPassBinary
		if binary == "" {
			binary = "sshpass"
		}
		path, err := lookPath(binary)
		if err != nil {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusFail,
				Message:    fmt.Sprintf("%s not found", binary),
				Suggestion: "Install sshpass (apt install sshpass), or use --transport native",
			}
		}
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("sshpass: %s", path),
		}

	case "", transport.KindNative:
		if c.Options.StrictHostKeys {
			known := c.Options.KnownHostsPath
			if known == "" {
				home, _ := os.UserHomeDir()
				known = filepath.Join(home, ".ssh", "known_hosts")
			}
			if _, err := os.Stat(known); err != nil {
				return CheckResult{
					Name:       c.Name(),
					Status:     StatusFail,
					Message:    fmt.Sprintf("strict_host_keys is on but %s is missing", known),
					Suggestion: fmt.Sprintf("Accept the OLT's key once: ssh-keyscan <host> >> %s", known),
				}
			}
		}
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "Built-in SSH client",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusFail,
		Message: fmt.Sprintf("Unknown transport %q", c.Options.Kind),
	}
}

func (c *TransportCheck) Fix() error {
	return nil
}

// MetricsDirCheck verifies the textfile directory when metrics are on.
type MetricsDirCheck struct {
	Dir string
}

func (c *MetricsDirCheck) Name() string     { return "metrics_dir" }
func (c *MetricsDirCheck) Category() string { return "METRICS" }

func (c *MetricsDirCheck) Run(context.Context) CheckResult {
	if c.Dir == "" {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "Metrics output disabled",
		}
	}

	if _, err := os.Stat(c.Dir); os.IsNotExist(err) {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s does not exist yet; the first poll creates it", c.Dir),
			Suggestion: "Create it now with --fix",
			Fixable:    true,
		}
	}

	if !isWritableDir(c.Dir) {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s is not a writable directory", c.Dir),
			Suggestion: fmt.Sprintf("Run: sudo chown zabbix %s", c.Dir),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Metrics: %s", c.Dir),
	}
}

func (c *MetricsDirCheck) Fix() error {
	if c.Dir == "" {
		return nil
	}
	return os.MkdirAll(c.Dir, 0o755)
}

func isWritableDir(dir string) bool {
	st, err := os.Stat(dir)
	return err == nil && st.IsDir() && cache.Writable(dir)
}
