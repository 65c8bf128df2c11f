package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override: OLT_CACHE_DIR,
	// OLT_CACHE_TTL, OLT_LOCK_TIMEOUT and so on.
	EnvPrefix = "OLT"
	// GlobalConfigDir is the per-user config directory under $HOME.
	GlobalConfigDir = ".config/oltstat"
	// GlobalConfigFile is the config file name in either location.
	GlobalConfigFile = "config.yaml"
	// SystemConfigDir is checked after the per-user directory.
	SystemConfigDir = "/etc/oltstat"
)

// Load reads config from path (if non-empty), applies environment
// overrides on top, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found: "+path,
					"Check the path passed to --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	cfg, err := parseConfig(v, path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. ~/.config/oltstat/config.yaml
// 3. /etc/oltstat/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		userConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig, nil
		}
	}

	systemConfig := filepath.Join(SystemConfigDir, GlobalConfigFile)
	if _, err := os.Stat(systemConfig); err == nil {
		return systemConfig, nil
	}

	return "", nil
}

// LoadOrDefault finds and loads the config, falling back to defaults plus
// environment when no file exists.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// parseConfig converts viper config to our Config struct.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationHook,
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		where := "the environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the values in "+where)
	}

	cfg.Cache.Dir = ExpandTilde(cfg.Cache.Dir)
	cfg.Metrics.Dir = ExpandTilde(cfg.Metrics.Dir)
	cfg.Transport.KnownHosts = ExpandTilde(cfg.Transport.KnownHosts)
	cfg.Transport.SSHConfig = ExpandTilde(cfg.Transport.SSHConfig)
	cfg.Transport.SSHPass = ExpandTilde(cfg.Transport.SSHPass)
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// the file doesn't mention them.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("debug", false)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL.String())
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.file", "")
	v.SetDefault("lock.timeout", d.Lock.Timeout.String())
	v.SetDefault("transport.kind", d.Transport.Kind)
	v.SetDefault("transport.user", d.Transport.User)
	v.SetDefault("transport.connect_timeout", d.Transport.ConnectTimeout.String())
	v.SetDefault("transport.strict_host_keys", false)
	v.SetDefault("transport.known_hosts", "")
	v.SetDefault("transport.ssh_config", "")
	v.SetDefault("transport.sshpass", "")
	v.SetDefault("metrics.dir", "")
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Short form kept for existing monitoring setups
	_ = v.BindEnv("transport.kind", "OLT_TRANSPORT", "OLT_TRANSPORT_KIND")
}

var durationType = reflect.TypeOf(time.Duration(0))

// durationHook decodes durations from Go duration strings ("90s", "2m")
// or bare numbers of seconds (60, "60", 2.5).
func durationHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return ParseDuration(v)
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return data, nil
}

// ParseDuration accepts a number of seconds or a Go duration string.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid duration "+strconv.Quote(s),
			`Use seconds ("60") or a duration ("90s", "2m")`)
	}
	return d, nil
}
