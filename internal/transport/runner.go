package transport

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
)

// Runner kinds accepted by NewRunner.
const (
	KindNative  = "native"
	KindSSHPass = "sshpass"
)

// Options selects and configures a runner.
type Options struct {
	Kind           string
	User           string
	ConnectTimeout time.Duration

	// Native only.
	StrictHostKeys bool
	KnownHostsPath string
	SSHConfigPath  string

	// sshpass only.
	SSHPassBinary string
}

// NewRunner builds the runner named by opts.Kind. An empty kind means native.
func NewRunner(opts Options, log logger.Logger) (Runner, error) {
	switch opts.Kind {
	case "", KindNative:
		r := NewNativeRunner(log)
		if opts.User != "" {
			r.User = opts.User
		}
		if opts.ConnectTimeout > 0 {
			r.ConnectTimeout = opts.ConnectTimeout
		}
		r.StrictHostKeys = opts.StrictHostKeys
		r.KnownHostsPath = opts.KnownHostsPath
		r.SSHConfigPath = opts.SSHConfigPath
		return r, nil
	case KindSSHPass:
		r := NewSSHPassRunner(log)
		if opts.User != "" {
			r.User = opts.User
		}
		if opts.ConnectTimeout > 0 {
			r.ConnectTimeout = opts.ConnectTimeout
		}
		r.Binary = opts.SSHPassBinary
		return r, nil
	default:
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("unknown transport %q", opts.Kind),
			fmt.Sprintf("Use %q or %q", KindNative, KindSSHPass))
	}
}
