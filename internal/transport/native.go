package transport

import (
	"context"
	"time"

	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
	"github.com/rileyhilliard/oltstat/internal/secret"
	"github.com/rileyhilliard/oltstat/pkg/sshutil"
)

// dialExitCode is reported when the native client fails before a session
// exists, matching what the ssh binary exits with.
const dialExitCode = 255

// DialFunc opens a connection. Tests swap it for a mock.
type DialFunc func(ctx context.Context, host string, opts sshutil.Options) (sshutil.ScriptClient, error)

// NativeRunner talks SSH in-process.
type NativeRunner struct {
	User           string
	ConnectTimeout time.Duration
	StrictHostKeys bool
	KnownHostsPath string
	SSHConfigPath  string

	dial DialFunc
	log  logger.Logger
}

// NewNativeRunner creates a runner that dials with pkg/sshutil.
func NewNativeRunner(log logger.Logger) *NativeRunner {
	if log == nil {
		log = logger.Noop()
	}
	return &NativeRunner{
		User:           DefaultUser,
		ConnectTimeout: sshutil.DefaultConnectTimeout,
		dial: func(ctx context.Context, host string, opts sshutil.Options) (sshutil.ScriptClient, error) {
			return sshutil.Dial(ctx, host, opts)
		},
		log: log,
	}
}

// WithDialer replaces the dial function.
func (r *NativeRunner) WithDialer(dial DialFunc) *NativeRunner {
	r.dial = dial
	return r
}

// Run dials host, runs script in a shell and returns the transcript.
func (r *NativeRunner) Run(ctx context.Context, host string, cred *secret.Credential, script string) (Result, error) {
	opts := sshutil.Options{
		User:           r.User,
		Password:       cred.Reveal,
		ConnectTimeout: r.ConnectTimeout,
		StrictHostKeys: r.StrictHostKeys,
		KnownHostsPath: r.KnownHostsPath,
		SSHConfigPath:  r.SSHConfigPath,
	}
	r.log.Debug("olt: ssh %s@%s password=%s strict_host_keys=%t", r.User, host, cred.Redacted(), r.StrictHostKeys)

	client, err := r.dial(ctx, host, opts)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{ExitCode: dialExitCode, Detail: errors.OneLine(err), User: r.User}, nil
	}
	defer client.Close()

	stdout, stderr, code, err := client.RunScript(ctx, script)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{
			Output:   string(stdout) + string(stderr),
			ExitCode: dialExitCode,
			Detail:   errors.OneLine(err),
			User:     r.User,
		}, nil
	}

	return Result{Output: string(stdout) + string(stderr), ExitCode: code, User: r.User}, nil
}
