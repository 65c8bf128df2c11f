package transport

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
	"github.com/rileyhilliard/oltstat/internal/secret"
	"github.com/rileyhilliard/oltstat/internal/util"
)

// waitDelay bounds how long Run waits for the output pipes to close once
// sshpass has exited or been killed.
const waitDelay = 2 * time.Second

// SSHPassRunner shells out to sshpass and the system ssh client. sshpass
// reads the password from the SSHPASS environment variable, so it never
// shows up in the process list.
type SSHPassRunner struct {
	User           string
	ConnectTimeout time.Duration

	// Binary is the sshpass executable; empty means "sshpass" on PATH.
	Binary string

	log logger.Logger
}

// NewSSHPassRunner creates a runner with the default account and timeouts.
func NewSSHPassRunner(log logger.Logger) *SSHPassRunner {
	if log == nil {
		log = logger.Noop()
	}
	return &SSHPassRunner{
		User:           DefaultUser,
		ConnectTimeout: 10 * time.Second,
		log:            log,
	}
}

// Args returns the argv for a session to host. It never contains the password.
func (r *SSHPassRunner) Args(host string) []string {
	binary := r.Binary
	if binary == "" {
		binary = "sshpass"
	}

	target, port := host, ""
	if h, p, err := net.SplitHostPort(host); err == nil {
		target, port = h, p
	} else if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		target = host[1 : len(host)-1]
	}

	connectTimeout := int(r.ConnectTimeout / time.Second)
	if connectTimeout <= 0 {
		connectTimeout = 10
	}

	args := []string{
		binary, "-e",
		"ssh",
		"-o", "PreferredAuthentications=password",
		"-o", "PubkeyAuthentication=no",
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "ConnectTimeout=" + strconv.Itoa(connectTimeout),
		"-T",
	}
	if port != "" {
		args = append(args, "-p", port)
	}
	return append(args, r.User+"@"+target)
}

func (r *SSHPassRunner) command(ctx context.Context, host, password, script string) *exec.Cmd {
	args := r.Args(host)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	// ssh can outlive a killed sshpass and hold the output pipes open.
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), "SSHPASS="+password)
	cmd.Stdin = strings.NewReader(script)
	return cmd
}

// Run executes script through sshpass. A non-zero exit from ssh is a Result,
// not an error.
func (r *SSHPassRunner) Run(ctx context.Context, host string, cred *secret.Credential, script string) (Result, error) {
	password, err := cred.Reveal()
	if err != nil {
		return Result{}, errors.WrapWithCode(err, errors.ErrConnection,
			"Couldn't unseal the device password", "")
	}

	cmd := r.command(ctx, host, password, script)
	r.log.Debug("olt: cmd=SSHPASS=%s %s", cred.Redacted(), util.ShellJoin(cmd.Args))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	res := Result{Output: stdout.String() + stderr.String(), User: r.User}
	if err != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(err, &exitErr) {
			return Result{}, errors.WrapWithCode(err, errors.ErrConnection,
				fmt.Sprintf("SSH command failed: %v", err),
				"Install sshpass, or use the built-in client: --transport native")
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}
