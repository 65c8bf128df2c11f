// Package transport runs the OLT command script over one remote session and
// turns the transcript into a coerced document.
package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/oltstat/internal/document"
	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/extract"
	"github.com/rileyhilliard/oltstat/internal/logger"
	"github.com/rileyhilliard/oltstat/internal/secret"
)

// Script is fed to the OLT shell on stdin. "info" makes the CLI print its
// prompt so the JSON starts on a fresh line.
const Script = "info\nshow all\nexit\n"

// SessionTimeout bounds one whole session, connect included.
const SessionTimeout = 30 * time.Second

// DefaultUser is the OLT account the CLI logs in as.
const DefaultUser = "admin"

// Request names the device to read and the password to log in with.
type Request struct {
	Host       string
	Credential *secret.Credential
}

// Result is what a runner got back from one session.
type Result struct {
	// Output is stdout followed by stderr.
	Output string

	// ExitCode is the remote (or ssh client) exit status.
	ExitCode int

	// Detail is the client-side failure text when the session never got
	// far enough to produce output, for example a refused connection.
	Detail string

	// User is the account the session logged in as. Empty means DefaultUser.
	User string
}

// Runner executes a script against a host. It returns an error only when no
// Result could be produced at all: the context ended, or the client could
// not be started.
type Runner interface {
	Run(ctx context.Context, host string, cred *secret.Credential, script string) (Result, error)
}

// Fetcher is what the collector needs from a transport.
type Fetcher interface {
	FetchAll(ctx context.Context, req Request) (any, error)
}

// Transport fetches and decodes the full device document.
type Transport struct {
	runner    Runner
	extractor *extract.Extractor
	log       logger.Logger

	// Timeout overrides SessionTimeout when positive.
	Timeout time.Duration
}

var _ Fetcher = (*Transport)(nil)

// New creates a Transport around runner.
func New(runner Runner, log logger.Logger) *Transport {
	if log == nil {
		log = logger.Noop()
	}
	return &Transport{
		runner:    runner,
		extractor: extract.New(log),
		log:       log,
	}
}

// FetchAll runs Script on req.Host and returns the coerced document.
// Session failures are CONNECTION errors; output that holds no usable JSON
// is an EXTRACT error. Nothing is retried.
func (t *Transport) FetchAll(ctx context.Context, req Request) (any, error) {
	raw, err := t.fetchRaw(ctx, req)
	if err != nil {
		return nil, err
	}

	span, err := t.extractor.ToJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := extract.Validate(span); err != nil {
		return nil, err
	}

	doc, err := document.Decode([]byte(span))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrExtract,
			"OLT output is not a JSON document",
			"Run with --debug to see what the device sent")
	}
	return document.Coerce(doc), nil
}

func (t *Transport) timeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return SessionTimeout
}

func (t *Transport) fetchRaw(ctx context.Context, req Request) (string, error) {
	t.log.Debug("olt: stdin_script=%q", Script)

	timeout := t.timeout()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := t.runner.Run(runCtx, req.Host, req.Credential, Script)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if stderrors.Is(err, context.DeadlineExceeded) {
			return "", errors.New(errors.ErrConnection,
				fmt.Sprintf("SSH connection to %s timed out after %d seconds", req.Host, int(timeout.Seconds())),
				"The OLT accepted the connection but didn't finish; check its CLI responds")
		}
		var structured *errors.Error
		if stderrors.As(err, &structured) {
			return "", err
		}
		return "", errors.WrapWithCode(err, errors.ErrConnection,
			"SSH command failed: "+errors.OneLine(err), "")
	}

	if res.ExitCode != 0 {
		return "", classify(req.Host, res)
	}

	t.log.Debug("olt: fetched bytes=%d returncode=%d", len(res.Output), res.ExitCode)
	if strings.TrimSpace(res.Output) == "" {
		return "", errors.New(errors.ErrConnection,
			fmt.Sprintf("SSH to %s succeeded but returned no output", req.Host),
			"Check the account is allowed to run 'show all' on the OLT")
	}
	return res.Output, nil
}
