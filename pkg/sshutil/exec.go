package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"

	"github.com/rileyhilliard/oltstat/internal/errors"
	"golang.org/x/crypto/ssh"
)

// RunScript starts a shell without a PTY, feeds it script on stdin, and
// waits for the remote side to close the session. It returns stdout,
// stderr, and the exit status.
//
// A session that ends without an exit status (many appliances just close
// the channel after "exit") reports exit code 0. Cancelling ctx closes the
// connection and returns ctx.Err() with exit code -1.
func (c *Client) RunScript(ctx context.Context, script string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrConnection,
			"Failed to create SSH session",
			"Connection may have been closed by the OLT.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdin = strings.NewReader(script)
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	if err := session.Shell(); err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrConnection,
			"Failed to start shell",
			"Check the account is allowed a CLI session on the OLT.")
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		// Closing the client unblocks Wait; drain it so the goroutine exits.
		_ = c.Client.Close()
		<-done
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, ctx.Err()
	case err = <-done:
	}

	exitCode = 0
	if err != nil {
		var exitErr *ssh.ExitError
		var missingErr *ssh.ExitMissingError
		switch {
		case stderrors.As(err, &exitErr):
			exitCode = exitErr.ExitStatus()
		case stderrors.As(err, &missingErr):
			// Channel closed without exit-status
		default:
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, errors.WrapWithCode(err, errors.ErrConnection,
				"SSH session ended abnormally",
				"The OLT closed the connection mid-transfer. Try again.")
		}
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitCode, nil
}
