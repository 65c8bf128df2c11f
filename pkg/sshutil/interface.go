package sshutil

import "context"

// ScriptClient is a connection that can run a stdin script in a remote
// shell. Both the real Client and the mock in pkg/sshutil/testing satisfy
// it, so transport code can be tested without a network.
type ScriptClient interface {
	// RunScript feeds script to a remote shell and returns stdout, stderr
	// and the exit code. Exit code is -1 if the session failed outright.
	RunScript(ctx context.Context, script string) (stdout, stderr []byte, exitCode int, err error)

	// Close closes the SSH connection.
	Close() error

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}

var _ ScriptClient = (*Client)(nil)
