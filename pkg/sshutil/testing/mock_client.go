// Package testing provides test doubles for pkg/sshutil: a MockClient with
// canned responses, and FakeOLT, an in-process SSH server that behaves like
// the appliance's CLI.
package testing

import (
	"context"
	"errors"
	"sync"

	"github.com/rileyhilliard/oltstat/pkg/sshutil"
)

// CommandResponse defines a canned response for RunScript.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error

	// Hang makes RunScript block until its context is done.
	Hang bool
}

// MockClient simulates an SSH connection for testing.
type MockClient struct {
	mu       sync.Mutex
	address  string
	closed   bool
	response CommandResponse
	scripts  []string
}

var _ sshutil.ScriptClient = (*MockClient)(nil)

// NewMockClient creates a mock client that returns no output and exit 0
// until SetResponse is called.
func NewMockClient(address string) *MockClient {
	return &MockClient{address: address}
}

// SetResponse sets what every RunScript call returns.
func (m *MockClient) SetResponse(resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = resp
}

// RunScript records script and returns the configured response.
func (m *MockClient) RunScript(ctx context.Context, script string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, errors.New("connection closed")
	}
	m.scripts = append(m.scripts, script)
	resp := m.response
	m.mu.Unlock()

	if resp.Hang {
		<-ctx.Done()
		return nil, nil, -1, ctx.Err()
	}
	return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
}

// Scripts returns every script passed to RunScript, in order.
func (m *MockClient) Scripts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.scripts...)
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}
