package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrExtract,
		ErrConnection,
		ErrPersist,
		ErrPath,
		ErrLock,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "extraction error",
			code:       ErrExtract,
			message:    "no JSON found in OLT output (got 12 bytes after cleaning)",
			suggestion: "Run with --debug to see the cleaned output",
		},
		{
			name:       "connection error",
			code:       ErrConnection,
			message:    "SSH error: connection refused by 10.0.0.1",
			suggestion: "",
		},
		{
			name:       "persist error",
			code:       ErrPersist,
			message:    "Cache directory /var/cache/cambium-olt is not writable by user zabbix",
			suggestion: "Run: sudo chown -R zabbix:zabbix /var/cache/cambium-olt",
		},
		{
			name:       "path error",
			code:       ErrPath,
			message:    "invalid path near: [x]",
			suggestion: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		expectedParts []string
		notExpected   []string
	}{
		{
			name:          "message and suggestion",
			err:           New(ErrConfig, "Invalid configuration", "Check oltstat.yaml syntax"),
			expectedParts: []string{"✗", "Invalid configuration", "Check oltstat.yaml syntax"},
		},
		{
			name:          "with cause",
			err:           WrapWithCode(errors.New("disk full"), ErrPersist, "Cannot write cache file", ""),
			expectedParts: []string{"Cannot write cache file", "disk full"},
		},
		{
			name:          "without suggestion",
			err:           New(ErrPath, "invalid path near: ]", ""),
			expectedParts: []string{"invalid path near: ]"},
			notExpected:   []string{"\n\n  \n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := tt.err.Error()
			for _, part := range tt.expectedParts {
				assert.Contains(t, output, part)
			}
			for _, part := range tt.notExpected {
				assert.NotContains(t, output, part)
			}
		})
	}
}

func TestLine(t *testing.T) {
	err := WrapWithCode(errors.New("permission denied\nopen /x"), ErrPersist,
		"Cannot write cache file /x", "Check permissions.")

	line := err.Line()
	assert.NotContains(t, line, "\n")
	assert.Equal(t, "Cannot write cache file /x: permission denied open /x: Check permissions.", line)
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "", OneLine(nil))
	assert.Equal(t, "plain error", OneLine(errors.New("plain\n  error")))
	assert.Equal(t, "SSH error: refused", OneLine(New(ErrConnection, "SSH error: refused", "")))
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying network error")
	wrapped := Wrap(cause, "SSH connection failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrConnection, wrapped.Code, "Wrap should default to ErrConnection code")
	assert.Equal(t, "SSH connection failed", wrapped.Message)
	assert.Equal(t, cause, wrapped.Cause)
}

func TestErrorsIsAndAs(t *testing.T) {
	cause := errors.New("specific error")
	wrapped := WrapWithCode(cause, ErrLock, "Lock error", "")

	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, cause, wrapped.Unwrap())

	var oErr *Error
	require.True(t, errors.As(wrapped, &oErr))
	assert.Equal(t, ErrLock, oErr.Code)
}

func TestIsCode(t *testing.T) {
	err := New(ErrConfig, "Config error", "")

	assert.True(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(err, ErrConnection))
	assert.False(t, IsCode(errors.New("standard error"), ErrConfig))
	assert.False(t, IsCode(nil, ErrConfig))
}

func TestErrorMessageStructure(t *testing.T) {
	err := WrapWithCode(
		errors.New("dial tcp 10.0.0.1:22: i/o timeout"),
		ErrConnection,
		"Can't reach '10.0.0.1'",
		"Check IP address and network connectivity",
	)

	lines := strings.Split(err.Error(), "\n")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[0]), "✗"))
	assert.Contains(t, lines[0], "Can't reach '10.0.0.1'")
}

func TestExitError(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		wantMsg string
	}{
		{name: "runtime failure", code: 1, wantMsg: "exit code 1"},
		{name: "usage failure", code: 2, wantMsg: "exit code 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewExitError(tt.code)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOk   bool
	}{
		{name: "ExitError returns code", err: NewExitError(2), wantCode: 2, wantOk: true},
		{name: "standard error returns false", err: errors.New("standard error")},
		{name: "nil error returns false", err: nil},
		{name: "structured Error returns false", err: New(ErrPath, "test", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := GetExitCode(tt.err)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
