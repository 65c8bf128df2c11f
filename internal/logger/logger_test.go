package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamLogger_Verbosity(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		expectLog bool
	}{
		{name: "debug logs in verbose mode", verbose: true, expectLog: true},
		{name: "debug is silent by default", verbose: false, expectLog: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWriter(&buf, "[test]", tt.verbose)
			l.Debug("test message %s", "arg")
			l.Info("info %d", 1)

			if tt.expectLog {
				assert.Contains(t, buf.String(), "[test] test message arg")
				assert.Contains(t, buf.String(), "[test] info 1")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestStreamLogger_WarnAndErrorAlwaysWritten(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "[cache]", false)

	l.Warn("corrupt snapshot %s", "/tmp/x.stats.json")
	l.Error("boom")

	out := buf.String()
	assert.Contains(t, out, "[cache] WARN: corrupt snapshot /tmp/x.stats.json")
	assert.Contains(t, out, "[cache] ERROR: boom")
}

func TestStreamLogger_NoPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "", true)
	l.Debug("plain")
	assert.Equal(t, "plain\n", buf.String())
}

func TestNoop(t *testing.T) {
	l := Noop()
	require.NotNil(t, l)
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
	})
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %d", 1)
	l.Warn("lock: stale lock detected")

	require.Len(t, l.Messages, 2)
	assert.Equal(t, "debug", l.Messages[0].Level)
	assert.Equal(t, "debug 1", l.Messages[0].Message)
	assert.True(t, l.HasLevel("warn"))
	assert.False(t, l.HasLevel("error"))
	assert.True(t, l.Contains("stale lock"))
	assert.Equal(t, "debug 1\nlock: stale lock detected\n", l.Text())

	l.Clear()
	assert.Empty(t, l.Messages)
}

func TestBufferLogger_Concurrent(t *testing.T) {
	l := NewBufferLogger()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Info("hello")
		}()
	}
	wg.Wait()
	assert.Len(t, l.Messages, 20)
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "short passes through", input: "hello", max: 10, want: "hello"},
		{name: "newlines flattened", input: "a\nb\r\nc", max: 0, want: "a b  c"},
		{name: "escape neutralized", input: "\x1b[0m<OLT#", max: 0, want: ".[0m<OLT#"},
		{name: "truncated", input: strings.Repeat("x", 20), max: 5, want: "xxxxx..."},
		{name: "cut on rune boundary", input: "ééé", max: 3, want: "é..."},
		{name: "zero width dropped", input: "a\u200bb", max: 0, want: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.input, tt.max))
		})
	}
}
