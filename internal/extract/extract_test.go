package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rileyhilliard/oltstat/internal/errors"
	"github.com/rileyhilliard/oltstat/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJSON(t *testing.T) {
	payload := `{"Ethernet":[{"Name":"eth0","TxBytes":"100"}]}`

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "prompt before and after",
			raw:  "<dev#show all\n" + payload + "\n<dev#",
			want: payload,
		},
		{
			name: "ansi coloured prompts from the device",
			raw:  "\x1b[0m<OLT-Mock#\x1b[0m info\n\x1b[0m<OLT-Mock#\x1b[0m \x1b[0m" + payload + "\n\x1b[0m<OLT-Mock#\x1b[0m Goodbye\n",
			want: payload,
		},
		{
			name: "terminal warning and banner with braces",
			raw: "Warning: Input is not a terminal (stdin is not a tty).\n" +
				"Welcome {admin}, type help for commands\n" +
				"<OLT#show all\n" + payload + "\n",
			want: payload,
		},
		{
			name: "pretty printed payload spanning lines",
			raw:  "<OLT#show all\n{\n  \"System\": {\n    \"Uptime\": \"12\"\n  }\n}\n<OLT#exit\n",
			want: "{\n  \"System\": {\n    \"Uptime\": \"12\"\n  }\n}",
		},
		{
			name: "crlf line endings",
			raw:  "<OLT#show all\r\n" + payload + "\r\n<OLT#\r\n",
			want: payload,
		},
		{
			name: "prompt repeated at line start",
			raw:  "<OLT#<OLT#" + payload + "\n",
			want: payload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(nil).ToJSON(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)))
		})
	}
}

func TestToJSON_NoPayload(t *testing.T) {
	log := logger.NewBufferLogger()
	_, err := New(log).ToJSON("<OLT#show all\nUnknown command: show all\n<OLT#")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExtract))
	assert.Contains(t, err.Error(), "no JSON found in OLT output")
	assert.Contains(t, err.Error(), "bytes after cleaning")
	assert.True(t, log.Contains("Unknown command"), "cleaned output should be logged for diagnosis")
}

func TestToJSON_EmptyInput(t *testing.T) {
	_, err := New(nil).ToJSON("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 0 bytes after cleaning")
}

func TestToJSON_PreviewIsBounded(t *testing.T) {
	log := logger.NewBufferLogger()
	_, err := New(log).ToJSON(strings.Repeat("noise ", 500))
	require.Error(t, err)

	require.Len(t, log.Messages, 1)
	assert.Less(t, len(log.Messages[0].Message), PreviewBytes+100)
	assert.True(t, strings.HasSuffix(log.Messages[0].Message, "..."))
}

func TestClean(t *testing.T) {
	raw := "\x1b[1;32m<OLT#\x1b[0m show all   \n\n   \n[1, 2]\n<OLT#"
	assert.Equal(t, "[1, 2]", Clean(raw))
}

func TestClean_NoJSONLineKeepsEverything(t *testing.T) {
	raw := "<OLT#help\nshow all  - dump everything\nexit"
	assert.Equal(t, "help\nshow all  - dump everything\nexit", Clean(raw))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(`{"a":1}`))

	err := Validate(`{"a":1} trailing {"b":`)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExtract))
}
