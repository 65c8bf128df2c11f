package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHost(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"10.0.0.1", "10.0.0.1"},
		{"  10.0.0.1  ", "10.0.0.1"},
		{"10.0.0.1:22", "10.0.0.1"},
		{"olt-1.example.net", "olt-1.example.net"},
		{"https://olt.example.net/status", "olt.example.net"},
		{"http://10.0.0.1:8080/", "10.0.0.1"},
		{"[fe80::1]:22", "fe80--1"},
		{"[fe80::1]", "fe80--1"},
		{"fe80::1", "fe80--1"},
		{"host/with/path", "host"},
		{"we ird$host", "we_ird_host"},
		{"..host..", "host"},
		{"", "unknown"},
		{"   ", "unknown"},
		{"///", "unknown"},
		{"$$$", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeHost(tt.input))
		})
	}
}
