package logging

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"url credentials", "postgres://courtside:s3cret@db:5432/courtside?sslmode=disable", "postgres://[REDACTED]@[REDACTED]/courtside?sslmode=disable"},
		{"key value password", "host=db user=courtside password=s3cret dbname=x", "host=db user=courtside password=[REDACTED] dbname=x"},
		{"no credentials", "postgres://db:5432/courtside", "postgres://db:5432/courtside"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeConnectionString(tt.input))
		})
	}
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		notContain string
		contain    string
	}{
		{"nil", nil, "", ""},
		{"password", errors.New("connect failed: password=hunter2"), "hunter2", "password=[REDACTED]"},
		{"bearer token", errors.New("bad header Bearer aaa.bbb.ccc"), "aaa.bbb.ccc", "Bearer [REDACTED]"},
		{"api key param", errors.New("GET /v1?api_key=abcdefghijklmnopqrstuvwxyz"), "abcdefghijklmnopqrstuvwxyz", "api_key=[REDACTED]"},
		{"openai key", errors.New("Incorrect API key provided: sk-proj-abcdefghijklmnop1234"), "sk-proj-abcdefghijklmnop1234", "[REDACTED]"},
		{"anthropic key", errors.New("invalid x-api-key sk-ant-REDACTED"), "abcdefghijklmnopqrst", "[REDACTED]"},
		{"url credentials", errors.New("dial postgres://u:p@db:5432/x failed"), "u:p@", "://[REDACTED]@[REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeError(tt.err)
			if tt.err == nil {
				assert.Empty(t, got)
				return
			}
			assert.NotContains(t, got, tt.notContain)
			assert.Contains(t, got, tt.contain)
		})
	}
}

func TestSanitizeQuery(t *testing.T) {
	assert.Empty(t, SanitizeQuery(""))
	assert.Equal(t, "SELECT * FROM games WHERE team_id = 50", SanitizeQuery("SELECT * FROM games WHERE team_id = 50"))

	long := "SELECT " + strings.Repeat("a, ", 400) + "b FROM games"
	got := SanitizeQuery(long)
	assert.Len(t, got, MaxQueryLogLength+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "exact", TruncateString("exact", 5))
	assert.Equal(t, "abc...", TruncateString("abcdef", 3))
	// "é" is two bytes; cutting at byte 2 would split it.
	assert.Equal(t, "a...", TruncateString("aéb", 2))
}
