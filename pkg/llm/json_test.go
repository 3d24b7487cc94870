package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain object",
			input:    `{"sql": "SELECT 1", "thought": "t"}`,
			expected: `{"sql": "SELECT 1", "thought": "t"}`,
		},
		{
			name:     "markdown fence",
			input:    "```json\n{\"satisfactory\": true, \"response\": \"ok\"}\n```",
			expected: `{"satisfactory": true, "response": "ok"}`,
		},
		{
			name:     "think tags before object",
			input:    "<think>the user wants {averages}</think>\n{\"sql\": null}",
			expected: `{"sql": null}`,
		},
		{
			name:     "prose around object",
			input:    "Here you go: {\"thought\": \"x\"} Hope that helps.",
			expected: `{"thought": "x"}`,
		},
		{
			name:     "braces inside strings",
			input:    `{"sql": "SELECT '{' FROM games", "thought": "}"}`,
			expected: `{"sql": "SELECT '{' FROM games", "thought": "}"}`,
		},
		{
			name:     "escaped quotes",
			input:    `{"sql": "SELECT \"team_id\" FROM games"}`,
			expected: `{"sql": "SELECT \"team_id\" FROM games"}`,
		},
		{
			name:     "nested object",
			input:    `{"a": {"b": [1, {"c": 2}]}}`,
			expected: `{"a": {"b": [1, {"c": 2}]}}`,
		},
		{
			name:     "array before object",
			input:    `[1, 2] {"a": 1}`,
			expected: `{"a": 1}`,
		},
		{
			name:     "stray brace in prose",
			input:    "Use {team} filters. {\"sql\": \"SELECT 1\", \"thought\": \"t\"}",
			expected: `{"sql": "SELECT 1", "thought": "t"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractJSON_Errors(t *testing.T) {
	for _, input := range []string{"", "no json here", `{"unterminated": `, `[1, 2]`} {
		_, err := ExtractJSON(input)
		assert.ErrorIs(t, err, ErrNoJSONObject, input)
	}
}

func TestParseJSONResponse(t *testing.T) {
	type evaluation struct {
		Satisfactory bool    `json:"satisfactory"`
		Response     *string `json:"response"`
	}

	got, err := ParseJSONResponse[evaluation]("```json\n{\"satisfactory\": true, \"response\": \"Avg 88.5\"}\n```")
	require.NoError(t, err)
	assert.True(t, got.Satisfactory)
	require.NotNil(t, got.Response)
	assert.Equal(t, "Avg 88.5", *got.Response)

	_, err = ParseJSONResponse[evaluation](`{"satisfactory": "maybe"}`)
	assert.Error(t, err)
}
