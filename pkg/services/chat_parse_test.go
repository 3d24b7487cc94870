package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSQLResponse(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantSQL     string
		wantNoSQL   bool
		wantThought string
		wantContext string
	}{
		{
			name:        "complete response",
			raw:         `{"sql": "SELECT 1", "thought": "simple", "tactical_context": "none"}`,
			wantSQL:     "SELECT 1",
			wantThought: "simple",
			wantContext: "none",
		},
		{
			name:        "null sql is conversational",
			raw:         `{"sql": null, "thought": "greeting", "tactical_context": "Hello coach!"}`,
			wantNoSQL:   true,
			wantThought: "greeting",
			wantContext: "Hello coach!",
		},
		{
			name:        "blank sql is conversational",
			raw:         `{"sql": "   ", "thought": "t"}`,
			wantNoSQL:   true,
			wantThought: "t",
		},
		{
			name:        "wrapped in markdown fence",
			raw:         "```json\n{\"sql\": \"SELECT 2\", \"thought\": \"fenced\"}\n```",
			wantSQL:     "SELECT 2",
			wantThought: "fenced",
		},
		{
			name:        "mistyped narrative fields",
			raw:         `{"sql": "SELECT 3", "thought": 42, "tactical_context": true}`,
			wantSQL:     "SELECT 3",
			wantThought: "42",
			wantContext: "true",
		},
		{
			name:      "missing fields",
			raw:       `{}`,
			wantNoSQL: true,
		},
		{
			name:      "not json",
			raw:       "I cannot help with that.",
			wantNoSQL: true,
		},
		{
			name:      "empty",
			raw:       "",
			wantNoSQL: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSQLResponse(tt.raw)
			if tt.wantNoSQL {
				assert.Nil(t, got.SQL)
				assert.False(t, got.HasSQL())
			} else {
				require.NotNil(t, got.SQL)
				assert.Equal(t, tt.wantSQL, *got.SQL)
			}
			assert.Equal(t, tt.wantThought, got.Thought)
			assert.Equal(t, tt.wantContext, got.TacticalContext)
		})
	}
}

func TestParseEvaluationResponse(t *testing.T) {
	t.Run("satisfactory with narrative", func(t *testing.T) {
		got := ParseEvaluationResponse(`{"satisfactory": true, "response": "Your team averages 78.4 points.", "new_sql": null}`)
		assert.True(t, got.Satisfactory)
		require.NotNil(t, got.Response)
		assert.Equal(t, "Your team averages 78.4 points.", *got.Response)
		assert.Nil(t, got.NewSQL)
	})

	t.Run("corrective sql", func(t *testing.T) {
		got := ParseEvaluationResponse(`{"satisfactory": false, "response": null, "new_sql": "SELECT 2"}`)
		assert.False(t, got.Satisfactory)
		assert.Nil(t, got.Response)
		require.NotNil(t, got.NewSQL)
		assert.Equal(t, "SELECT 2", *got.NewSQL)
	})

	t.Run("string boolean", func(t *testing.T) {
		got := ParseEvaluationResponse(`{"satisfactory": "true", "response": "ok"}`)
		assert.True(t, got.Satisfactory)
	})

	t.Run("garbage falls back to unsatisfactory", func(t *testing.T) {
		got := ParseEvaluationResponse("not json at all")
		assert.False(t, got.Satisfactory)
		assert.Nil(t, got.Response)
		assert.Nil(t, got.NewSQL)
	})
}
