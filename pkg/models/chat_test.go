package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestChatScope_AllowedTeamIDs(t *testing.T) {
	opponent := 77
	same := 50

	tests := []struct {
		name     string
		scope    ChatScope
		expected []int
	}{
		{"no opponent", ChatScope{UserTeamID: 50}, []int{50}},
		{"with opponent", ChatScope{UserTeamID: 50, OpponentTeamID: &opponent}, []int{50, 77}},
		{"opponent equals own team", ChatScope{UserTeamID: 50, OpponentTeamID: &same}, []int{50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.scope.AllowedTeamIDs())
		})
	}
}

func TestChatScope_Allows(t *testing.T) {
	opponent := 77
	scope := ChatScope{UserTeamID: 50, OpponentTeamID: &opponent}

	assert.True(t, scope.Allows(50))
	assert.True(t, scope.Allows(77))
	assert.False(t, scope.Allows(999))
}

func TestSQLResponse_HasSQL(t *testing.T) {
	empty := ""
	sql := "SELECT 1"

	assert.False(t, SQLResponse{}.HasSQL())
	assert.False(t, SQLResponse{SQL: &empty}.HasSQL())
	assert.True(t, SQLResponse{SQL: &sql}.HasSQL())
}

func TestNewChatLogEntry(t *testing.T) {
	req := QueryRequest{
		Question: "What is my team's average points?",
		Scope:    ChatScope{UserID: "user-1", UserTeamID: 50},
	}
	result := &ChatResult{
		Type:       ChatResultData,
		Answer:     "Your team averages 78.4 points.",
		Thought:    "average of points",
		SQL:        "SELECT 1",
		Iterations: []IterationLogEntry{{Iteration: 1}, {Iteration: 2}},
	}

	entry := NewChatLogEntry(req, result)

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, 50, entry.TeamID)
	assert.Equal(t, 2, entry.IterationCount)
	assert.Equal(t, ChatResultData, entry.ResultType)
	assert.False(t, entry.CreatedAt.IsZero())
}
