package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Request scope
// ============================================================================

// Row is a single result row keyed by column name.
type Row map[string]any

// ChatScope is the tenant boundary for one chat request.
// Both team ids are resolved server-side before generation starts and never change
// for the lifetime of the request.
type ChatScope struct {
	UserID         string
	UserTeamID     int
	OpponentTeamID *int
}

// AllowedTeamIDs returns the user's team followed by the next opponent, if any.
func (s ChatScope) AllowedTeamIDs() []int {
	ids := []int{s.UserTeamID}
	if s.OpponentTeamID != nil && *s.OpponentTeamID != s.UserTeamID {
		ids = append(ids, *s.OpponentTeamID)
	}
	return ids
}

// Allows reports whether id is inside the scope.
func (s ChatScope) Allows(id int) bool {
	return slices.Contains(s.AllowedTeamIDs(), id)
}

// QueryRequest is a coach question bound to its scope.
type QueryRequest struct {
	Question string
	Scope    ChatScope
	// ClientIP is carried for security audit events only.
	ClientIP string
}

// ============================================================================
// Model responses
// ============================================================================

// SQLResponse is the structured output of the SQL generator.
// A nil SQL means the model answered conversationally.
type SQLResponse struct {
	SQL             *string `json:"sql"`
	Thought         string  `json:"thought"`
	TacticalContext string  `json:"tactical_context"`
}

// HasSQL reports whether the response carries a statement to execute.
func (r SQLResponse) HasSQL() bool {
	return r.SQL != nil && *r.SQL != ""
}

// EvaluationResponse is the structured output of the result evaluator.
type EvaluationResponse struct {
	Satisfactory bool    `json:"satisfactory"`
	Response     *string `json:"response"`
	NewSQL       *string `json:"new_sql"`
}

// ExecutionResult is what the query executor hands back to the pipeline.
// Error is set when the database rejected the statement; it is not a Go error because
// execution failures are fed to the evaluator instead of aborting the request.
type ExecutionResult struct {
	Rows  []Row
	Error string
}

// ============================================================================
// Iteration trace
// ============================================================================

// IterationLogEntry records one attempt of the chat pipeline.
type IterationLogEntry struct {
	Iteration int     `json:"iteration"`
	Thought   string  `json:"thought"`
	SQL       *string `json:"sql"`
	Result    string  `json:"result,omitempty"`
}

// ============================================================================
// Final result
// ============================================================================

// ChatResultType tells the client how to render a chat answer.
type ChatResultType string

const (
	ChatResultConversational ChatResultType = "conversational"
	ChatResultData           ChatResultType = "data"
	ChatResultError          ChatResultType = "error"
)

// ChatResult is the assembled answer for one question.
type ChatResult struct {
	Type            ChatResultType
	Answer          string
	Thought         string
	TacticalContext string
	SQL             string
	Data            []Row
	Iterations      []IterationLogEntry
}

// ChatLogEntry is the persisted record of an answered question.
type ChatLogEntry struct {
	ID             uuid.UUID      `json:"id"`
	UserID         string         `json:"user_id"`
	TeamID         int            `json:"team_id"`
	Question       string         `json:"question"`
	Thought        string         `json:"thought"`
	SQL            string         `json:"sql"`
	Answer         string         `json:"answer"`
	ResultType     ChatResultType `json:"result_type"`
	IterationCount int            `json:"iteration_count"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewChatLogEntry builds the log record for a finished request.
func NewChatLogEntry(req QueryRequest, result *ChatResult) *ChatLogEntry {
	return &ChatLogEntry{
		ID:             uuid.New(),
		UserID:         req.Scope.UserID,
		TeamID:         req.Scope.UserTeamID,
		Question:       req.Question,
		Thought:        result.Thought,
		SQL:            result.SQL,
		Answer:         result.Answer,
		ResultType:     result.Type,
		IterationCount: len(result.Iterations),
		CreatedAt:      time.Now().UTC(),
	}
}
