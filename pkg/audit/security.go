// Package audit provides security audit logging for SIEM consumption.
// Events are written as structured JSON on the "security_audit" logger so they can
// be filtered and alerted on separately from application logs.
package audit

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/courtside-analytics/courtside/pkg/logging"
	"github.com/courtside-analytics/courtside/pkg/models"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSafetyViolation is logged when generated SQL is not a read-only SELECT.
	EventSafetyViolation SecurityEventType = "safety_violation"
	// EventScopeViolation is logged when generated SQL references a team outside the request scope.
	EventScopeViolation SecurityEventType = "scope_violation"
	// EventSuspiciousQuestion is logged when libinjection fingerprints the raw question as SQL injection.
	EventSuspiciousQuestion SecurityEventType = "suspicious_question"
)

// Severity levels.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SecurityEvent represents an auditable security event.
type SecurityEvent struct {
	Timestamp      time.Time         `json:"timestamp"`
	EventType      SecurityEventType `json:"event_type"`
	UserID         string            `json:"user_id,omitempty"`
	UserTeamID     int               `json:"user_team_id"`
	OpponentTeamID *int              `json:"opponent_team_id"`
	ClientIP       string            `json:"client_ip,omitempty"`
	Details        any               `json:"details"`
	Severity       string            `json:"severity"`
}

// SafetyViolationDetails describes a rejected non-read-only statement.
type SafetyViolationDetails struct {
	SQL       string `json:"sql"`
	Keyword   string `json:"keyword,omitempty"`
	Reason    string `json:"reason"`
	Iteration int    `json:"iteration"`
}

// ScopeViolationDetails describes a statement that reached outside the team scope.
type ScopeViolationDetails struct {
	SQL         string `json:"sql"`
	Column      string `json:"column"`
	OffendingID int    `json:"offending_id"`
	AllowedIDs  []int  `json:"allowed_ids"`
	Reason      string `json:"reason"`
	Iteration   int    `json:"iteration"`
}

// SuspiciousQuestionDetails carries the libinjection fingerprint of a question.
type SuspiciousQuestionDetails struct {
	Question    string `json:"question"`
	Fingerprint string `json:"fingerprint"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor on the "security_audit" logger.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogSafetyViolation records generated SQL rejected by the read-only check.
// Logged at WARN: the model produced it, not necessarily the user.
func (a *SecurityAuditor) LogSafetyViolation(req models.QueryRequest, details SafetyViolationDetails) {
	details.SQL = logging.TruncateString(details.SQL, maxLoggedSQL)
	a.emit(zapcore.WarnLevel, "Unsafe SQL blocked", EventSafetyViolation, SeverityWarning, req, details,
		zap.String("keyword", details.Keyword),
		zap.String("reason", details.Reason))
}

// LogScopeViolation records generated SQL that referenced another team's data.
// Logged at ERROR with critical severity: this is the tenant boundary.
//
// Example usage:
//
//	auditor.LogScopeViolation(req, audit.ScopeViolationDetails{
//	    SQL:         "SELECT * FROM player_game_stats WHERE team_id = 999",
//	    Column:      "team_id",
//	    OffendingID: 999,
//	    AllowedIDs:  []int{50, 77},
//	    Reason:      result.Error,
//	})
func (a *SecurityAuditor) LogScopeViolation(req models.QueryRequest, details ScopeViolationDetails) {
	details.SQL = logging.TruncateString(details.SQL, maxLoggedSQL)
	a.emit(zapcore.ErrorLevel, "Out of scope SQL blocked", EventScopeViolation, SeverityCritical, req, details,
		zap.String("column", details.Column),
		zap.Int("offending_id", details.OffendingID),
		zap.Ints("allowed_ids", details.AllowedIDs),
		zap.String("reason", details.Reason))
}

// LogSuspiciousQuestion records a question that looks like SQL injection. It is
// informational; the question is still answered because it never reaches the database.
func (a *SecurityAuditor) LogSuspiciousQuestion(req models.QueryRequest, fingerprint string) {
	details := SuspiciousQuestionDetails{
		Question:    logging.TruncateString(req.Question, maxLoggedSQL),
		Fingerprint: fingerprint,
	}
	a.emit(zapcore.WarnLevel, "Suspicious question", EventSuspiciousQuestion, SeverityWarning, req, details,
		zap.String("fingerprint", fingerprint))
}

const maxLoggedSQL = 2000

func (a *SecurityAuditor) emit(
	level zapcore.Level,
	msg string,
	eventType SecurityEventType,
	severity string,
	req models.QueryRequest,
	details any,
	extra ...zap.Field,
) {
	event := SecurityEvent{
		Timestamp:      time.Now().UTC(),
		EventType:      eventType,
		UserID:         req.Scope.UserID,
		UserTeamID:     req.Scope.UserTeamID,
		OpponentTeamID: req.Scope.OpponentTeamID,
		ClientIP:       req.ClientIP,
		Details:        details,
		Severity:       severity,
	}

	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)

	fields := []zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("event_type", string(eventType)),
		zap.String("user_id", req.Scope.UserID),
		zap.Int("user_team_id", req.Scope.UserTeamID),
		zap.String("client_ip", req.ClientIP),
		zap.String("severity", severity),
	}
	if req.Scope.OpponentTeamID != nil {
		fields = append(fields, zap.Int("opponent_team_id", *req.Scope.OpponentTeamID))
	}
	fields = append(fields, extra...)

	if ce := a.logger.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}
