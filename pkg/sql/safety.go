package sql

import (
	"fmt"
	"regexp"
	"strings"
)

// ForbiddenKeywords are statement keywords that disqualify a query no matter where they appear.
var ForbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "TRUNCATE",
	"ALTER", "CREATE", "GRANT", "REVOKE", "EXECUTE",
}

var forbiddenKeywordPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(ForbiddenKeywords, "|") + `)\b`)

// SafetyResult is the outcome of the read-only check.
type SafetyResult struct {
	Valid bool
	Error string
	// Keyword is the first forbidden keyword found, if that was the reason for rejection.
	Keyword string
}

// ValidateReadOnly accepts only statements that start with SELECT and contain none of
// the ForbiddenKeywords as a whole word. It is a pure function.
func ValidateReadOnly(sqlQuery string) SafetyResult {
	normalized := strings.ToUpper(strings.TrimSpace(sqlQuery))

	if !strings.HasPrefix(normalized, "SELECT") {
		return SafetyResult{Error: "only SELECT queries are allowed"}
	}

	if match := forbiddenKeywordPattern.FindString(normalized); match != "" {
		return SafetyResult{
			Error:   fmt.Sprintf("forbidden keyword detected: %s", match),
			Keyword: match,
		}
	}

	return SafetyResult{Valid: true}
}
