// Package sql provides static checks for model-generated SQL: a read-only safety gate,
// a team scope gate, and statement normalization.
package sql

import (
	"errors"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
	// ErrEmptyStatement indicates the query is blank after trimming.
	ErrEmptyStatement = errors.New("empty SQL statement")
)

// NormalizeResult contains the normalized SQL and any normalization error.
type NormalizeResult struct {
	NormalizedSQL string
	Error         error
}

// Normalize removes comments, trims whitespace, strips one trailing semicolon and rejects
// anything that still contains a statement separator outside literals and identifiers.
// A literal, identifier or comment that never closes is rejected too.
func Normalize(sqlQuery string) NormalizeResult {
	uncommented, err := StripComments(sqlQuery)
	if err != nil {
		return NormalizeResult{Error: err}
	}

	normalized := stripTrailingSemicolon(strings.TrimSpace(uncommented))
	if normalized == "" {
		return NormalizeResult{Error: ErrEmptyStatement}
	}

	multiple, err := hasSemicolonOutsideStrings(normalized)
	if err != nil {
		return NormalizeResult{Error: err}
	}
	if multiple {
		return NormalizeResult{Error: ErrMultipleStatements}
	}

	return NormalizeResult{NormalizedSQL: normalized}
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals, quoted identifiers and comments.
func hasSemicolonOutsideStrings(sqlQuery string) (bool, error) {
	tokens, err := lexSQL(sqlQuery)
	if err != nil {
		return false, err
	}
	for _, tok := range tokens {
		if tok.kind == tokenCode && strings.Contains(tok.text, ";") {
			return true, nil
		}
	}
	return false, nil
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace after it.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")

	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}

	return sqlQuery
}
