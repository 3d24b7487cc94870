package sql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/courtside-analytics/courtside/pkg/models"
)

// TeamColumns are the columns that identify a team and are therefore scope-checked.
var TeamColumns = []string{"current_team_id", "home_team_id", "away_team_id", "team_id"}

// teamFilterPattern finds `<team column> = v` and `<team column> IN (v, w, ...)` where each
// value is an integer or an emptied string literal (''). An optional closing double quote
// allows quoted identifiers such as "team_id".
var teamFilterPattern = regexp.MustCompile(
	`(?i)\b(` + strings.Join(TeamColumns, "|") + `)"?\s*(?:=|\bIN\b)\s*` +
		`(\(\s*` + teamValue + `(?:\s*,\s*` + teamValue + `)*\s*\)|` + teamValue + `)`,
)

const teamValue = `(?:-?\d+|'')`

var integerPattern = regexp.MustCompile(`-?\d+`)

// ScopeResult is the outcome of the team scope check.
type ScopeResult struct {
	Valid bool
	Error string
	// Column and OffendingID describe the first out-of-scope comparison.
	Column      string
	OffendingID int
	AllowedIDs  []int
}

// TeamFilter is one team-identifying comparison found in a statement.
// Opaque marks a comparison against a literal that does not read as a plain integer,
// such as an escaped or unicode-encoded string.
type TeamFilter struct {
	Column string
	IDs    []int
	Opaque bool
}

// ExtractTeamFilters returns every literal team id comparison in the statement,
// ignoring anything inside string literals and comments.
func ExtractTeamFilters(sqlQuery string) ([]TeamFilter, error) {
	stripped, err := StripStringLiterals(sqlQuery)
	if err != nil {
		return nil, err
	}

	var filters []TeamFilter
	for _, match := range teamFilterPattern.FindAllStringSubmatch(stripped, -1) {
		filter := TeamFilter{
			Column: strings.ToLower(match[1]),
			Opaque: strings.Contains(match[2], "''"),
		}
		for _, raw := range integerPattern.FindAllString(match[2], -1) {
			id, err := strconv.Atoi(raw)
			if err != nil {
				// Out of int range can never be an allowed id; keep it as a sentinel.
				id = -1
			}
			filter.IDs = append(filter.IDs, id)
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

// ValidateTeamScope rejects statements that compare a team column against any id
// outside {userTeamID} ∪ {opponentTeamID}. This is a textual check, not a SQL parser:
// comparisons that do not use a literal (joins, subqueries, expressions) are not inspected.
// A statement whose literals or comments cannot be delimited fails the check.
func ValidateTeamScope(sqlQuery string, userTeamID int, opponentTeamID *int) ScopeResult {
	scope := models.ChatScope{UserTeamID: userTeamID, OpponentTeamID: opponentTeamID}
	allowed := scope.AllowedTeamIDs()

	filters, err := ExtractTeamFilters(sqlQuery)
	if err != nil {
		return ScopeResult{
			Error:      fmt.Sprintf("query cannot be scope-checked: %v", err),
			AllowedIDs: allowed,
		}
	}

	for _, filter := range filters {
		if filter.Opaque {
			return ScopeResult{
				Error: fmt.Sprintf("query compares %s against a literal that is not a team id, only team ids %s are allowed",
					filter.Column, formatIDs(allowed)),
				Column:     filter.Column,
				AllowedIDs: allowed,
			}
		}
		for _, id := range filter.IDs {
			if scope.Allows(id) {
				continue
			}
			return ScopeResult{
				Error: fmt.Sprintf("query references team id %d in %s, but only team ids %s are allowed",
					id, filter.Column, formatIDs(allowed)),
				Column:      filter.Column,
				OffendingID: id,
				AllowedIDs:  allowed,
			}
		}
	}

	return ScopeResult{Valid: true, AllowedIDs: allowed}
}

func formatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
