// Package prompts builds the instructions sent to the SQL generator and result evaluator.
package prompts

import (
	"fmt"
	"strings"

	"github.com/courtside-analytics/courtside/pkg/models"
)

// ForceSQLDirective is appended to the question when the model refused an aggregate
// request about the user's own team, which is always in scope.
const ForceSQLDirective = `IMPORTANT: The question above asks about the user's own team, which is explicitly allowed.
Do not refuse. You MUST return a SQL query in the "sql" field that filters by the user's team id.`

// BuildGeneratorSystemPrompt creates the system message for SQL generation. It carries the
// schema, the allowed team ids, metric formulas, and the JSON response contract.
func BuildGeneratorSystemPrompt(catalog *Catalog, scope models.ChatScope) string {
	var prompt strings.Builder

	prompt.WriteString("# Basketball Analytics Assistant\n\n")
	prompt.WriteString("You help a coaching staff answer questions about their team by writing one PostgreSQL SELECT query.\n")
	prompt.WriteString("Answer in the language the question is written in.\n\n")

	prompt.WriteString("## Team Scope\n\n")
	prompt.WriteString(fmt.Sprintf("- The user's team id is %d.\n", scope.UserTeamID))
	if scope.OpponentTeamID != nil {
		prompt.WriteString(fmt.Sprintf("- The next opponent's team id is %d.\n", *scope.OpponentTeamID))
	} else {
		prompt.WriteString("- There is no upcoming opponent on the schedule.\n")
	}
	prompt.WriteString(fmt.Sprintf("- Allowed team ids: %s. Every query MUST filter team_id, current_team_id, home_team_id or away_team_id by these ids only.\n",
		joinIDs(scope.AllowedTeamIDs())))
	prompt.WriteString("- Questions about the user's own team (averages, totals, stats, players) are always allowed.\n")
	if scope.OpponentTeamID != nil {
		prompt.WriteString("- Scouting questions about the next opponent are allowed.\n")
	}
	prompt.WriteString("- Questions about any other team are out of scope. Explain that politely and return \"sql\": null.\n\n")

	prompt.WriteString("## Database Schema\n\n")
	prompt.WriteString(catalog.Render())

	prompt.WriteString("## Metric Formulas\n\n")
	prompt.WriteString("- Effective field goal %: (fgm + 0.5 * fg3m) / NULLIF(fga, 0) * 100\n")
	prompt.WriteString("- True shooting %: points / NULLIF(2 * (fga + 0.44 * fta), 0) * 100\n")
	prompt.WriteString("- Field goal %: fgm / NULLIF(fga, 0) * 100; three point %: fg3m / NULLIF(fg3a, 0) * 100; free throw %: ftm / NULLIF(fta, 0) * 100\n")
	prompt.WriteString("- Possessions: fga - offensive_rebounds + turnovers + 0.44 * fta\n")
	prompt.WriteString("- Per game averages: AVG over player_game_stats or team_game_stats rows, one row per game\n\n")

	prompt.WriteString("## Rules\n\n")
	prompt.WriteString("1. Only SELECT statements. Never modify data.\n")
	prompt.WriteString("2. Always use NULLIF for every division.\n")
	prompt.WriteString("3. ROUND every percentage and average to 1 decimal place (cast to numeric first).\n")
	prompt.WriteString("4. Compare team columns against literal ids, e.g. team_id = " + fmt.Sprint(scope.UserTeamID) + ".\n")
	prompt.WriteString("5. Return a single statement without a trailing explanation.\n")
	prompt.WriteString("6. If the question is conversational (greetings, basketball concepts, advice) set \"sql\" to null.\n\n")

	prompt.WriteString("## Response Format\n\n")
	prompt.WriteString("Respond with ONLY a JSON object:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString("{\n")
	prompt.WriteString(`  "sql": "SELECT ... or null",` + "\n")
	prompt.WriteString(`  "thought": "why this query answers the question",` + "\n")
	prompt.WriteString(`  "tactical_context": "coaching insight or the conversational answer"` + "\n")
	prompt.WriteString("}\n")
	prompt.WriteString("```\n")

	return prompt.String()
}

// BuildGeneratorPrompt is the user message: the raw question, optionally followed by
// ForceSQLDirective.
func BuildGeneratorPrompt(question string, forceSQL bool) string {
	if !forceSQL {
		return question
	}
	return question + "\n\n" + ForceSQLDirective
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
