package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/courtside-analytics/courtside/pkg/models"
)

// EvaluatorSystemPrompt frames the second model call as a reviewer of the first.
const EvaluatorSystemPrompt = `You review the result of a SQL query written for a basketball coaching staff.
Decide whether the returned rows actually answer the coach's question.
Respond with ONLY a JSON object and answer in the language of the question.`

// EvaluationInput is everything the evaluator sees about one executed query.
type EvaluationInput struct {
	Question       string
	SQL            string
	ExecutionError string
	Rows           []models.Row
	PriorThought   string
	PriorContext   string
	Scope          models.ChatScope
	// MaxRows caps how many rows are written into the prompt. Zero means no cap.
	MaxRows int
}

// BuildEvaluatorPrompt creates the user message for result evaluation.
func BuildEvaluatorPrompt(in EvaluationInput) string {
	var prompt strings.Builder

	prompt.WriteString("# Query Result Review\n\n")

	prompt.WriteString("## Question\n\n")
	prompt.WriteString(in.Question + "\n\n")

	prompt.WriteString("## SQL Executed\n\n")
	prompt.WriteString("```sql\n" + in.SQL + "\n```\n\n")

	if in.PriorThought != "" || in.PriorContext != "" {
		prompt.WriteString("## Reasoning So Far\n\n")
		if in.PriorThought != "" {
			prompt.WriteString(fmt.Sprintf("- Thought: %s\n", in.PriorThought))
		}
		if in.PriorContext != "" {
			prompt.WriteString(fmt.Sprintf("- Tactical context: %s\n", in.PriorContext))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("## Result\n\n")
	if in.ExecutionError != "" {
		prompt.WriteString(fmt.Sprintf("The query failed: %s\n\n", in.ExecutionError))
	} else {
		prompt.WriteString(FormatRows(in.Rows, in.MaxRows))
		prompt.WriteString("\n")
	}

	prompt.WriteString("## Guidelines\n\n")
	prompt.WriteString("- satisfactory=true when the rows answer the question. Write \"response\" as a short, friendly answer for a coach that cites the numbers.\n")
	prompt.WriteString("- satisfactory=false when the query failed, returned nothing useful, or used the wrong columns or aggregation. ")
	prompt.WriteString("Put a corrected SELECT statement in \"new_sql\" if you can write one, otherwise null.\n")
	prompt.WriteString(fmt.Sprintf("- A corrected query may only filter team columns by these team ids: %s.\n", joinIDs(in.Scope.AllowedTeamIDs())))
	prompt.WriteString("- If there is genuinely no data, say so in \"response\" and set \"new_sql\" to null.\n\n")

	prompt.WriteString("## Response Format\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString("{\n")
	prompt.WriteString(`  "satisfactory": true,` + "\n")
	prompt.WriteString(`  "response": "answer for the coach, or null",` + "\n")
	prompt.WriteString(`  "new_sql": "corrected SELECT, or null"` + "\n")
	prompt.WriteString("}\n")
	prompt.WriteString("```\n")

	return prompt.String()
}

// FormatRows renders rows as a pipe-separated table with columns in sorted order.
// Floats are rounded to two decimals.
func FormatRows(rows []models.Row, maxRows int) string {
	if len(rows) == 0 {
		return "Query returned no results.\n"
	}

	columns := columnNames(rows)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(columns, ", ")))
	sb.WriteString(fmt.Sprintf("%s (%d total):\n", CountNoun(len(rows), "Row"), len(rows)))

	display := len(rows)
	if maxRows > 0 && display > maxRows {
		display = maxRows
	}

	for _, row := range rows[:display] {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = formatValue(row[col])
		}
		sb.WriteString(strings.Join(values, " | ") + "\n")
	}

	if display < len(rows) {
		sb.WriteString(fmt.Sprintf("... and %d more %s\n", len(rows)-display, CountNoun(len(rows)-display, "row")))
	}

	return sb.String()
}

// CountNoun returns noun pluralized for n, e.g. CountNoun(1, "row") == "row".
func CountNoun(n int, noun string) string {
	if n == 1 {
		return inflection.Singular(noun)
	}
	return inflection.Plural(noun)
}

// columnNames returns the union of keys across rows, sorted.
func columnNames(rows []models.Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}

func formatValue(v any) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.2f", val)
	case nil:
		return "NULL"
	default:
		s := fmt.Sprintf("%v", v)
		if len(s) > 100 {
			s = s[:97] + "..."
		}
		return s
	}
}
