package services

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/courtside-analytics/courtside/pkg/llm"
	"github.com/courtside-analytics/courtside/pkg/metrics"
	"github.com/courtside-analytics/courtside/pkg/models"
	"github.com/courtside-analytics/courtside/pkg/prompts"
)

var (
	// ownTeamPattern and ownTeamAggregatePattern together detect questions about the
	// user's own team statistics, which are always in scope.
	ownTeamPattern          = regexp.MustCompile(`(?i)\b(my team|our team|mi equipo|nuestro equipo)\b`)
	ownTeamAggregatePattern = regexp.MustCompile(`(?i)(average|avg|accumulated|total|stats|statistics|promedio|acumulad|estad[ií]stica)`)

	// refusalPattern matches narrative text where the model declined to write SQL
	// because it believed the data was out of scope.
	refusalPattern = regexp.MustCompile(`(?i)(not allowed|not permitted|blocked|out of scope|outside (the |your )?scope|cannot access|can't access|no permitido|bloquead|fuera de(l)? (alcance|ámbito)|no (tengo|puedo) acceso)`)
)

// SQLGenerator turns a coach question into a SQL statement (or a conversational reply).
type SQLGenerator interface {
	// Generate asks the model for SQL answering question within scope. A model call
	// failure on the first attempt is returned as an error.
	Generate(ctx context.Context, question string, scope models.ChatScope) (models.SQLResponse, error)
}

type sqlGenerator struct {
	llmClient   llm.LLMClient
	catalog     *prompts.Catalog
	temperature float64
	logger      *zap.Logger
}

// NewSQLGenerator creates a generator backed by llmClient.
func NewSQLGenerator(llmClient llm.LLMClient, catalog *prompts.Catalog, temperature float64, logger *zap.Logger) SQLGenerator {
	return &sqlGenerator{
		llmClient:   llmClient,
		catalog:     catalog,
		temperature: temperature,
		logger:      logger.Named("sql-generator"),
	}
}

var _ SQLGenerator = (*sqlGenerator)(nil)

func (g *sqlGenerator) Generate(ctx context.Context, question string, scope models.ChatScope) (models.SQLResponse, error) {
	systemPrompt := prompts.BuildGeneratorSystemPrompt(g.catalog, scope)

	result, err := g.llmClient.GenerateResponse(ctx, prompts.BuildGeneratorPrompt(question, false), systemPrompt, g.temperature)
	metrics.RecordLLMCall(metrics.StageGenerate, err)
	if err != nil {
		return models.SQLResponse{}, fmt.Errorf("generate sql: %w", err)
	}

	response := ParseSQLResponse(result.Content)
	if !needsSelfCorrection(question, response) {
		return response, nil
	}

	g.logger.Info("Model refused an own-team aggregate question, retrying with forced SQL directive",
		zap.String("user_id", scope.UserID),
		zap.String("thought", response.Thought))

	retried, err := g.llmClient.GenerateResponse(ctx, prompts.BuildGeneratorPrompt(question, true), systemPrompt, g.temperature)
	metrics.RecordLLMCall(metrics.StageRetry, err)
	if err != nil {
		return models.SQLResponse{}, fmt.Errorf("generate sql retry: %w", err)
	}

	return ParseSQLResponse(retried.Content), nil
}

// needsSelfCorrection reports whether the model refused a question it is explicitly
// allowed to answer: an aggregate about the user's own team.
func needsSelfCorrection(question string, response models.SQLResponse) bool {
	if response.HasSQL() {
		return false
	}
	if !ownTeamPattern.MatchString(question) || !ownTeamAggregatePattern.MatchString(question) {
		return false
	}
	return refusalPattern.MatchString(response.Thought + " " + response.TacticalContext)
}
