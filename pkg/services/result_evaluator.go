package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/courtside-analytics/courtside/pkg/llm"
	"github.com/courtside-analytics/courtside/pkg/metrics"
	"github.com/courtside-analytics/courtside/pkg/models"
	"github.com/courtside-analytics/courtside/pkg/prompts"
)

// ResultEvaluator judges whether executed rows answer the question.
type ResultEvaluator interface {
	// Evaluate returns the model's verdict. An error means the model call failed;
	// callers decide how to degrade.
	Evaluate(ctx context.Context, in prompts.EvaluationInput) (models.EvaluationResponse, error)
}

type resultEvaluator struct {
	llmClient   llm.LLMClient
	temperature float64
	maxRows     int
	logger      *zap.Logger
}

// NewResultEvaluator creates an evaluator that shows the model at most maxRows rows.
func NewResultEvaluator(llmClient llm.LLMClient, temperature float64, maxRows int, logger *zap.Logger) ResultEvaluator {
	return &resultEvaluator{
		llmClient:   llmClient,
		temperature: temperature,
		maxRows:     maxRows,
		logger:      logger.Named("result-evaluator"),
	}
}

var _ ResultEvaluator = (*resultEvaluator)(nil)

func (e *resultEvaluator) Evaluate(ctx context.Context, in prompts.EvaluationInput) (models.EvaluationResponse, error) {
	if in.MaxRows == 0 {
		in.MaxRows = e.maxRows
	}

	result, err := e.llmClient.GenerateResponse(ctx, prompts.BuildEvaluatorPrompt(in), prompts.EvaluatorSystemPrompt, e.temperature)
	metrics.RecordLLMCall(metrics.StageEvaluate, err)
	if err != nil {
		return models.EvaluationResponse{}, fmt.Errorf("evaluate result: %w", err)
	}

	evaluation := ParseEvaluationResponse(result.Content)
	e.logger.Debug("Evaluated query result",
		zap.Bool("satisfactory", evaluation.Satisfactory),
		zap.Bool("has_new_sql", evaluation.NewSQL != nil),
		zap.Int("row_count", len(in.Rows)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens))

	return evaluation, nil
}
