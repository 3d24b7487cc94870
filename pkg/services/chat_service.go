package services

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/courtside-analytics/courtside/pkg/audit"
	"github.com/courtside-analytics/courtside/pkg/metrics"
	"github.com/courtside-analytics/courtside/pkg/models"
	"github.com/courtside-analytics/courtside/pkg/prompts"
	"github.com/courtside-analytics/courtside/pkg/repositories"
	sqlcheck "github.com/courtside-analytics/courtside/pkg/sql"
)

// DefaultMaxIterations is the attempt ceiling when none is configured.
const DefaultMaxIterations = 3

// RetryThought is the placeholder thought recorded for evaluator-driven retries.
const RetryThought = "retrying with new query based on evaluation"

const (
	securityMarker = "🛡️ "
	warningMarker  = "⚠️ "
)

// ChatService answers one coach question through the generate, validate, execute
// and evaluate loop.
type ChatService interface {
	// Ask runs the pipeline for req. An error is returned only for failures outside the
	// normal control flow: the generator's first model call failing or ctx ending.
	Ask(ctx context.Context, req models.QueryRequest) (*models.ChatResult, error)
}

// ChatServiceDeps contains dependencies for ChatService.
type ChatServiceDeps struct {
	Generator     SQLGenerator
	Executor      repositories.QueryExecutor
	Evaluator     ResultEvaluator
	Auditor       *audit.SecurityAuditor
	MaxIterations int
	Logger        *zap.Logger
}

type chatService struct {
	generator     SQLGenerator
	executor      repositories.QueryExecutor
	evaluator     ResultEvaluator
	auditor       *audit.SecurityAuditor
	maxIterations int
	logger        *zap.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(deps *ChatServiceDeps) ChatService {
	maxIterations := deps.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &chatService{
		generator:     deps.Generator,
		executor:      deps.Executor,
		evaluator:     deps.Evaluator,
		auditor:       deps.Auditor,
		maxIterations: maxIterations,
		logger:        deps.Logger.Named("chat"),
	}
}

var _ ChatService = (*chatService)(nil)

// ============================================================================
// State machine
// ============================================================================

type chatState int

const (
	stateGenerating chatState = iota
	stateValidating
	stateExecuting
	stateEvaluating
	stateRetrying
	stateConversational
	stateBlocked
	stateSatisfied
	stateDegraded
	stateExhausted
)

var chatStateNames = map[chatState]string{
	stateGenerating:     "generating",
	stateValidating:     "validating",
	stateExecuting:      "executing",
	stateEvaluating:     "evaluating",
	stateRetrying:       "retrying",
	stateConversational: "conversational",
	stateBlocked:        "blocked",
	stateSatisfied:      "satisfied",
	stateDegraded:       "degraded",
	stateExhausted:      "exhausted",
}

func (s chatState) String() string {
	if name, ok := chatStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("chatState(%d)", int(s))
}

// chatTransitions lists the legal successors of every non-terminal state.
// States with no entry are terminal.
var chatTransitions = map[chatState][]chatState{
	stateGenerating: {stateValidating, stateConversational},
	stateValidating: {stateExecuting, stateBlocked},
	stateExecuting:  {stateEvaluating},
	stateEvaluating: {stateSatisfied, stateRetrying, stateExhausted, stateDegraded},
	stateRetrying:   {stateGenerating},
}

func (s chatState) terminal() bool {
	_, ok := chatTransitions[s]
	return !ok
}

// chatRun is the per-request state of one pipeline execution. It is never shared.
type chatRun struct {
	req   models.QueryRequest
	texts chatTexts
	state chatState

	// iteration counts attempts started so far.
	iteration  int
	iterations []models.IterationLogEntry

	current         models.SQLResponse // response being processed this iteration
	next            models.SQLResponse // synthesized by RETRYING for the next iteration
	tacticalContext string             // latest non-empty tactical context
	sql             string             // validated, normalized statement
	exec            models.ExecutionResult

	result *models.ChatResult
}

func (r *chatRun) advance(next chatState) error {
	for _, allowed := range chatTransitions[r.state] {
		if allowed == next {
			r.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid chat state transition %s -> %s", r.state, next)
}

// annotate sets the result note of the current iteration log entry.
func (r *chatRun) annotate(note string) {
	if len(r.iterations) > 0 {
		r.iterations[len(r.iterations)-1].Result = note
	}
}

func (r *chatRun) finish(next chatState, result *models.ChatResult) error {
	if err := r.advance(next); err != nil {
		return err
	}
	if result.Thought == "" {
		result.Thought = r.current.Thought
	}
	result.Iterations = r.iterations
	r.result = result
	return nil
}

// ============================================================================
// Pipeline
// ============================================================================

func (s *chatService) Ask(ctx context.Context, req models.QueryRequest) (*models.ChatResult, error) {
	run := &chatRun{
		req:   req,
		texts: textsFor(req.Question),
		state: stateGenerating,
	}

	if suspicious := sqlcheck.CheckQuestionForInjection(req.Question); suspicious != nil {
		s.auditor.LogSuspiciousQuestion(req, suspicious.Fingerprint)
	}

	for !run.state.terminal() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		switch run.state {
		case stateGenerating:
			err = s.generate(ctx, run)
		case stateValidating:
			err = s.validate(run)
		case stateExecuting:
			err = s.execute(ctx, run)
		case stateEvaluating:
			err = s.evaluate(ctx, run)
		case stateRetrying:
			err = s.retry(run)
		default:
			err = fmt.Errorf("unhandled chat state %s", run.state)
		}
		if err != nil {
			return nil, err
		}
	}

	metrics.ChatRequestsTotal.WithLabelValues(string(run.result.Type)).Inc()
	metrics.ChatIterations.Observe(float64(len(run.iterations)))

	s.logger.Info("Chat request completed",
		zap.String("user_id", req.Scope.UserID),
		zap.String("final_state", run.state.String()),
		zap.String("result_type", string(run.result.Type)),
		zap.Int("iterations", len(run.iterations)))

	return run.result, nil
}

// generate produces the response for a new iteration and appends its log entry
// before anything else happens to it.
func (s *chatService) generate(ctx context.Context, run *chatRun) error {
	response := run.next
	if run.iteration == 0 {
		generated, err := s.generator.Generate(ctx, run.req.Question, run.req.Scope)
		if err != nil {
			return err
		}
		response = generated
	}

	run.iteration++
	run.current = response
	run.next = models.SQLResponse{}
	run.iterations = append(run.iterations, models.IterationLogEntry{
		Iteration: run.iteration,
		Thought:   response.Thought,
		SQL:       response.SQL,
	})
	if response.TacticalContext != "" {
		run.tacticalContext = response.TacticalContext
	}

	if !response.HasSQL() {
		answer := response.TacticalContext
		if answer == "" {
			answer = response.Thought
		}
		if answer == "" {
			answer = run.texts.conversationalFallback
		}
		return run.finish(stateConversational, &models.ChatResult{
			Type:            models.ChatResultConversational,
			Answer:          answer,
			TacticalContext: response.TacticalContext,
		})
	}

	return run.advance(stateValidating)
}

// validate applies the read-only and team scope checks. Either failure ends the request.
func (s *chatService) validate(run *chatRun) error {
	raw := *run.current.SQL

	if safety := sqlcheck.ValidateReadOnly(raw); !safety.Valid {
		s.auditor.LogSafetyViolation(run.req, audit.SafetyViolationDetails{
			SQL:       raw,
			Keyword:   safety.Keyword,
			Reason:    safety.Error,
			Iteration: run.iteration,
		})
		return s.block(run, metrics.BlockedSafety, raw, safety.Error)
	}

	normalized := sqlcheck.Normalize(raw)
	if normalized.Error != nil {
		s.auditor.LogSafetyViolation(run.req, audit.SafetyViolationDetails{
			SQL:       raw,
			Reason:    normalized.Error.Error(),
			Iteration: run.iteration,
		})
		return s.block(run, metrics.BlockedSafety, raw, normalized.Error.Error())
	}

	scope := run.req.Scope
	if result := sqlcheck.ValidateTeamScope(normalized.NormalizedSQL, scope.UserTeamID, scope.OpponentTeamID); !result.Valid {
		s.auditor.LogScopeViolation(run.req, audit.ScopeViolationDetails{
			SQL:         normalized.NormalizedSQL,
			Column:      result.Column,
			OffendingID: result.OffendingID,
			AllowedIDs:  result.AllowedIDs,
			Reason:      result.Error,
			Iteration:   run.iteration,
		})
		return s.block(run, metrics.BlockedScope, normalized.NormalizedSQL, result.Error)
	}

	run.sql = normalized.NormalizedSQL
	return run.advance(stateExecuting)
}

func (s *chatService) block(run *chatRun, reason, sqlText, message string) error {
	metrics.ChatBlockedTotal.WithLabelValues(reason).Inc()
	run.annotate("blocked: " + message)
	return run.finish(stateBlocked, &models.ChatResult{
		Type:   models.ChatResultError,
		Answer: securityMarker + run.texts.blocked + message,
		SQL:    sqlText,
	})
}

// execute runs the validated statement. Database errors are carried into evaluation.
func (s *chatService) execute(ctx context.Context, run *chatRun) error {
	exec := s.executor.ExecuteReadOnly(ctx, run.sql)
	if err := ctx.Err(); err != nil {
		return err
	}

	if exec.Rows == nil {
		exec.Rows = []models.Row{}
	}
	run.exec = exec

	if exec.Error != "" {
		run.annotate("error: " + exec.Error)
	} else {
		run.annotate(fmt.Sprintf("%d %s", len(exec.Rows), prompts.CountNoun(len(exec.Rows), "row")))
	}

	return run.advance(stateEvaluating)
}

func (s *chatService) evaluate(ctx context.Context, run *chatRun) error {
	evaluation, err := s.evaluator.Evaluate(ctx, prompts.EvaluationInput{
		Question:       run.req.Question,
		SQL:            run.sql,
		ExecutionError: run.exec.Error,
		Rows:           run.exec.Rows,
		PriorThought:   run.current.Thought,
		PriorContext:   run.tacticalContext,
		Scope:          run.req.Scope,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn("Result evaluation failed, degrading answer",
			zap.Int("iteration", run.iteration),
			zap.Bool("execution_failed", run.exec.Error != ""),
			zap.Error(err))

		if run.exec.Error != "" {
			return s.exhaust(run, nil)
		}
		return run.finish(stateDegraded, s.dataResult(run, run.texts.rowCount(len(run.exec.Rows), run.tacticalContext)))
	}

	switch {
	case evaluation.Satisfactory:
		answer := run.texts.rowCount(len(run.exec.Rows), run.tacticalContext)
		if evaluation.Response != nil {
			answer = *evaluation.Response
		}
		return run.finish(stateSatisfied, s.dataResult(run, answer))

	case evaluation.NewSQL != nil && run.iteration < s.maxIterations:
		run.next = models.SQLResponse{
			SQL:     evaluation.NewSQL,
			Thought: RetryThought,
		}
		return run.advance(stateRetrying)

	default:
		return s.exhaust(run, evaluation.Response)
	}
}

func (s *chatService) retry(run *chatRun) error {
	s.logger.Debug("Retrying with corrective SQL from evaluation",
		zap.Int("next_iteration", run.iteration+1),
		zap.Int("max_iterations", s.maxIterations))
	return run.advance(stateGenerating)
}

func (s *chatService) exhaust(run *chatRun, response *string) error {
	answer := warningMarker + run.texts.noInformation
	if response != nil {
		answer = *response
	}
	return run.finish(stateExhausted, &models.ChatResult{
		Type:   models.ChatResultError,
		Answer: answer,
		SQL:    run.sql,
	})
}

func (s *chatService) dataResult(run *chatRun, answer string) *models.ChatResult {
	return &models.ChatResult{
		Type:            models.ChatResultData,
		Answer:          answer,
		TacticalContext: run.tacticalContext,
		SQL:             run.sql,
		Data:            run.exec.Rows,
	}
}

// ============================================================================
// User-facing text
// ============================================================================

// spanishPattern is a cheap signal that the coach wrote in Spanish.
var spanishPattern = regexp.MustCompile(`(?i)[¿¡ñáéíóú]|\b(equipo|jugador(es)?|partidos?|promedio|puntos|rebotes|asistencias)\b`)

type chatTexts struct {
	failed                 string
	blocked                string
	noInformation          string
	conversationalFallback string
	rowCount               func(n int, tactical string) string
}

func textsFor(question string) chatTexts {
	if spanishPattern.MatchString(question) {
		return chatTexts{
			failed:                 "Ocurrió un error al procesar la pregunta. Inténtalo de nuevo.",
			blocked:                "Consulta bloqueada por seguridad: ",
			noInformation:          "No se encontró información para responder esa pregunta.",
			conversationalFallback: "Puedo ayudarte con preguntas sobre los partidos y jugadores de tu equipo.",
			rowCount: func(n int, tactical string) string {
				return withTactical(fmt.Sprintf("Se encontraron %d resultados.", n), tactical)
			},
		}
	}
	return chatTexts{
		failed:                 "Something went wrong while answering that question. Please try again.",
		blocked:                "Query blocked for security reasons: ",
		noInformation:          "Could not find information to answer that question.",
		conversationalFallback: "I can help with questions about your team's games and players.",
		rowCount: func(n int, tactical string) string {
			return withTactical(fmt.Sprintf("Found %d %s.", n, prompts.CountNoun(n, "row")), tactical)
		},
	}
}

// FailureAnswer is the user-facing text for a request that failed outside the
// normal pipeline flow, in the language of question.
func FailureAnswer(question string) string {
	return warningMarker + textsFor(question).failed
}

func withTactical(answer, tactical string) string {
	if tactical == "" {
		return answer
	}
	return answer + " " + tactical
}
