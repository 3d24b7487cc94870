package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/courtside-analytics/courtside/pkg/apperrors"
	"github.com/courtside-analytics/courtside/pkg/auth"
	"github.com/courtside-analytics/courtside/pkg/models"
	"github.com/courtside-analytics/courtside/pkg/services"
	"github.com/courtside-analytics/courtside/pkg/testhelpers"
)

type chatTestEnv struct {
	handler *ChatHandler
	scope   *mockTeamScopeService
	chat    *mockChatService
	logRepo *mockChatLogRepository
	chatLog services.ChatLogService
}

func setupChatHandlerTest(t *testing.T) *chatTestEnv {
	t.Helper()
	env := &chatTestEnv{
		scope:   &mockTeamScopeService{scope: models.ChatScope{UserTeamID: 50}},
		chat:    &mockChatService{},
		logRepo: &mockChatLogRepository{},
	}
	env.chatLog = services.NewChatLogService(env.logRepo, time.Second, zap.NewNop())
	env.handler = NewChatHandler(&ChatHandlerDeps{
		TeamScope:      env.scope,
		Chat:           env.chat,
		ChatLog:        env.chatLog,
		ChatLogRepo:    env.logRepo,
		RequestTimeout: 5 * time.Second,
		Logger:         zap.NewNop(),
	})
	return env
}

func chatRequest(t *testing.T, userID, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:52100"
	if userID != "" {
		claims := &auth.Claims{}
		claims.Subject = userID
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func dataResult() *models.ChatResult {
	sql := "SELECT AVG(points) AS avg_points FROM team_game_stats WHERE team_id = 50"
	return &models.ChatResult{
		Type:            models.ChatResultData,
		Answer:          "Your team averages 78.4 points.",
		Thought:         "average over team games",
		TacticalContext: "Scoring is steady.",
		SQL:             sql,
		Data:            []models.Row{{"avg_points": 78.4}},
		Iterations: []models.IterationLogEntry{
			{Iteration: 1, Thought: "average over team games", SQL: &sql, Result: "1 row"},
		},
	}
}

func TestChatHandler_Chat_DataAnswer(t *testing.T) {
	env := setupChatHandlerTest(t)
	env.chat.result = dataResult()

	rec := httptest.NewRecorder()
	env.handler.Chat(rec, chatRequest(t, "coach-1", `{"question":"What is my team's average points?"}`))
	env.chatLog.Wait()

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "data", body["type"])
	assert.Equal(t, "Your team averages 78.4 points.", body["answer"])
	assert.Equal(t, "Scoring is steady.", body["tactical_context"])
	assert.Contains(t, body["sql"], "team_id = 50")
	assert.Equal(t, []any{map[string]any{"avg_points": 78.4}}, body["data"])
	assert.Len(t, body["iterations"], 1)

	require.Len(t, env.chat.requests, 1)
	req := env.chat.requests[0]
	assert.Equal(t, "What is my team's average points?", req.Question)
	assert.Equal(t, "coach-1", req.Scope.UserID)
	assert.Equal(t, 50, req.Scope.UserTeamID)
	assert.Equal(t, "203.0.113.9:52100", req.ClientIP)

	created := env.logRepo.createdEntries()
	require.Len(t, created, 1)
	assert.Equal(t, "coach-1", created[0].UserID)
	assert.Equal(t, 50, created[0].TeamID)
	assert.Equal(t, models.ChatResultData, created[0].ResultType)
	assert.Equal(t, 1, created[0].IterationCount)
}

func TestChatHandler_Chat_NonDataAnswersHideSQL(t *testing.T) {
	tests := []struct {
		name   string
		result *models.ChatResult
	}{
		{
			name: "conversational",
			result: &models.ChatResult{
				Type:       models.ChatResultConversational,
				Answer:     "Hello coach.",
				Thought:    "greeting",
				Iterations: []models.IterationLogEntry{{Iteration: 1, Thought: "greeting"}},
			},
		},
		{
			name: "blocked",
			result: &models.ChatResult{
				Type:       models.ChatResultError,
				Answer:     "🛡️ Query blocked for security reasons: unauthorized team_id 999",
				SQL:        "SELECT * FROM games WHERE home_team_id = 999",
				Iterations: []models.IterationLogEntry{{Iteration: 1, Result: "blocked: unauthorized team_id 999"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupChatHandlerTest(t)
			env.chat.result = tt.result

			rec := httptest.NewRecorder()
			env.handler.Chat(rec, chatRequest(t, "coach-1", `{"question":"hi"}`))
			env.chatLog.Wait()

			require.Equal(t, http.StatusOK, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, string(tt.result.Type), body["type"])
			assert.Equal(t, tt.result.Answer, body["answer"])
			assert.Contains(t, body, "thought")
			assert.Nil(t, body["data"])
			assert.NotContains(t, body, "sql")
			assert.NotContains(t, body, "tactical_context")
			assert.Len(t, body["iterations"], 1)
		})
	}
}

func TestChatHandler_Chat_RequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		body       string
		scopeErr   error
		wantStatus int
		wantError  string
	}{
		{"no user", "", `{"question":"hi"}`, nil, http.StatusUnauthorized, "unauthorized"},
		{"malformed body", "coach-1", `{"question":`, nil, http.StatusBadRequest, "invalid_request"},
		{"empty question", "coach-1", `{"question":""}`, nil, http.StatusBadRequest, "missing_question"},
		{"whitespace question", "coach-1", `{"question":"   \n\t"}`, nil, http.StatusBadRequest, "missing_question"},
		{"invalid session", "coach-1", `{"question":"hi"}`, apperrors.ErrInvalidSession, http.StatusUnauthorized, "invalid_session"},
		{"no team", "coach-1", `{"question":"hi"}`, apperrors.ErrNoTeamAssigned, http.StatusBadRequest, "no_team_assigned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupChatHandlerTest(t)
			env.scope.err = tt.scopeErr

			rec := httptest.NewRecorder()
			env.handler.Chat(rec, chatRequest(t, tt.userID, tt.body))
			env.chatLog.Wait()

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decodeBody(t, rec)["error"])
			assert.Zero(t, env.chat.calls(), "pipeline must not run")
			assert.Empty(t, env.logRepo.createdEntries())
		})
	}
}

func TestChatHandler_Chat_OversizedBody(t *testing.T) {
	env := setupChatHandlerTest(t)
	body := fmt.Sprintf(`{"question":%q}`, strings.Repeat("a", maxChatBodyBytes))

	rec := httptest.NewRecorder()
	env.handler.Chat(rec, chatRequest(t, "coach-1", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.chat.calls())
}

func TestChatHandler_Chat_PipelineFailure(t *testing.T) {
	tests := []struct {
		name       string
		question   string
		wantAnswer string
	}{
		{"english", "What is my team's average?", "⚠️ Something went wrong"},
		{"spanish", "¿Cuál es el promedio de mi equipo?", "⚠️ Ocurrió un error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupChatHandlerTest(t)
			env.chat.err = errors.New("generate sql: missing api key")

			rec := httptest.NewRecorder()
			env.handler.Chat(rec, chatRequest(t, "coach-1", fmt.Sprintf(`{"question":%q}`, tt.question)))
			env.chatLog.Wait()

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, "error", body["type"])
			assert.True(t, strings.HasPrefix(body["answer"].(string), tt.wantAnswer), body["answer"])
			assert.Contains(t, body, "data")
			assert.Nil(t, body["data"])
			assert.NotContains(t, body, "iterations")
			assert.Empty(t, env.logRepo.createdEntries(), "failed requests are not logged")
		})
	}
}

func TestChatHandler_Chat_ScopeLookupFailure(t *testing.T) {
	env := setupChatHandlerTest(t)
	env.scope.err = errors.New("connection refused")

	rec := httptest.NewRecorder()
	env.handler.Chat(rec, chatRequest(t, "coach-1", `{"question":"hi"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decodeBody(t, rec)["type"])
	assert.Zero(t, env.chat.calls())
}

func TestChatHandler_Chat_AppliesRequestTimeout(t *testing.T) {
	env := setupChatHandlerTest(t)
	env.handler.requestTimeout = 20 * time.Millisecond
	env.chat.askFn = func(ctx context.Context, req models.QueryRequest) (*models.ChatResult, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(20*time.Millisecond), deadline, time.Second)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	rec := httptest.NewRecorder()
	env.handler.Chat(rec, chatRequest(t, "coach-1", `{"question":"hi"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// A failing or panicking chat log sink must not change the response.
func TestChatHandler_Chat_AuditSinkDoesNotAffectResponse(t *testing.T) {
	sinks := map[string]func(ctx context.Context, entry *models.ChatLogEntry) error{
		"error": func(ctx context.Context, entry *models.ChatLogEntry) error {
			return errors.New("insert failed")
		},
		"panic": func(ctx context.Context, entry *models.ChatLogEntry) error {
			panic("sink exploded")
		},
		"slow": func(ctx context.Context, entry *models.ChatLogEntry) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}

	baseline := setupChatHandlerTest(t)
	baseline.chat.result = dataResult()
	want := httptest.NewRecorder()
	baseline.handler.Chat(want, chatRequest(t, "coach-1", `{"question":"What is my team's average points?"}`))
	baseline.chatLog.Wait()

	for name, sink := range sinks {
		t.Run(name, func(t *testing.T) {
			env := setupChatHandlerTest(t)
			env.chat.result = dataResult()
			env.logRepo.createFn = sink

			rec := httptest.NewRecorder()
			env.handler.Chat(rec, chatRequest(t, "coach-1", `{"question":"What is my team's average points?"}`))
			env.chatLog.Wait()

			assert.Equal(t, want.Code, rec.Code)
			assert.True(t, bytes.Equal(want.Body.Bytes(), rec.Body.Bytes()),
				"body changed:\nwant %s\ngot  %s", want.Body.String(), rec.Body.String())
		})
	}
}

func TestChatHandler_History(t *testing.T) {
	entry := &models.ChatLogEntry{UserID: "coach-1", TeamID: 50, Question: "hi", ResultType: models.ChatResultConversational}

	tests := []struct {
		name       string
		query      string
		entries    []*models.ChatLogEntry
		listErr    error
		wantStatus int
		wantLimit  int
		wantCount  int
	}{
		{"default limit", "", []*models.ChatLogEntry{entry}, nil, http.StatusOK, defaultHistoryLimit, 1},
		{"explicit limit", "?limit=5", nil, nil, http.StatusOK, 5, 0},
		{"limit capped", "?limit=1000", nil, nil, http.StatusOK, maxHistoryLimit, 0},
		{"invalid limit", "?limit=zero", nil, nil, http.StatusBadRequest, 0, 0},
		{"negative limit", "?limit=-1", nil, nil, http.StatusBadRequest, 0, 0},
		{"repository error", "", nil, errors.New("db down"), http.StatusInternalServerError, defaultHistoryLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupChatHandlerTest(t)
			env.logRepo.entries = tt.entries
			env.logRepo.listErr = tt.listErr

			req := httptest.NewRequest(http.MethodGet, "/chat/history"+tt.query, nil)
			claims := &auth.Claims{}
			claims.Subject = "coach-1"
			req = req.WithContext(auth.WithClaims(req.Context(), claims))

			rec := httptest.NewRecorder()
			env.handler.History(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLimit, env.logRepo.limit)
			if tt.wantStatus == http.StatusOK {
				var body ChatHistoryResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.NotNil(t, body.Entries)
				assert.Len(t, body.Entries, tt.wantCount)
			}
		})
	}
}

func TestChatHandler_RegisterRoutes_RequiresBearerToken(t *testing.T) {
	env := setupChatHandlerTest(t)
	env.chat.result = &models.ChatResult{Type: models.ChatResultConversational, Answer: "Hello coach."}

	jwksClient, err := auth.NewJWKSClient(context.Background(), &auth.JWKSConfig{EnableVerification: false})
	require.NoError(t, err)
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(jwksClient, zap.NewNop()), zap.NewNop())

	mux := http.NewServeMux()
	env.handler.RegisterRoutes(mux, authMiddleware)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"question":"hi"}`)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Zero(t, env.chat.calls())
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"question":"hi"}`))
		req.Header.Set("Authorization", testhelpers.GenerateTestJWTWithBearer("coach-7", ""))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		env.chatLog.Wait()

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, env.chat.calls())
		assert.Equal(t, "coach-7", env.chat.requests[0].Scope.UserID)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestToChatResponse_NilSlices(t *testing.T) {
	response := toChatResponse(&models.ChatResult{Type: models.ChatResultData, Answer: "none", SQL: "SELECT 1"})

	assert.NotNil(t, response.Data)
	assert.NotNil(t, response.Iterations)
	require.NotNil(t, response.SQL)
	assert.Equal(t, "SELECT 1", *response.SQL)
	require.NotNil(t, response.TacticalContext)
	assert.Empty(t, *response.TacticalContext)
}
