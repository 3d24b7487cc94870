package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/courtside-analytics/courtside/pkg/apperrors"
	"github.com/courtside-analytics/courtside/pkg/auth"
	"github.com/courtside-analytics/courtside/pkg/models"
	"github.com/courtside-analytics/courtside/pkg/repositories"
	"github.com/courtside-analytics/courtside/pkg/services"
)

const (
	maxChatBodyBytes    = 16 << 10
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse is the body of a POST /chat response produced by the pipeline.
// TacticalContext and SQL are only set for data answers.
type ChatResponse struct {
	Type            models.ChatResultType      `json:"type"`
	Answer          string                     `json:"answer"`
	Thought         string                     `json:"thought"`
	TacticalContext *string                    `json:"tactical_context,omitempty"`
	SQL             *string                    `json:"sql,omitempty"`
	Data            []models.Row               `json:"data"`
	Iterations      []models.IterationLogEntry `json:"iterations"`
}

// ChatFailureResponse is the body of a 500 from POST /chat.
type ChatFailureResponse struct {
	Type   models.ChatResultType `json:"type"`
	Answer string                `json:"answer"`
	Data   []models.Row          `json:"data"`
}

// ChatHistoryResponse is the body of GET /chat/history.
type ChatHistoryResponse struct {
	Entries []*models.ChatLogEntry `json:"entries"`
}

// ChatHandlerDeps contains dependencies for ChatHandler.
type ChatHandlerDeps struct {
	TeamScope      services.TeamScopeService
	Chat           services.ChatService
	ChatLog        services.ChatLogService
	ChatLogRepo    repositories.ChatLogRepository // Optional; enables GET /chat/history
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// ChatHandler serves the coach chat endpoints.
type ChatHandler struct {
	teamScope      services.TeamScopeService
	chat           services.ChatService
	chatLog        services.ChatLogService
	chatLogRepo    repositories.ChatLogRepository
	requestTimeout time.Duration
	logger         *zap.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(deps *ChatHandlerDeps) *ChatHandler {
	return &ChatHandler{
		teamScope:      deps.TeamScope,
		chat:           deps.Chat,
		chatLog:        deps.ChatLog,
		chatLogRepo:    deps.ChatLogRepo,
		requestTimeout: deps.RequestTimeout,
		logger:         deps.Logger.Named("chat_handler"),
	}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /chat", authMiddleware.RequireAuth(h.Chat))
	if h.chatLogRepo != nil {
		mux.HandleFunc("GET /chat/history", authMiddleware.RequireAuth(h.History))
	}
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var body ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	question := strings.TrimSpace(body.Question)
	if question == "" {
		h.writeError(w, http.StatusBadRequest, "missing_question", "Question is required")
		return
	}

	scope, err := h.teamScope.Resolve(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidSession):
			h.writeError(w, http.StatusUnauthorized, "invalid_session", "Session is not valid")
		case errors.Is(err, apperrors.ErrNoTeamAssigned):
			h.writeError(w, http.StatusBadRequest, "no_team_assigned", "No team is assigned to this user")
		default:
			h.logger.Error("Failed to resolve team scope", zap.String("user_id", userID), zap.Error(err))
			h.writeFailure(w, question)
		}
		return
	}

	req := models.QueryRequest{
		Question: question,
		Scope:    scope,
		ClientIP: r.RemoteAddr,
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	result, err := h.chat.Ask(ctx, req)
	if err != nil {
		h.logger.Error("Chat request failed",
			zap.String("user_id", userID),
			zap.Int("team_id", scope.UserTeamID),
			zap.Error(err))
		h.writeFailure(w, question)
		return
	}

	if err := WriteJSON(w, http.StatusOK, toChatResponse(result)); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}

	h.chatLog.RecordAsync(models.NewChatLogEntry(req, result))
}

// History handles GET /chat/history?limit=N for the authenticated user.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	limit, ok := parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
		return
	}

	entries, err := h.chatLogRepo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to list chat history", zap.String("user_id", userID), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list chat history")
		return
	}
	if entries == nil {
		entries = []*models.ChatLogEntry{}
	}

	if err := WriteJSON(w, http.StatusOK, ChatHistoryResponse{Entries: entries}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ChatHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *ChatHandler) writeFailure(w http.ResponseWriter, question string) {
	response := ChatFailureResponse{
		Type:   models.ChatResultError,
		Answer: services.FailureAnswer(question),
	}
	if err := WriteJSON(w, http.StatusInternalServerError, response); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func toChatResponse(result *models.ChatResult) ChatResponse {
	response := ChatResponse{
		Type:       result.Type,
		Answer:     result.Answer,
		Thought:    result.Thought,
		Iterations: result.Iterations,
	}
	if response.Iterations == nil {
		response.Iterations = []models.IterationLogEntry{}
	}
	if result.Type == models.ChatResultData {
		tactical := result.TacticalContext
		sql := result.SQL
		response.TacticalContext = &tactical
		response.SQL = &sql
		response.Data = result.Data
		if response.Data == nil {
			response.Data = []models.Row{}
		}
	}
	return response
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return defaultHistoryLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, false
	}
	return min(limit, maxHistoryLimit), true
}
