package services

import (
	"context"
	"sync"
	"time"

	"github.com/courtside-analytics/courtside/pkg/models"
)

// mockQueryExecutor returns results in order and repeats the last one.
type mockQueryExecutor struct {
	mu          sync.Mutex
	results     []models.ExecutionResult
	executeFunc func(ctx context.Context, sqlQuery string) models.ExecutionResult
	queries     []string
}

func (m *mockQueryExecutor) ExecuteReadOnly(ctx context.Context, sqlQuery string) models.ExecutionResult {
	m.mu.Lock()
	m.queries = append(m.queries, sqlQuery)
	call := len(m.queries)
	m.mu.Unlock()

	if m.executeFunc != nil {
		return m.executeFunc(ctx, sqlQuery)
	}
	if len(m.results) == 0 {
		return models.ExecutionResult{Rows: []models.Row{}}
	}
	idx := call - 1
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	return m.results[idx]
}

func (m *mockQueryExecutor) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

type mockTeamRepository struct {
	teamID        *int
	teamErr       error
	opponentID    *int
	opponentErr   error
	opponentCalls int
	lastNow       time.Time
}

func (m *mockTeamRepository) GetUserTeamID(ctx context.Context, userID string) (*int, error) {
	return m.teamID, m.teamErr
}

func (m *mockTeamRepository) GetNextOpponent(ctx context.Context, teamID int, now time.Time) (*int, error) {
	m.opponentCalls++
	m.lastNow = now
	return m.opponentID, m.opponentErr
}

type mockChatLogRepository struct {
	mu        sync.Mutex
	createFn  func(ctx context.Context, entry *models.ChatLogEntry) error
	created   []*models.ChatLogEntry
	listCalls int
}

func (m *mockChatLogRepository) Create(ctx context.Context, entry *models.ChatLogEntry) error {
	m.mu.Lock()
	m.created = append(m.created, entry)
	fn := m.createFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, entry)
	}
	return nil
}

func (m *mockChatLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ChatLogEntry, error) {
	m.listCalls++
	return nil, nil
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}
