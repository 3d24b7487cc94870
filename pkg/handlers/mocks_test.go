package handlers

import (
	"context"
	"sync"

	"github.com/courtside-analytics/courtside/pkg/models"
)

type mockTeamScopeService struct {
	scope models.ChatScope
	err   error
}

func (m *mockTeamScopeService) Resolve(ctx context.Context, userID string) (models.ChatScope, error) {
	if m.err != nil {
		return models.ChatScope{}, m.err
	}
	scope := m.scope
	scope.UserID = userID
	return scope, nil
}

type mockChatService struct {
	mu       sync.Mutex
	result   *models.ChatResult
	err      error
	askFn    func(ctx context.Context, req models.QueryRequest) (*models.ChatResult, error)
	requests []models.QueryRequest
}

func (m *mockChatService) Ask(ctx context.Context, req models.QueryRequest) (*models.ChatResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.askFn != nil {
		return m.askFn(ctx, req)
	}
	return m.result, m.err
}

func (m *mockChatService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type mockChatLogRepository struct {
	mu       sync.Mutex
	createFn func(ctx context.Context, entry *models.ChatLogEntry) error
	created  []*models.ChatLogEntry
	entries  []*models.ChatLogEntry
	listErr  error
	limit    int
}

func (m *mockChatLogRepository) Create(ctx context.Context, entry *models.ChatLogEntry) error {
	if m.createFn != nil {
		return m.createFn(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, entry)
	return nil
}

func (m *mockChatLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ChatLogEntry, error) {
	m.limit = limit
	return m.entries, m.listErr
}

func (m *mockChatLogRepository) createdEntries() []*models.ChatLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.ChatLogEntry(nil), m.created...)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}
