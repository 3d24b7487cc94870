package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/courtside-analytics/courtside/pkg/metrics"
	"github.com/courtside-analytics/courtside/pkg/models"
	"github.com/courtside-analytics/courtside/pkg/repositories"
)

// ChatLogService records answered questions without holding up the response.
type ChatLogService interface {
	// RecordAsync persists entry in a background goroutine.
	// Uses a fresh background context to avoid issues with canceled request contexts.
	// Errors are logged but not returned.
	RecordAsync(entry *models.ChatLogEntry)

	// Wait blocks until every write started by RecordAsync has finished.
	Wait()
}

type chatLogService struct {
	repo    repositories.ChatLogRepository
	timeout time.Duration
	wg      sync.WaitGroup
	logger  *zap.Logger
}

// NewChatLogService creates a ChatLogService whose writes are bounded by timeout.
func NewChatLogService(repo repositories.ChatLogRepository, timeout time.Duration, logger *zap.Logger) ChatLogService {
	return &chatLogService{
		repo:    repo,
		timeout: timeout,
		logger:  logger.Named("chat-log"),
	}
}

var _ ChatLogService = (*chatLogService)(nil)

func (s *chatLogService) RecordAsync(entry *models.ChatLogEntry) {
	if entry == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Use background context since the request context is done by the time
		// this goroutine runs (HTTP response already sent)
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.record(ctx, entry); err != nil {
			metrics.ChatLogFailuresTotal.Inc()
			s.logger.Error("Failed to write chat log",
				zap.String("chat_log_id", entry.ID.String()),
				zap.String("user_id", entry.UserID),
				zap.Error(err))
		}
	}()
}

// record isolates the write so a panicking repository cannot take the process down.
func (s *chatLogService) record(ctx context.Context, entry *models.ChatLogEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chat log write panicked: %v", r)
		}
	}()
	return s.repo.Create(ctx, entry)
}

func (s *chatLogService) Wait() {
	s.wg.Wait()
}
