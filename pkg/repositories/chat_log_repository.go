package repositories

import (
	"context"
	"fmt"

	"github.com/courtside-analytics/courtside/pkg/database"
	"github.com/courtside-analytics/courtside/pkg/models"
)

// ChatLogRepository persists answered chat questions.
type ChatLogRepository interface {
	Create(ctx context.Context, entry *models.ChatLogEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.ChatLogEntry, error)
}

type chatLogRepository struct {
	db *database.DB
}

// NewChatLogRepository creates a new chat log repository.
func NewChatLogRepository(db *database.DB) ChatLogRepository {
	return &chatLogRepository{db: db}
}

var _ ChatLogRepository = (*chatLogRepository)(nil)

func (r *chatLogRepository) Create(ctx context.Context, entry *models.ChatLogEntry) error {
	query := `
		INSERT INTO chat_logs (id, user_id, team_id, question, thought, sql, answer, result_type, iteration_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.TeamID,
		entry.Question,
		entry.Thought,
		entry.SQL,
		entry.Answer,
		string(entry.ResultType),
		entry.IterationCount,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create chat log: %w", err)
	}

	return nil
}

// ListByUser returns the most recent entries for userID, newest first.
func (r *chatLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ChatLogEntry, error) {
	query := `
		SELECT id, user_id, team_id, question, thought, sql, answer, result_type, iteration_count, created_at
		FROM chat_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.ChatLogEntry
	for rows.Next() {
		var e models.ChatLogEntry
		var resultType string
		err := rows.Scan(&e.ID, &e.UserID, &e.TeamID, &e.Question, &e.Thought, &e.SQL,
			&e.Answer, &resultType, &e.IterationCount, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat log: %w", err)
		}
		e.ResultType = models.ChatResultType(resultType)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat logs: %w", err)
	}

	return entries, nil
}
