package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/courtside-analytics/courtside/pkg/apperrors"
	"github.com/courtside-analytics/courtside/pkg/database"
)

// TeamRepository resolves the teams a chat request is scoped to.
type TeamRepository interface {
	// GetUserTeamID returns the team assigned to userID, or nil when the profile has none.
	// Returns apperrors.ErrNotFound when no profile exists.
	GetUserTeamID(ctx context.Context, userID string) (*int, error)

	// GetNextOpponent returns the other team of teamID's nearest game at or after now,
	// or nil when nothing is scheduled.
	GetNextOpponent(ctx context.Context, teamID int, now time.Time) (*int, error)
}

type teamRepository struct {
	db *database.DB
}

// NewTeamRepository creates a new team repository.
func NewTeamRepository(db *database.DB) TeamRepository {
	return &teamRepository{db: db}
}

var _ TeamRepository = (*teamRepository)(nil)

func (r *teamRepository) GetUserTeamID(ctx context.Context, userID string) (*int, error) {
	query := `SELECT team_id FROM profiles WHERE user_id = $1`

	var teamID *int
	err := r.db.QueryRow(ctx, query, userID).Scan(&teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user team: %w", err)
	}

	return teamID, nil
}

func (r *teamRepository) GetNextOpponent(ctx context.Context, teamID int, now time.Time) (*int, error) {
	query := `
		SELECT CASE WHEN home_team_id = $1 THEN away_team_id ELSE home_team_id END
		FROM games
		WHERE (home_team_id = $1 OR away_team_id = $1)
		  AND game_date >= $2
		ORDER BY game_date ASC
		LIMIT 1`

	var opponentID int
	err := r.db.QueryRow(ctx, query, teamID, now).Scan(&opponentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get next opponent: %w", err)
	}

	return &opponentID, nil
}
