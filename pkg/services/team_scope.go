package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/courtside-analytics/courtside/pkg/apperrors"
	"github.com/courtside-analytics/courtside/pkg/models"
	"github.com/courtside-analytics/courtside/pkg/repositories"
)

// TeamScopeService resolves the team scope of an authenticated user.
type TeamScopeService interface {
	// Resolve returns the user's team and next opponent. It fails with
	// apperrors.ErrInvalidSession when the user has no profile and with
	// apperrors.ErrNoTeamAssigned when the profile has no team.
	Resolve(ctx context.Context, userID string) (models.ChatScope, error)
}

type teamScopeService struct {
	teamRepo repositories.TeamRepository
	// opponents caches the next opponent per team. A nil value caches "no game scheduled".
	opponents *ttlcache.Cache[int, *int]
	now       func() time.Time
	logger    *zap.Logger
}

// NewTeamScopeService creates a TeamScopeService that reuses opponent lookups for opponentTTL.
func NewTeamScopeService(teamRepo repositories.TeamRepository, opponentTTL time.Duration, logger *zap.Logger) TeamScopeService {
	return &teamScopeService{
		teamRepo: teamRepo,
		opponents: ttlcache.New(
			ttlcache.WithTTL[int, *int](opponentTTL),
			ttlcache.WithDisableTouchOnHit[int, *int](),
		),
		now:    time.Now,
		logger: logger.Named("team-scope"),
	}
}

var _ TeamScopeService = (*teamScopeService)(nil)

func (s *teamScopeService) Resolve(ctx context.Context, userID string) (models.ChatScope, error) {
	teamID, err := s.teamRepo.GetUserTeamID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.ChatScope{}, apperrors.ErrInvalidSession
		}
		return models.ChatScope{}, fmt.Errorf("resolve user team: %w", err)
	}
	if teamID == nil {
		return models.ChatScope{}, apperrors.ErrNoTeamAssigned
	}

	return models.ChatScope{
		UserID:         userID,
		UserTeamID:     *teamID,
		OpponentTeamID: s.nextOpponent(ctx, *teamID),
	}, nil
}

// nextOpponent degrades to nil on lookup failure: a smaller allowed set is always safe.
func (s *teamScopeService) nextOpponent(ctx context.Context, teamID int) *int {
	if item := s.opponents.Get(teamID); item != nil {
		return item.Value()
	}

	opponentID, err := s.teamRepo.GetNextOpponent(ctx, teamID, s.now())
	if err != nil {
		s.logger.Warn("Failed to resolve next opponent, scoping to own team only",
			zap.Int("team_id", teamID),
			zap.Error(err))
		return nil
	}

	s.opponents.Set(teamID, opponentID, ttlcache.DefaultTTL)
	return opponentID
}
