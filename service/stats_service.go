package service

import (
	"context"
	"fmt"
	"time"

	"gamecredits/models"
)

const maxLeaderboardLimit = 100

// statsService implements the StatsService interface
type statsService struct {
	uowFactory UnitOfWorkFactory
	window     time.Duration
	now        clock
}

// NewStatsService creates a new stats service; window bounds the leaderboard's weekly change
func NewStatsService(uowFactory UnitOfWorkFactory, window time.Duration) StatsService {
	return &statsService{
		uowFactory: uowFactory,
		window:     window,
		now:        utcNow,
	}
}

// GetLeaderboard returns the top players by balance
func (s *statsService) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 || limit > maxLeaderboardLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, maxLeaderboardLimit)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.StatsRepository().GetLeaderboard(ctx, limit, s.now().Add(-s.window))
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	for i, entry := range entries {
		entry.Rank = i + 1
	}

	return entries, nil
}

// GetUserStats returns betting totals and the player's balance rank
func (s *statsService) GetUserStats(ctx context.Context, playerID int64) (*models.UserStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	player, err := requirePlayer(ctx, uow, playerID)
	if err != nil {
		return nil, err
	}

	betStats, err := uow.StatsRepository().GetBetStats(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet stats: %w", err)
	}

	above, err := uow.PlayerRepository().CountWithBalanceAbove(ctx, player.Balance)
	if err != nil {
		return nil, fmt.Errorf("failed to get rank: %w", err)
	}

	completed, err := uow.ChallengeRepository().CountApprovedByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed challenges: %w", err)
	}

	totalUsers, err := uow.PlayerRepository().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count players: %w", err)
	}

	return &models.UserStats{
		PlayerID:     playerID,
		Balance:      player.Balance,
		TotalWagered: betStats.TotalWagered,
		TotalWon:     betStats.TotalWon,
		WinRate:      betStats.WinRate(),
		ActiveBets:   betStats.ActiveBets,
		TotalStaked:  betStats.TotalStaked,
		Rank:         above + 1,
		TotalUsers:   totalUsers,

		ChallengesCompleted: completed,
	}, nil
}
