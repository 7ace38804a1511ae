package service

import (
	"context"
	"fmt"
	"time"

	"gamecredits/models"
)

// clock returns the current time; services override it in tests
type clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// requireAdmin loads the acting player and checks the admin flag
func requireAdmin(ctx context.Context, uow UnitOfWork, playerID int64) (*models.Player, error) {
	player, err := requirePlayer(ctx, uow, playerID)
	if err != nil {
		return nil, err
	}
	if !player.IsAdmin {
		return nil, fmt.Errorf("%w: player %d is not an admin", ErrUnauthorized, playerID)
	}
	return player, nil
}

// requirePlayer loads a player or returns ErrNotFound
func requirePlayer(ctx context.Context, uow UnitOfWork, playerID int64) (*models.Player, error) {
	player, err := uow.PlayerRepository().GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", playerID, err)
	}
	if player == nil {
		return nil, fmt.Errorf("%w: player %d", ErrNotFound, playerID)
	}
	return player, nil
}
