package service

import (
	"context"
	"fmt"
	"strings"

	"gamecredits/events"
	"gamecredits/models"

	log "github.com/sirupsen/logrus"
)

const maxUsernameLength = 100

// playerService implements the PlayerService interface
type playerService struct {
	uowFactory UnitOfWorkFactory
}

// NewPlayerService creates a new player service
func NewPlayerService(uowFactory UnitOfWorkFactory) PlayerService {
	return &playerService{
		uowFactory: uowFactory,
	}
}

// CreatePlayer registers a player with a zero balance
func (s *playerService) CreatePlayer(ctx context.Context, username string, isAdmin bool) (*models.Player, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if len(username) > maxUsernameLength {
		return nil, fmt.Errorf("%w: username exceeds %d characters", ErrValidation, maxUsernameLength)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	player, err := uow.PlayerRepository().Create(ctx, username, isAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	uow.EventBus().Publish(events.PlayerCreatedEvent{
		PlayerID: player.ID,
		Username: player.Username,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"playerID": player.ID,
		"username": player.Username,
		"isAdmin":  player.IsAdmin,
	}).Info("Created player")

	return player, nil
}

// GetPlayer returns a player or ErrNotFound
func (s *playerService) GetPlayer(ctx context.Context, playerID int64) (*models.Player, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return requirePlayer(ctx, uow, playerID)
}
