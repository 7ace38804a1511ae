package service

import (
	"context"
	"fmt"

	"gamecredits/models"

	log "github.com/sirupsen/logrus"
)

// ledgerService implements the LedgerService interface
type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
	}
}

// Apply posts a single entry in its own transaction
func (s *ledgerService) Apply(ctx context.Context, req ApplyRequest) (*models.LedgerEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entry, err := NewLedger(uow).Apply(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"playerID":     req.PlayerID,
		"amount":       req.Amount,
		"category":     req.Category,
		"balanceAfter": entry.BalanceAfter,
	}).Info("Applied ledger adjustment")

	return entry, nil
}

// GetBalance returns the player's current balance
func (s *ledgerService) GetBalance(ctx context.Context, playerID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	player, err := requirePlayer(ctx, uow, playerID)
	if err != nil {
		return 0, err
	}

	return player.Balance, nil
}

// GetHistory returns the player's newest ledger entries
func (s *ledgerService) GetHistory(ctx context.Context, playerID int64, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requirePlayer(ctx, uow, playerID); err != nil {
		return nil, err
	}

	entries, err := uow.LedgerRepository().ListByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}

	return entries, nil
}

// Reconcile reads the balance and every entry under a row lock so both come from the same state
func (s *ledgerService) Reconcile(ctx context.Context, playerID int64) (*models.ReconciliationReport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	player, err := uow.PlayerRepository().GetByIDForUpdate(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock player %d: %w", playerID, err)
	}
	if player == nil {
		return nil, fmt.Errorf("%w: player %d", ErrNotFound, playerID)
	}

	entries, err := uow.LedgerRepository().ListAllByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}

	report := models.ReconcileEntries(playerID, player.Balance, entries)
	if !report.IsConsistent() {
		log.WithFields(log.Fields{
			"playerID":     playerID,
			"balance":      report.Balance,
			"entrySum":     report.EntrySum,
			"brokenChains": report.BrokenChains,
		}).Error("Ledger does not reconcile with balance")
	}

	return report, nil
}
