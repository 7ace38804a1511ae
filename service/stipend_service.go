package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamecredits/events"
	"gamecredits/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const maxRecordedStipendErrors = 5

// errStipendNotDue marks a player that became ineligible before their transaction ran
var errStipendNotDue = errors.New("stipend not due")

// stipendService implements the StipendService interface
type stipendService struct {
	uowFactory UnitOfWorkFactory
	amount     int64
	interval   time.Duration
	newRunID   func() uuid.UUID
	now        clock
}

// NewStipendService creates a new stipend service granting amount every interval
func NewStipendService(uowFactory UnitOfWorkFactory, amount int64, interval time.Duration) StipendService {
	return &stipendService{
		uowFactory: uowFactory,
		amount:     amount,
		interval:   interval,
		newRunID:   uuid.New,
		now:        utcNow,
	}
}

// GrantWeeklyStipends credits every eligible player. Each player is granted in
// its own transaction that re-checks eligibility under a row lock, so a failure
// never undoes earlier grants and a retried run never pays a player twice.
func (s *stipendService) GrantWeeklyStipends(ctx context.Context, now time.Time) (*models.StipendRun, error) {
	run := &models.StipendRun{
		ID:              s.newRunID(),
		StartedAt:       s.now(),
		AmountPerPlayer: s.amount,
	}
	cutoff := now.Add(-s.interval)

	candidates, err := s.listEligible(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	run.EligibleCount = len(candidates)
	if run.EligibleCount == 0 {
		run.CompletedAt = s.now()
		log.WithField("runID", run.ID).Debug("No players due a weekly stipend")
		return run, nil
	}

	var errorLines []string
	for _, player := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("stipend run interrupted: %w", err)
		}

		err := s.grantOne(ctx, player.ID, now)
		switch {
		case err == nil:
			run.GrantedCount++
			run.TotalGranted += s.amount
		case errors.Is(err, errStipendNotDue):
			run.SkippedCount++
		default:
			run.FailedCount++
			if len(errorLines) < maxRecordedStipendErrors {
				errorLines = append(errorLines, fmt.Sprintf("player %d: %v", player.ID, err))
			}
			log.WithFields(log.Fields{
				"runID":    run.ID,
				"playerID": player.ID,
				"error":    err,
			}).Error("Failed to grant weekly stipend")
		}
	}
	run.ErrorSummary = strings.Join(errorLines, "; ")
	run.CompletedAt = s.now()

	if err := s.recordRun(ctx, run); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"runID":        run.ID,
		"eligible":     run.EligibleCount,
		"granted":      run.GrantedCount,
		"skipped":      run.SkippedCount,
		"failed":       run.FailedCount,
		"totalGranted": run.TotalGranted,
	}).Info("Weekly stipend run completed")

	return run, nil
}

// GrantWeeklyStipendsAs runs the batch after checking the caller is an admin
func (s *stipendService) GrantWeeklyStipendsAs(ctx context.Context, adminID int64, now time.Time) (*models.StipendRun, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	_, err := requireAdmin(ctx, uow, adminID)
	uow.Rollback()
	if err != nil {
		return nil, err
	}

	return s.GrantWeeklyStipends(ctx, now)
}

// LastRun returns the most recent stipend run, or nil if none ran yet
func (s *stipendService) LastRun(ctx context.Context) (*models.StipendRun, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	run, err := uow.StipendRunRepository().GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest stipend run: %w", err)
	}
	return run, nil
}

func (s *stipendService) listEligible(ctx context.Context, cutoff time.Time) ([]*models.Player, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	players, err := uow.PlayerRepository().ListStipendEligible(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stipend-eligible players: %w", err)
	}
	return players, nil
}

// grantOne couples the last-stipend update and the credit in one transaction
func (s *stipendService) grantOne(ctx context.Context, playerID int64, now time.Time) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	player, err := uow.PlayerRepository().GetByIDForUpdate(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to lock player: %w", err)
	}
	if player == nil {
		return fmt.Errorf("%w: player %d", ErrNotFound, playerID)
	}
	if !player.IsStipendEligible(now, s.interval) {
		return errStipendNotDue
	}

	if err := uow.PlayerRepository().MarkStipendGranted(ctx, playerID, now); err != nil {
		return fmt.Errorf("failed to mark stipend granted: %w", err)
	}

	if _, err := NewLedger(uow).Apply(ctx, ApplyRequest{
		PlayerID:    playerID,
		Amount:      s.amount,
		Category:    models.LedgerCategoryWeeklyStipend,
		Description: fmt.Sprintf("Weekly stipend for week of %s", now.Format("2006-01-02")),
	}); err != nil {
		return err
	}

	return uow.Commit()
}

func (s *stipendService) recordRun(ctx context.Context, run *models.StipendRun) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.StipendRunRepository().Record(ctx, run); err != nil {
		return fmt.Errorf("failed to record stipend run: %w", err)
	}

	uow.EventBus().Publish(events.StipendRunCompletedEvent{
		RunID:        run.ID.String(),
		GrantedCount: run.GrantedCount,
		FailedCount:  run.FailedCount,
		TotalGranted: run.TotalGranted,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
