package repository

import (
	"context"
	"errors"
	"fmt"

	"gamecredits/database"
	"gamecredits/models"

	"github.com/jackc/pgx/v5"
)

// StipendRunRepository implements the StipendRunRepository interface
type StipendRunRepository struct {
	q queryable
}

// NewStipendRunRepository creates a new stipend run repository
func NewStipendRunRepository(db *database.DB) *StipendRunRepository {
	return &StipendRunRepository{q: db.Pool}
}

// newStipendRunRepositoryWithTx creates a new stipend run repository with a transaction
func newStipendRunRepositoryWithTx(tx queryable) *StipendRunRepository {
	return &StipendRunRepository{q: tx}
}

// Record inserts a completed stipend run
func (r *StipendRunRepository) Record(ctx context.Context, run *models.StipendRun) error {
	query := `
		INSERT INTO stipend_runs (
			id, started_at, completed_at, amount_per_player,
			eligible_count, granted_count, skipped_count, failed_count,
			total_granted, error_summary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.q.Exec(ctx, query,
		run.ID,
		run.StartedAt,
		run.CompletedAt,
		run.AmountPerPlayer,
		run.EligibleCount,
		run.GrantedCount,
		run.SkippedCount,
		run.FailedCount,
		run.TotalGranted,
		run.ErrorSummary,
	)
	if err != nil {
		return fmt.Errorf("failed to record stipend run %s: %w", run.ID, err)
	}

	return nil
}

// GetLatest returns the most recently started run, or nil
func (r *StipendRunRepository) GetLatest(ctx context.Context) (*models.StipendRun, error) {
	query := `
		SELECT id, started_at, completed_at, amount_per_player,
		       eligible_count, granted_count, skipped_count, failed_count,
		       total_granted, error_summary
		FROM stipend_runs
		ORDER BY started_at DESC
		LIMIT 1`

	var run models.StipendRun
	err := r.q.QueryRow(ctx, query).Scan(
		&run.ID,
		&run.StartedAt,
		&run.CompletedAt,
		&run.AmountPerPlayer,
		&run.EligibleCount,
		&run.GrantedCount,
		&run.SkippedCount,
		&run.FailedCount,
		&run.TotalGranted,
		&run.ErrorSummary,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest stipend run: %w", err)
	}

	return &run, nil
}
