package models

import (
	"time"

	"github.com/google/uuid"
)

// StipendRun records one pass of the weekly stipend batch
type StipendRun struct {
	ID              uuid.UUID `db:"id"`
	StartedAt       time.Time `db:"started_at"`
	CompletedAt     time.Time `db:"completed_at"`
	AmountPerPlayer int64     `db:"amount_per_player"`
	EligibleCount   int       `db:"eligible_count"`
	GrantedCount    int       `db:"granted_count"`
	SkippedCount    int       `db:"skipped_count"` // became ineligible before its transaction ran
	FailedCount     int       `db:"failed_count"`
	TotalGranted    int64     `db:"total_granted"`
	ErrorSummary    string    `db:"error_summary"`
}
