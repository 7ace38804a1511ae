package application

import (
	"context"
	"time"

	"gamecredits/models"
)

// StipendGranter runs one stipend batch
type StipendGranter interface {
	GrantWeeklyStipends(ctx context.Context, now time.Time) (*models.StipendRun, error)
}

// LoanSweeper marks overdue funded loans as defaulted
type LoanSweeper interface {
	SweepDefaultedLoans(ctx context.Context, now time.Time) ([]*models.Loan, error)
}
