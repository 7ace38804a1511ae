package application

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// LoanDefaultWorker periodically defaults funded loans past their due date
type LoanDefaultWorker struct {
	sweeper       LoanSweeper
	sweepInterval time.Duration
	now           func() time.Time
}

// NewLoanDefaultWorker creates a new loan default worker
func NewLoanDefaultWorker(sweeper LoanSweeper, sweepInterval time.Duration) *LoanDefaultWorker {
	return &LoanDefaultWorker{
		sweeper:       sweeper,
		sweepInterval: sweepInterval,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start sweeps immediately, then once per sweep interval
func (w *LoanDefaultWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Infof("Loan default worker started, sweeping every %v", w.sweepInterval)

		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()

		w.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info("Loan default worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Loan default worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()

	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() { close(stopChan) })
	}
}

// RunOnce performs a single sweep and returns the number of loans defaulted
func (w *LoanDefaultWorker) RunOnce(ctx context.Context) int {
	defaulted, err := w.sweeper.SweepDefaultedLoans(ctx, w.now())
	if err != nil {
		log.Errorf("Error sweeping overdue loans: %v", err)
		return 0
	}

	for _, loan := range defaulted {
		log.WithFields(log.Fields{
			"loan_id":     loan.ID,
			"borrower_id": loan.BorrowerID,
			"amount":      loan.Amount,
		}).Info("Loan defaulted")
	}
	if len(defaulted) > 0 {
		log.WithField("count", len(defaulted)).Info("Completed loan default sweep")
	}
	return len(defaulted)
}
