package application

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// StipendWorker periodically grants weekly stipends to eligible players.
// The check interval may be shorter than the stipend interval.
type StipendWorker struct {
	granter       StipendGranter
	checkInterval time.Duration
	now           func() time.Time
}

// NewStipendWorker creates a new stipend worker
func NewStipendWorker(granter StipendGranter, checkInterval time.Duration) *StipendWorker {
	return &StipendWorker{
		granter:       granter,
		checkInterval: checkInterval,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start runs one batch immediately, then one per check interval
func (w *StipendWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Infof("Stipend worker started, checking every %v", w.checkInterval)

		ticker := time.NewTicker(w.checkInterval)
		defer ticker.Stop()

		w.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info("Stipend worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Stipend worker shutting down (stop requested)...")
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

// RunOnce grants stipends for a single tick
func (w *StipendWorker) RunOnce(ctx context.Context) {
	run, err := w.granter.GrantWeeklyStipends(ctx, w.now())
	if err != nil {
		log.Errorf("Error granting weekly stipends: %v", err)
		return
	}

	if run.EligibleCount == 0 {
		log.Debug("No players eligible for a stipend")
		return
	}

	fields := log.Fields{
		"run_id":        run.ID.String(),
		"eligible":      run.EligibleCount,
		"granted":       run.GrantedCount,
		"skipped":       run.SkippedCount,
		"failed":        run.FailedCount,
		"total_granted": run.TotalGranted,
	}
	if run.FailedCount > 0 {
		log.WithFields(fields).Warn("Stipend run completed with failures")
		return
	}
	log.WithFields(fields).Info("Stipend run completed")
}
