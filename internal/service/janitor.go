package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/arbiterhq/arbiter/internal/config"
)

// Janitor periodically sweeps terminal checkpoints past the retention age.
// It only ever calls Sweep, which by contract never touches waiting
// entries, so a pending human decision can never be retired by retention.
type Janitor struct {
	checkpoints *CheckpointService
	interval    time.Duration
	maxAge      time.Duration
}

// NewJanitor creates a retention janitor from config. Returns nil when the
// sweep interval is zero: sweeping is then operator-triggered only.
func NewJanitor(checkpoints *CheckpointService, cfg config.Retention) *Janitor {
	if cfg.SweepInterval <= 0 {
		return nil
	}
	return &Janitor{
		checkpoints: checkpoints,
		interval:    cfg.SweepInterval,
		maxAge:      cfg.MaxAge,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	slog.Info("retention janitor started", "interval", j.interval, "max_age", j.maxAge)
	for {
		select {
		case <-ctx.Done():
			slog.Info("retention janitor stopped")
			return nil
		case <-ticker.C:
			j.checkpoints.Sweep(j.maxAge)
		}
	}
}
