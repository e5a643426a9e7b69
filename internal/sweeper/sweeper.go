// Package sweeper runs the periodic dissolution sweep: workspaces in
// wind-down whose retention period has elapsed are dissolved.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweepable dissolves eligible workspaces; workspaces.Service implements it.
type Sweepable interface {
	Sweep(ctx context.Context) (int, error)
}

// Runner executes the sweep on a fixed interval.
type Runner struct {
	lifecycle Sweepable
	interval  time.Duration
	logger    *zap.Logger
}

// NewRunner creates a sweep runner.
func NewRunner(lifecycle Sweepable, interval time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{lifecycle: lifecycle, interval: interval, logger: logger}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("dissolution sweeper starting", zap.Duration("interval", r.interval))
	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("dissolution sweeper stopping")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Runner) sweep(ctx context.Context) {
	dissolved, err := r.lifecycle.Sweep(ctx)
	if err != nil {
		r.logger.Error("sweep failed", zap.Error(err))
		return
	}
	if dissolved > 0 {
		r.logger.Info("sweep completed", zap.Int("dissolved", dissolved))
	} else {
		r.logger.Debug("sweep completed, nothing to dissolve")
	}
}
