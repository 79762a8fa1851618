// Package scheduler drives the periodic sweep.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"signupd/internal/application"
)

// Sweeper is the periodic task the scheduler runs.
type Sweeper interface {
	Sweep(ctx context.Context) (application.SweepReport, error)
}

// Run sweeps once at start and then every interval until ctx is done. A
// failing sweep is logged and the next tick tries again.
func Run(ctx context.Context, s Sweeper, interval time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.WithField("interval", interval).Info("sweeper started")
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("sweep failed")
		}
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
