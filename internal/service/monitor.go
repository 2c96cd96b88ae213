package service

import (
	"context"
	"errors"
	"time"

	"github.com/Abra-CatAbra/foodsync-ai/internal/logger"
)

// Monitor repeats sync cycles on a fixed wall-clock interval until the
// context is cancelled. Cycles carry no state between them beyond the
// processed set; cancellation is observed at the sleep boundary, not
// mid-photo.
type Monitor struct {
	sync     *SyncService
	interval time.Duration
	logger   *logger.Logger
}

// NewMonitor creates a monitor running cycles every interval.
func NewMonitor(sync *SyncService, interval time.Duration, log *logger.Logger) *Monitor {
	return &Monitor{
		sync:     sync,
		interval: interval,
		logger:   log,
	}
}

// Run executes cycles until ctx is cancelled, returning nil on
// cancellation. A store failure terminates the loop with an error;
// retryable cycle errors (listing transport failures) are logged and the
// next tick tries again.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.WithField("interval", m.interval.String()).Info("Starting monitor loop")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if _, err := m.sync.RunCycle(ctx); err != nil {
			if errors.Is(err, ErrStoreFailure) {
				m.logger.WithError(err).Error("Processed store failed, stopping monitor")
				return err
			}
			m.logger.WithError(err).Error("Cycle failed, will retry next interval")
		}

		m.logger.WithField("interval", m.interval.String()).Info("Waiting until next cycle")
		select {
		case <-ctx.Done():
			m.logger.Info("Monitor loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}
