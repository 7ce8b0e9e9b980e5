// internal/worker/sweeper.go
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/edumarket-backend/internal/services"
)

// Sweeper periodically releases matured escrow holdings. The sweep itself
// is guarded per order, so running one sweeper per instance is safe.
type Sweeper struct {
	ledger   *services.LedgerService
	interval time.Duration
}

func NewSweeper(ledger *services.LedgerService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Sweeper{
		ledger:   ledger,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled. One sweep fires immediately on start
// so a restart does not delay releases by a full interval.
func (w *Sweeper) Run(ctx context.Context) {
	logrus.WithField("interval", w.interval).Info("Escrow sweeper started")

	w.sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Escrow sweeper stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *Sweeper) sweep() {
	if _, err := w.ledger.SweepMaturedHoldings(); err != nil {
		logrus.WithError(err).Error("Escrow sweep failed")
	}
}
