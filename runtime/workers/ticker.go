package workers

import (
	"context"
	"log/slog"
	"time"
)

// TickerWorker is the single global clock: every interval it asks the
// orchestrator to advance each live room by one unit. The interval is
// injected so tests can speed it up or bypass the worker entirely and call
// the tick function directly.
type TickerWorker struct {
	interval time.Duration
	tick     func()
	log      *slog.Logger
}

func NewTickerWorker(interval time.Duration, tick func(), log *slog.Logger) *TickerWorker {
	return &TickerWorker{interval: interval, tick: tick, log: log}
}

func (w *TickerWorker) Run(ctx context.Context) error {
	w.log.Info("Starting timer scheduler", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping timer scheduler")
			return ctx.Err()
		case <-ticker.C:
			w.tick()
		}
	}
}
