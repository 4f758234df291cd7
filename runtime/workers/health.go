package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"studymate/observability"
)

// HealthWorker periodically logs self process metrics (CPU, RAM) together
// with room/connection gauges and the monitoring counters.
type HealthWorker struct {
	log        *slog.Logger
	interval   time.Duration
	monitoring *observability.Monitoring
	// stats reports the registry's live room and connection counts.
	stats func() (rooms, conns int)
}

func NewHealthWorker(log *slog.Logger, interval time.Duration,
	monitoring *observability.Monitoring, stats func() (int, int)) *HealthWorker {
	return &HealthWorker{log: log, interval: interval, monitoring: monitoring, stats: stats}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	w.log.Info("Starting health worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cpu, ram, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			rooms, conns := w.stats()
			counters := w.monitoring.Snapshot()

			w.log.Info("Health report",
				"rooms", rooms,
				"connections", conns,
				"messages_persisted", counters.MessagesPersisted,
				"messages_rejected", counters.MessagesRejected,
				"events_dropped", counters.EventsDropped,
				"ticks_dropped", counters.TicksDropped,
				"cpu_percent", cpu,
				"ram_percent", ram,
			)
		}
	}
}

// selfStats retrieves CPU and memory usage for the given process.
func selfStats(p *process.Process) (float64, float32, error) {
	cpu, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		return 0, 0, err
	}
	return cpu, ram, nil
}
