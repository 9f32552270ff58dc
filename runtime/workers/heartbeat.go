package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-gateway/observability"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker periodically logs process health (CPU, RSS, OS status)
// together with a snapshot of the gateway counters.
type HeartbeatWorker struct {
	log      *slog.Logger
	monitor  *observability.Monitoring
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, monitor *observability.Monitoring,
	interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, monitor: monitor, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting gateway heartbeat worker", "interval", w.interval)
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
			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			stats := w.monitor.Snapshot()
			w.log.Info("heartbeat",
				"pid_status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"sessions_connected", stats.SessionsConnected,
				"sessions_closed", stats.SessionsClosed,
				"envelopes_published", stats.EnvelopesPublished,
				"envelopes_delivered", stats.EnvelopesDelivered,
				"envelopes_dropped", stats.EnvelopesDropped)
		}
	}
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
