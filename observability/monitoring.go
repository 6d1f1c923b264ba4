package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"

	"guardian-chat/domain"
	"guardian-chat/domain/event"
)

// Stats aggregates chat and process metrics for the stats endpoint.
type Stats struct {
	Rooms                  int     `json:"rooms"`
	MessagesPosted         uint64  `json:"messages_posted"`
	RiskUpdates            uint64  `json:"risk_updates"`
	ClassificationFailures uint64  `json:"classification_failures"`
	SystemEvents           uint64  `json:"system_events"`
	AllocMemMb             uint64  `json:"alloc_mem_mb"`
	NumGC                  uint32  `json:"num_gc"`
	Goroutines             int     `json:"goroutines"`
	CpuPercent             float64 `json:"cpu_percent"`
	RamBytes               uint64  `json:"ram_bytes"`
	UptimeSeconds          int64   `json:"uptime_seconds"`
}

// Monitor counts domain events as they flow through the fanout. It is
// registered as a permanent sink so every room feeds the same counters.
type Monitor struct {
	log     *slog.Logger
	proc    *process.Process
	started time.Time

	messagesPosted         uint64
	riskUpdates            uint64
	classificationFailures uint64
	systemEvents           uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	// Process handle failures are tolerated, CPU and RAM just read as zero.
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Failed to attach process monitor", "err", err)
		p = nil
	}
	return &Monitor{log: log, proc: p, started: time.Now()}
}

func (m *Monitor) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessagePosted:
		atomic.AddUint64(&m.messagesPosted, 1)
	case event.RiskUpdate:
		atomic.AddUint64(&m.riskUpdates, 1)
		if evt.Message.Risk.Level == domain.RiskError {
			atomic.AddUint64(&m.classificationFailures, 1)
		}
	case event.SystemMessage:
		atomic.AddUint64(&m.systemEvents, 1)
	}
	return nil
}

func (m *Monitor) Snapshot(rooms int) Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := Stats{
		Rooms:                  rooms,
		MessagesPosted:         atomic.LoadUint64(&m.messagesPosted),
		RiskUpdates:            atomic.LoadUint64(&m.riskUpdates),
		ClassificationFailures: atomic.LoadUint64(&m.classificationFailures),
		SystemEvents:           atomic.LoadUint64(&m.systemEvents),
		AllocMemMb:             mem.Alloc / 1024 / 1024,
		NumGC:                  mem.NumGC,
		Goroutines:             runtime.NumGoroutine(),
		UptimeSeconds:          int64(time.Since(m.started).Seconds()),
	}

	if m.proc != nil {
		if memInfo, err := m.proc.MemoryInfo(); err == nil {
			stats.RamBytes = memInfo.RSS
		}
		if cpu, err := m.proc.CPUPercent(); err == nil {
			stats.CpuPercent = cpu
		}
	}
	return stats
}
