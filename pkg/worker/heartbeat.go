package worker

import (
	"context"
	"math"
	"os"
	"time"

	"github.com/cuemby/ferret/pkg/broker"
	"github.com/cuemby/ferret/pkg/log"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	// heartbeatInterval is the status emission period; the record TTL is
	// three intervals so one missed beat does not mark the worker dead.
	heartbeatInterval = 2 * time.Second

	// minDelta is the change in CPU or RAM percent below which the hash
	// write is skipped. The TTL is still refreshed.
	minDelta = 0.01
)

// heartbeat periodically publishes this process's CPU and RAM usage to the
// worker's status record.
type heartbeat struct {
	workerID string
	broker   *broker.Client
	proc     *process.Process
	logger   zerolog.Logger

	prevCPU float64
	prevRAM float64
	first   bool
}

func newHeartbeat(workerID string, b *broker.Client) *heartbeat {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		// Load sampling degrades to zeros; the worker stays schedulable.
		logger := log.WithWorkerID(workerID)
		logger.Warn().Err(err).Msg("Cannot inspect own process, heartbeats will report zero load")
	}
	return &heartbeat{
		workerID: workerID,
		broker:   b,
		proc:     proc,
		logger:   log.WithWorkerID(workerID),
		first:    true,
	}
}

func (h *heartbeat) run(ctx context.Context) {
	// Prime the CPU counter so the first tick reports a real interval
	// instead of a lifetime average.
	h.sample()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (h *heartbeat) tick(ctx context.Context) {
	cpu, ram := h.sample()
	ttl := 3 * heartbeatInterval

	changed := h.first ||
		math.Abs(cpu-h.prevCPU) >= minDelta ||
		math.Abs(ram-h.prevRAM) >= minDelta

	if changed {
		if err := h.broker.SetStatus(ctx, h.workerID, cpu, ram, ttl); err != nil {
			h.logger.Warn().Err(err).Msg("Could not report status")
			return
		}
		h.prevCPU = cpu
		h.prevRAM = ram
		h.first = false
		h.logger.Debug().
			Float64("cpu", cpu).
			Float64("ram", ram).
			Msg("Reported status")
		return
	}

	// Unchanged load: keep the record alive without rewriting it.
	if err := h.broker.RefreshStatusTTL(ctx, h.workerID, ttl); err != nil {
		h.logger.Warn().Err(err).Msg("Could not refresh status TTL")
	}
}

// sample reads this process's CPU percent (raw, relative to one core) and
// RAM percent. Failures report zero.
func (h *heartbeat) sample() (cpu, ram float64) {
	if h.proc == nil {
		return 0, 0
	}
	if v, err := h.proc.Percent(0); err == nil {
		cpu = v
	}
	if v, err := h.proc.MemoryPercent(); err == nil {
		ram = float64(v)
	}
	return cpu, ram
}
