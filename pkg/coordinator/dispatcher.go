package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cuemby/ferret/pkg/events"
	"github.com/cuemby/ferret/pkg/metrics"
	"github.com/cuemby/ferret/pkg/types"
)

// ErrNoWorkers is returned when no live worker can accept a task.
var ErrNoWorkers = errors.New("no workers available")

// candidate is one live worker with the load signals the dispatcher orders
// by. Missing figures have already been imputed conservatively.
type candidate struct {
	workerID    string
	queueLength float64
	load        float64 // cpu + ram
}

// Dispatch selects the least-loaded worker and queues the task on it. The
// document enters the pending set before the push and is rolled back if the
// push fails. Returns the chosen worker and its new queue length.
func (c *Coordinator) Dispatch(ctx context.Context, task *types.DocumentTask) (string, int64, error) {
	if err := task.Validate(); err != nil {
		return "", 0, err
	}

	timer := metrics.NewTimer()

	workerID, err := c.selectWorker(ctx)
	if err != nil {
		metrics.DispatchFailed.Inc()
		return "", 0, err
	}

	c.index.AddPending(task.DocID)
	queueLength, err := c.broker.PushTask(ctx, workerID, task)
	if err != nil {
		c.index.RemovePending(task.DocID)
		metrics.DispatchFailed.Inc()
		c.updateIndexGauges()
		return "", 0, fmt.Errorf("failed to dispatch %s: %w", task.DocID, err)
	}

	timer.ObserveDuration(metrics.DispatchLatency)
	metrics.DocumentsDispatched.Inc()
	c.updateIndexGauges()

	c.logger.Info().
		Str("doc_id", task.DocID).
		Str("worker_id", workerID).
		Int64("queue_length", queueLength).
		Msg("Task dispatched")

	c.recordDispatched(task.DocID, workerID)
	c.publishEvent(&events.Event{
		Type:     events.EventDocumentDispatched,
		DocID:    task.DocID,
		WorkerID: workerID,
	})
	return workerID, queueLength, nil
}

// selectWorker orders live workers by (queue length, cpu+ram) ascending and
// returns the head. Ties break on worker ID so selection is deterministic.
func (c *Coordinator) selectWorker(ctx context.Context) (string, error) {
	workers, err := c.broker.ListWorkers(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to enumerate workers: %w", err)
	}
	if len(workers) == 0 {
		return "", ErrNoWorkers
	}

	candidates := make([]candidate, 0, len(workers))
	for _, workerID := range workers {
		load, err := c.broker.WorkerLoad(ctx, workerID)
		if err != nil {
			c.logger.Warn().Err(err).Str("worker_id", workerID).Msg("Could not read worker load, skipping")
			continue
		}
		if load.TTLSeconds == nil {
			// Status key expired between enumeration and read.
			c.logger.Debug().Str("worker_id", workerID).Msg("Worker status expired, skipping")
			continue
		}
		if *load.TTLSeconds < -1 {
			// -1 means an operator removed the expiry; anything below is
			// dead.
			continue
		}

		cand := candidate{workerID: workerID, queueLength: math.Inf(1), load: 200.0}
		if load.QueueLength != nil {
			cand.queueLength = float64(*load.QueueLength)
		}
		// Missing or unreadable figures count as fully loaded.
		cpu, ram := 100.0, 100.0
		if load.CPUPercent != nil {
			cpu = *load.CPUPercent
		}
		if load.RAMPercent != nil {
			ram = *load.RAMPercent
		}
		cand.load = cpu + ram
		candidates = append(candidates, cand)
	}

	if len(candidates) == 0 {
		return "", ErrNoWorkers
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].queueLength != candidates[j].queueLength {
			return candidates[i].queueLength < candidates[j].queueLength
		}
		if candidates[i].load != candidates[j].load {
			return candidates[i].load < candidates[j].load
		}
		return candidates[i].workerID < candidates[j].workerID
	})

	head := candidates[0]
	c.logger.Debug().
		Str("worker_id", head.workerID).
		Float64("queue_length", head.queueLength).
		Float64("load", head.load).
		Int("candidates", len(candidates)).
		Msg("Selected worker")
	return head.workerID, nil
}

func (c *Coordinator) recordDispatched(docID, workerID string) {
	if c.catalog == nil {
		return
	}
	rec := &types.DocumentRecord{
		DocID:        docID,
		WorkerID:     workerID,
		State:        types.DocumentStateDispatched,
		DispatchedAt: time.Now().UTC(),
	}
	if err := c.catalog.PutDocument(rec); err != nil {
		c.logger.Warn().Err(err).Str("doc_id", docID).Msg("Could not update document catalog")
	}
}
