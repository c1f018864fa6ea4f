package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/ferret/pkg/broker"
	"github.com/cuemby/ferret/pkg/log"
	"github.com/cuemby/ferret/pkg/metrics"
	"github.com/cuemby/ferret/pkg/textnorm"
	"github.com/cuemby/ferret/pkg/types"
	"github.com/rs/zerolog"
)

const (
	// popTimeout is how long one blocking pop waits before the loop checks
	// for shutdown and tries again.
	popTimeout = 5 * time.Second

	// retryDelay is the pause after a broker failure before the loop
	// retries.
	retryDelay = 5 * time.Second
)

// Worker is a long-running task consumer: it pops document tasks from its
// private queue, normalizes and counts terms, and publishes the partial
// index on the shared results channel. A background goroutine emits load
// heartbeats for the dispatcher.
type Worker struct {
	id       string
	broker   *broker.Client
	language string
	logger   zerolog.Logger

	heartbeat *heartbeat
}

// Config holds worker configuration
type Config struct {
	Broker   *broker.Client
	Language string // default language for tasks that carry none
}

// New creates a worker with a stable identity derived from the host and
// process.
func New(cfg Config) *Worker {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "local_host"
	}
	id := fmt.Sprintf("worker-%s-%d", hostname, os.Getpid())

	w := &Worker{
		id:       id,
		broker:   cfg.Broker,
		language: cfg.Language,
		logger:   log.WithWorkerID(id),
	}
	w.heartbeat = newHeartbeat(id, cfg.Broker)
	return w
}

// ID returns the worker's identity.
func (w *Worker) ID() string {
	return w.id
}

// Run executes the main loop until ctx is cancelled. The heartbeat emitter
// starts once as a background goroutine and dies with the context.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().
		Str("language", w.language).
		Msg("Worker starting")

	go w.heartbeat.run(ctx)

	for {
		if ctx.Err() != nil {
			w.logger.Info().Msg("Worker stopping")
			return
		}

		task, err := w.broker.PopTask(ctx, w.id, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info().Msg("Worker stopping")
				return
			}
			w.logger.Error().Err(err).Msg("Failed to pop task, retrying")
			metrics.TasksFailed.Inc()
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}
		if task == nil {
			// Queue empty within the timeout window.
			continue
		}

		w.processTask(ctx, task)
	}
}

// processTask normalizes one document and publishes its partial index.
// Failures are logged and the loop moves on: delivery is at most once.
func (w *Worker) processTask(ctx context.Context, task *types.DocumentTask) {
	if err := task.Validate(); err != nil {
		w.logger.Error().Err(err).Msg("Dropping malformed task")
		metrics.TasksFailed.Inc()
		return
	}

	language := task.Language
	if language == "" {
		language = w.language
	}
	taskLog := w.logger.With().Str("doc_id", task.DocID).Str("language", language).Logger()
	taskLog.Info().Int("content_len", len(task.Content)).Msg("Processing task")

	tokens := textnorm.Normalize(task.Content, language)
	if len(tokens) == 0 {
		// Publish the empty partial anyway so the coordinator can clear
		// the document from its pending set.
		taskLog.Debug().Msg("No tokens after normalization, publishing empty partial")
	}

	result := &types.PartialResult{
		WorkerID:     w.id,
		DocID:        task.DocID,
		PartialIndex: termFrequencies(tokens, task.DocID),
		Language:     language,
	}

	receivers, err := w.broker.PublishResult(ctx, result)
	if err != nil {
		taskLog.Error().Err(err).Msg("Failed to publish partial index")
		metrics.TasksFailed.Inc()
		return
	}
	if receivers == 0 {
		taskLog.Warn().Msg("Published partial index but no subscribers received it")
	} else {
		taskLog.Info().
			Int("terms", len(result.PartialIndex)).
			Int64("receivers", receivers).
			Msg("Published partial index")
	}
	metrics.TasksProcessed.Inc()
}

// termFrequencies counts token occurrences into the partial-index shape:
// every term maps to a single-entry map keyed by the document.
func termFrequencies(tokens []string, docID string) types.PartialIndex {
	partial := make(types.PartialIndex)
	for _, token := range tokens {
		inner, ok := partial[token]
		if !ok {
			inner = map[string]int{docID: 0}
			partial[token] = inner
		}
		inner[docID]++
	}
	return partial
}
