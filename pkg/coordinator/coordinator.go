package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/cuemby/ferret/pkg/broker"
	"github.com/cuemby/ferret/pkg/events"
	"github.com/cuemby/ferret/pkg/index"
	"github.com/cuemby/ferret/pkg/log"
	"github.com/cuemby/ferret/pkg/metrics"
	"github.com/cuemby/ferret/pkg/storage"
	"github.com/cuemby/ferret/pkg/textnorm"
	"github.com/cuemby/ferret/pkg/types"
	"github.com/rs/zerolog"
)

// listenerJoinTimeout bounds how long Stop waits for the results listener
// to exit before abandoning it.
const listenerJoinTimeout = 10 * time.Second

// ErrEmptyQuery is returned for a search with no term.
var ErrEmptyQuery = errors.New("search term cannot be empty")

// Config holds coordinator configuration
type Config struct {
	Broker         *broker.Client
	Index          *index.Index
	Catalog        *storage.Store // optional; nil disables the catalog
	Events         *events.Broker
	Language       string // language used for query stemming and dispatched tasks
	CheckpointPath string
}

// Coordinator owns the global inverted index and the pending-documents set,
// dispatches tasks to workers, and fuses their results.
type Coordinator struct {
	broker         *broker.Client
	index          *index.Index
	catalog        *storage.Store
	events         *events.Broker
	language       string
	checkpointPath string
	logger         zerolog.Logger

	listenerCancel context.CancelFunc
	listenerDone   chan struct{}
}

// New creates a coordinator.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		broker:         cfg.Broker,
		index:          cfg.Index,
		catalog:        cfg.Catalog,
		events:         cfg.Events,
		language:       cfg.Language,
		checkpointPath: cfg.CheckpointPath,
		logger:         log.WithComponent("coordinator"),
	}
}

// Start loads the checkpoint (if any) and starts the results listener.
func (c *Coordinator) Start() {
	terms := c.index.LoadCheckpoint(c.checkpointPath)
	c.publishEvent(&events.Event{
		Type:    events.EventCheckpointLoaded,
		Message: "checkpoint loaded at startup",
	})
	c.updateIndexGauges()
	c.logger.Info().
		Int("terms", terms).
		Str("checkpoint", c.checkpointPath).
		Msg("Coordinator started")

	ctx, cancel := context.WithCancel(context.Background())
	c.listenerCancel = cancel
	c.listenerDone = make(chan struct{})
	go func() {
		defer close(c.listenerDone)
		c.broker.SubscribeResults(ctx, c.handleResult)
	}()
}

// Stop shuts down the results listener and saves a final checkpoint. The
// listener join is bounded; a wedged subscription is abandoned.
func (c *Coordinator) Stop() {
	if c.listenerCancel != nil {
		c.listenerCancel()
		select {
		case <-c.listenerDone:
			c.logger.Info().Msg("Results listener stopped")
		case <-time.After(listenerJoinTimeout):
			c.logger.Warn().Msg("Results listener did not stop in time, abandoning")
		}
	}

	if err := c.SaveCheckpoint(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to save checkpoint on shutdown")
	}
	c.logger.Info().Msg("Coordinator stopped")
}

// handleResult validates and fuses one partial result from the channel.
func (c *Coordinator) handleResult(result *types.PartialResult) {
	resultLog := c.logger.With().
		Str("doc_id", result.DocID).
		Str("worker_id", result.WorkerID).
		Logger()

	if err := result.Validate(); err != nil {
		resultLog.Error().Err(err).Msg("Dropping invalid partial result")
		metrics.ResultsRejected.Inc()
		c.publishEvent(&events.Event{
			Type:     events.EventDocumentRejected,
			DocID:    result.DocID,
			WorkerID: result.WorkerID,
			Message:  err.Error(),
		})
		return
	}

	fused, wasPending := c.index.FuseResult(result.PartialIndex, result.DocID)
	if !wasPending {
		// Legitimate after a coordinator restart cleared the pending set,
		// or after a duplicate publish; the fusion itself stands.
		resultLog.Warn().Msg("Received result for non-pending document")
	}
	resultLog.Info().Int("terms", fused).Msg("Partial index fused")

	metrics.DocumentsFused.Inc()
	c.updateIndexGauges()
	c.recordIndexed(result, fused)
	c.publishEvent(&events.Event{
		Type:     events.EventDocumentFused,
		DocID:    result.DocID,
		WorkerID: result.WorkerID,
	})
}

// Search resolves a single-term query against the global index: the term is
// stemmed with the coordinator's language and the first stem looked up.
// Results are sorted by frequency descending.
func (c *Coordinator) Search(term string) ([]types.DocFrequency, error) {
	if term == "" {
		return nil, ErrEmptyQuery
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SearchDuration)

	stems := textnorm.Normalize(term, c.language)
	if len(stems) == 0 {
		return []types.DocFrequency{}, nil
	}
	stem := stems[0]

	results := c.index.Search(stem)
	c.logger.Debug().
		Str("term", term).
		Str("stem", stem).
		Int("hits", len(results)).
		Msg("Search resolved")
	return results, nil
}

// Status reports the index size, pending count, and catalogued documents.
func (c *Coordinator) Status() (terms, pending, catalogued int) {
	terms, pending = c.index.Stats()
	if c.catalog != nil {
		if n, err := c.catalog.CountDocuments(); err == nil {
			catalogued = n
		}
	}
	return terms, pending, catalogued
}

// WorkersStatus enumerates live workers with their load figures, sorted by
// worker ID. A negative TTL (operator-set "no expiry") is reported as null.
func (c *Coordinator) WorkersStatus(ctx context.Context) ([]types.WorkerLoad, error) {
	workers, err := c.broker.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]types.WorkerLoad, 0, len(workers))
	for _, workerID := range workers {
		load, err := c.broker.WorkerLoad(ctx, workerID)
		if err != nil {
			return nil, err
		}
		if load.TTLSeconds != nil && *load.TTLSeconds < 0 {
			load.TTLSeconds = nil
		}
		statuses = append(statuses, *load)
	}
	metrics.WorkersLive.Set(float64(len(statuses)))
	return statuses, nil
}

// SaveCheckpoint persists the index to the configured path.
func (c *Coordinator) SaveCheckpoint() error {
	if err := c.index.SaveCheckpoint(c.checkpointPath); err != nil {
		return err
	}
	c.publishEvent(&events.Event{Type: events.EventCheckpointSaved})
	return nil
}

// LoadCheckpoint replaces the index from the configured path and clears the
// pending set. Returns the number of terms loaded.
func (c *Coordinator) LoadCheckpoint() int {
	terms := c.index.LoadCheckpoint(c.checkpointPath)
	c.updateIndexGauges()
	c.publishEvent(&events.Event{Type: events.EventCheckpointLoaded})
	return terms
}

// Ping reports whether the broker is reachable.
func (c *Coordinator) Ping(ctx context.Context) error {
	return c.broker.Ping(ctx)
}

// Language returns the coordinator's default processing language.
func (c *Coordinator) Language() string {
	return c.language
}

// Index exposes the underlying index, used by tests and diagnostics.
func (c *Coordinator) Index() *index.Index {
	return c.index
}

func (c *Coordinator) updateIndexGauges() {
	terms, pending := c.index.Stats()
	metrics.IndexTerms.Set(float64(terms))
	metrics.DocumentsPending.Set(float64(pending))
}

func (c *Coordinator) publishEvent(event *events.Event) {
	if c.events != nil {
		c.events.Publish(event)
	}
}

func (c *Coordinator) recordIndexed(result *types.PartialResult, fusedTerms int) {
	if c.catalog == nil {
		return
	}
	rec := &types.DocumentRecord{
		DocID:     result.DocID,
		WorkerID:  result.WorkerID,
		State:     types.DocumentStateIndexed,
		Terms:     fusedTerms,
		IndexedAt: time.Now().UTC(),
	}
	if prev, err := c.catalog.GetDocument(result.DocID); err == nil {
		rec.DispatchedAt = prev.DispatchedAt
	}
	if err := c.catalog.PutDocument(rec); err != nil {
		c.logger.Warn().Err(err).Str("doc_id", result.DocID).Msg("Could not update document catalog")
	}
}
