package index

import (
	"sort"
	"sync"

	"github.com/cuemby/ferret/pkg/log"
	"github.com/cuemby/ferret/pkg/types"
	"github.com/rs/zerolog"
)

// Index owns the coordinator's mutable state: the global inverted index and
// the set of documents dispatched but not yet fused. A single mutex guards
// both; every fusion, query read, and pending-set mutation happens under it.
type Index struct {
	mu      sync.Mutex
	terms   map[string]map[string]int
	pending map[string]struct{}
	logger  zerolog.Logger
}

// New creates an empty index.
func New() *Index {
	return &Index{
		terms:   make(map[string]map[string]int),
		pending: make(map[string]struct{}),
		logger:  log.WithComponent("index"),
	}
}

// FuseResult merges the partial index for docID into the global index and
// clears docID from the pending set, all under one lock acquisition. It
// returns the number of terms fused and whether the document was pending.
//
// Validation is per-term: a term whose inner map does not key docID, or whose
// frequency is negative, is skipped with a log entry while the remaining
// terms still fuse. Fused frequencies overwrite any previous value for the
// same (term, doc) pair, so re-indexing converges to the newest counts.
func (ix *Index) FuseResult(partial types.PartialIndex, docID string) (int, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	fused := 0
	for term, docFreqs := range partial {
		freq, ok := docFreqs[docID]
		if !ok {
			ix.logger.Error().
				Str("term", term).
				Str("doc_id", docID).
				Msg("Partial index term does not reference its own document, skipping term")
			continue
		}
		if freq < 0 {
			ix.logger.Warn().
				Str("term", term).
				Str("doc_id", docID).
				Int("frequency", freq).
				Msg("Negative frequency in partial index, skipping term")
			continue
		}
		inner, ok := ix.terms[term]
		if !ok {
			inner = make(map[string]int)
			ix.terms[term] = inner
		}
		inner[docID] = freq
		fused++
	}

	_, wasPending := ix.pending[docID]
	delete(ix.pending, docID)
	return fused, wasPending
}

// AddPending records that a task for docID has been dispatched.
func (ix *Index) AddPending(docID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.pending[docID] = struct{}{}
}

// RemovePending rolls back a pending entry after a failed dispatch.
func (ix *Index) RemovePending(docID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.pending, docID)
}

// HasPending reports whether docID is awaiting a result.
func (ix *Index) HasPending(docID string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.pending[docID]
	return ok
}

// Search returns the documents containing stem, sorted by frequency
// descending with doc_id ascending as the tie-break. An unknown stem yields
// an empty slice.
func (ix *Index) Search(stem string) []types.DocFrequency {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	docFreqs, ok := ix.terms[stem]
	if !ok {
		return []types.DocFrequency{}
	}

	results := make([]types.DocFrequency, 0, len(docFreqs))
	for docID, freq := range docFreqs {
		results = append(results, types.DocFrequency{DocID: docID, Frequency: freq})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Frequency != results[j].Frequency {
			return results[i].Frequency > results[j].Frequency
		}
		return results[i].DocID < results[j].DocID
	})
	return results
}

// Lookup returns the frequency recorded for (stem, docID), if any.
func (ix *Index) Lookup(stem, docID string) (int, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	freq, ok := ix.terms[stem][docID]
	return freq, ok
}

// Stats returns the number of distinct terms and pending documents.
func (ix *Index) Stats() (terms int, pending int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.terms), len(ix.pending)
}

// Snapshot returns a deep copy of the term map, safe to serialize without
// holding the index lock.
func (ix *Index) Snapshot() map[string]map[string]int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	snapshot := make(map[string]map[string]int, len(ix.terms))
	for term, docFreqs := range ix.terms {
		inner := make(map[string]int, len(docFreqs))
		for docID, freq := range docFreqs {
			inner[docID] = freq
		}
		snapshot[term] = inner
	}
	return snapshot
}

// Replace swaps in a new term map and clears the pending set. Used when a
// checkpoint is loaded: documents in flight across a reload fuse later with
// a logged warning and are safe to re-submit.
func (ix *Index) Replace(terms map[string]map[string]int) {
	if terms == nil {
		terms = make(map[string]map[string]int)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.terms = terms
	ix.pending = make(map[string]struct{})
}
