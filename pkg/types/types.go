package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// DocumentTask is one unit of indexing work. The coordinator serializes it
// onto the selected worker's queue; exactly one worker pops and processes it.
type DocumentTask struct {
	DocID    string `json:"doc_id"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// Validate checks the fields required for a task to be processable.
func (t *DocumentTask) Validate() error {
	if t.DocID == "" {
		return fmt.Errorf("task missing doc_id")
	}
	if t.Content == "" {
		return fmt.Errorf("task %s missing content", t.DocID)
	}
	return nil
}

// PartialIndex is the contribution of a single document: term -> doc_id ->
// frequency. Every inner map is expected to hold exactly one entry, keyed by
// the document the partial was computed for.
type PartialIndex map[string]map[string]int

// PartialResult is the record a worker publishes on the results channel after
// processing one document.
type PartialResult struct {
	WorkerID     string       `json:"worker_id"`
	DocID        string       `json:"doc_id"`
	PartialIndex PartialIndex `json:"partial_index"`
	Language     string       `json:"language,omitempty"`
}

// Validate checks a result record against the partial-index invariant:
// every inner map holds exactly one entry, keyed by the outer DocID. Records
// failing this are dropped whole by the results listener; the document they
// claim to cover stays pending. An empty partial index is valid (a document
// that normalized to zero tokens).
func (r *PartialResult) Validate() error {
	if r.DocID == "" {
		return fmt.Errorf("partial result missing doc_id")
	}
	if r.PartialIndex == nil {
		return fmt.Errorf("partial result for %s missing partial_index", r.DocID)
	}
	for term, docFreqs := range r.PartialIndex {
		if len(docFreqs) != 1 {
			return fmt.Errorf("partial result for %s: term %q maps %d documents, want 1", r.DocID, term, len(docFreqs))
		}
		if _, ok := docFreqs[r.DocID]; !ok {
			return fmt.Errorf("partial result for %s: term %q does not reference its own document", r.DocID, term)
		}
	}
	return nil
}

// WorkerLoad is a point-in-time view of one worker as observed through the
// broker. Pointer fields are nil when the broker record lacks them.
type WorkerLoad struct {
	WorkerID    string   `json:"worker_id"`
	CPUPercent  *float64 `json:"cpu_percent"`
	RAMPercent  *float64 `json:"ram_percent"`
	TTLSeconds  *int64   `json:"status_ttl_seconds"`
	QueueLength *int64   `json:"queue_length"`
}

// DocFrequency is one search hit: a document and the raw term frequency.
// It marshals as the two-element array ["doc_id", freq] used on the wire.
type DocFrequency struct {
	DocID     string
	Frequency int
}

// MarshalJSON renders the pair as a JSON array.
func (d DocFrequency) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{d.DocID, d.Frequency})
}

// UnmarshalJSON parses the ["doc_id", freq] array form.
func (d *DocFrequency) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &d.DocID); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &d.Frequency)
}

// DocumentState tracks where a document is in its indexing lifecycle.
type DocumentState string

const (
	DocumentStateDispatched DocumentState = "dispatched"
	DocumentStateIndexed    DocumentState = "indexed"
)

// DocumentRecord is the catalog entry the coordinator keeps per document.
// It is bookkeeping only; the inverted index is the source of truth for
// search.
type DocumentRecord struct {
	DocID        string        `json:"doc_id"`
	WorkerID     string        `json:"worker_id"`
	State        DocumentState `json:"state"`
	Terms        int           `json:"terms"`
	DispatchedAt time.Time     `json:"dispatched_at"`
	IndexedAt    time.Time     `json:"indexed_at,omitempty"`
}
