package index

import (
	"math/rand"
	"testing"

	"github.com/cuemby/ferret/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func partialFor(docID string, freqs map[string]int) types.PartialIndex {
	p := make(types.PartialIndex, len(freqs))
	for term, f := range freqs {
		p[term] = map[string]int{docID: f}
	}
	return p
}

func TestFuseResult_Basic(t *testing.T) {
	ix := New()
	ix.AddPending("d1.txt")

	fused, wasPending := ix.FuseResult(partialFor("d1.txt", map[string]int{
		"quick": 1, "brown": 1, "fox": 1,
	}), "d1.txt")

	assert.Equal(t, 3, fused)
	assert.True(t, wasPending)
	assert.False(t, ix.HasPending("d1.txt"))

	freq, ok := ix.Lookup("fox", "d1.txt")
	require.True(t, ok)
	assert.Equal(t, 1, freq)
}

func TestFuseResult_OverwriteConvergesToNewCounts(t *testing.T) {
	ix := New()

	ix.FuseResult(partialFor("d1.txt", map[string]int{"quick": 1, "fox": 1}), "d1.txt")
	ix.FuseResult(partialFor("d1.txt", map[string]int{"fox": 3}), "d1.txt")

	freq, ok := ix.Lookup("fox", "d1.txt")
	require.True(t, ok)
	assert.Equal(t, 3, freq)

	// Terms absent from the re-index are not removed; the stale entry stays.
	freq, ok = ix.Lookup("quick", "d1.txt")
	require.True(t, ok)
	assert.Equal(t, 1, freq)
}

func TestFuseResult_CrossDocumentContaminationRejected(t *testing.T) {
	ix := New()
	ix.AddPending("d9.txt")

	// The inner map references a different document than the record claims.
	partial := types.PartialIndex{"foo": {"dX.txt": 3}}
	fused, _ := ix.FuseResult(partial, "d9.txt")

	assert.Equal(t, 0, fused)
	_, ok := ix.Lookup("foo", "d9.txt")
	assert.False(t, ok)
	_, ok = ix.Lookup("foo", "dX.txt")
	assert.False(t, ok)

	// FuseResult clears pending unconditionally; the rejected-record policy
	// of leaving the doc pending belongs to the caller, which skips fusion
	// entirely for records that fail outer validation. A per-term rejection
	// like this one still counts as a processed result.
	assert.False(t, ix.HasPending("d9.txt"))
}

func TestFuseResult_MixedRecordFusesValidTerms(t *testing.T) {
	ix := New()

	partial := types.PartialIndex{
		"good": {"d1.txt": 2},
		"bad":  {"other.txt": 5},
		"neg":  {"d1.txt": -1},
	}
	fused, _ := ix.FuseResult(partial, "d1.txt")

	assert.Equal(t, 1, fused)
	freq, ok := ix.Lookup("good", "d1.txt")
	require.True(t, ok)
	assert.Equal(t, 2, freq)
	_, ok = ix.Lookup("bad", "d1.txt")
	assert.False(t, ok)
	_, ok = ix.Lookup("neg", "d1.txt")
	assert.False(t, ok)
}

func TestFuseResult_ZeroFrequencyStored(t *testing.T) {
	ix := New()

	fused, _ := ix.FuseResult(types.PartialIndex{"term": {"d1.txt": 0}}, "d1.txt")

	assert.Equal(t, 1, fused)
	freq, ok := ix.Lookup("term", "d1.txt")
	require.True(t, ok)
	assert.Equal(t, 0, freq)
}

// Fusion is commutative across distinct documents: any application order
// produces the same global index.
func TestFuseResult_CommutativeAcrossDocuments(t *testing.T) {
	records := []struct {
		docID string
		freqs map[string]int
	}{
		{"d1.txt", map[string]int{"cat": 2, "dog": 1}},
		{"d2.txt", map[string]int{"dog": 4, "fish": 1}},
		{"d3.txt", map[string]int{"cat": 1}},
		{"d4.txt", map[string]int{"bird": 7, "dog": 2, "cat": 3}},
	}

	reference := New()
	for _, r := range records {
		reference.FuseResult(partialFor(r.docID, r.freqs), r.docID)
	}
	want := reference.Snapshot()

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]int, len(records))
		for i := range shuffled {
			shuffled[i] = i
		}
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		ix := New()
		for _, i := range shuffled {
			ix.FuseResult(partialFor(records[i].docID, records[i].freqs), records[i].docID)
		}
		assert.Equal(t, want, ix.Snapshot(), "order %v diverged", shuffled)
	}
}

func TestSearch_SortedByFrequencyDescending(t *testing.T) {
	ix := New()
	ix.FuseResult(partialFor("d2.txt", map[string]int{"cat": 2, "dog": 1}), "d2.txt")
	ix.FuseResult(partialFor("d3.txt", map[string]int{"dog": 1}), "d3.txt")
	ix.FuseResult(partialFor("d4.txt", map[string]int{"dog": 5}), "d4.txt")

	results := ix.Search("dog")
	require.Len(t, results, 3)

	assert.Equal(t, "d4.txt", results[0].DocID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Frequency, results[i].Frequency)
	}

	// Equal frequencies tie-break on doc_id ascending.
	assert.Equal(t, "d2.txt", results[1].DocID)
	assert.Equal(t, "d3.txt", results[2].DocID)
}

func TestSearch_UnknownStem(t *testing.T) {
	ix := New()
	results := ix.Search("nonexistent")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestPendingSet(t *testing.T) {
	ix := New()

	ix.AddPending("d1.txt")
	ix.AddPending("d1.txt") // duplicate submit while pending is a no-op
	assert.True(t, ix.HasPending("d1.txt"))

	_, pending := ix.Stats()
	assert.Equal(t, 1, pending)

	ix.RemovePending("d1.txt")
	assert.False(t, ix.HasPending("d1.txt"))
}

func TestFuseResult_NonPendingDocReported(t *testing.T) {
	ix := New()

	// A result arriving for a document never dispatched (coordinator
	// restart, duplicate publish) still fuses.
	fused, wasPending := ix.FuseResult(partialFor("ghost.txt", map[string]int{"term": 1}), "ghost.txt")

	assert.Equal(t, 1, fused)
	assert.False(t, wasPending)
	freq, ok := ix.Lookup("term", "ghost.txt")
	require.True(t, ok)
	assert.Equal(t, 1, freq)
}

func TestReplace_ClearsPending(t *testing.T) {
	ix := New()
	ix.AddPending("inflight.txt")
	ix.FuseResult(partialFor("d1.txt", map[string]int{"old": 1}), "d1.txt")

	ix.Replace(map[string]map[string]int{"new": {"d2.txt": 2}})

	terms, pending := ix.Stats()
	assert.Equal(t, 1, terms)
	assert.Equal(t, 0, pending)
	_, ok := ix.Lookup("old", "d1.txt")
	assert.False(t, ok)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	ix := New()
	ix.FuseResult(partialFor("d1.txt", map[string]int{"term": 1}), "d1.txt")

	snap := ix.Snapshot()
	snap["term"]["d1.txt"] = 99

	freq, _ := ix.Lookup("term", "d1.txt")
	assert.Equal(t, 1, freq)
}
