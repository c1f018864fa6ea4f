package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cuemby/ferret/pkg/broker"
	"github.com/cuemby/ferret/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorker(t *testing.T) (*Worker, *broker.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	b := broker.New(broker.Config{
		Addr:            mr.Addr(),
		TaskQueuePrefix: "doc_processing_tasks",
		ResultsChannel:  "idx_partial_results",
	})
	t.Cleanup(func() { _ = b.Close() })
	w := New(Config{Broker: b, Language: "english"})
	return w, b, mr
}

func collectResults(t *testing.T, ctx context.Context, b *broker.Client) <-chan *types.PartialResult {
	t.Helper()
	ch := make(chan *types.PartialResult, 16)
	ready := make(chan struct{})
	go func() {
		close(ready)
		b.SubscribeResults(ctx, func(r *types.PartialResult) { ch <- r })
	}()
	<-ready
	// Give the subscription a moment to establish before tasks publish.
	time.Sleep(50 * time.Millisecond)
	return ch
}

func TestWorkerID_Stable(t *testing.T) {
	w, _, _ := testWorker(t)

	assert.Contains(t, w.ID(), "worker-")
	assert.Equal(t, w.ID(), w.ID())
}

func TestProcessTask_PublishesTermFrequencies(t *testing.T) {
	w, b, _ := testWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := collectResults(t, ctx, b)

	w.processTask(ctx, &types.DocumentTask{
		DocID:    "d1.txt",
		Content:  "The quick brown fox",
		Language: "english",
	})

	select {
	case r := <-results:
		assert.Equal(t, w.ID(), r.WorkerID)
		assert.Equal(t, "d1.txt", r.DocID)
		assert.Equal(t, types.PartialIndex{
			"quick": {"d1.txt": 1},
			"brown": {"d1.txt": 1},
			"fox":   {"d1.txt": 1},
		}, r.PartialIndex)
	case <-time.After(2 * time.Second):
		t.Fatal("no result published")
	}
}

func TestProcessTask_CountsRepeatedTerms(t *testing.T) {
	w, b, _ := testWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := collectResults(t, ctx, b)

	w.processTask(ctx, &types.DocumentTask{DocID: "d1.txt", Content: "fox fox fox"})

	select {
	case r := <-results:
		assert.Equal(t, types.PartialIndex{"fox": {"d1.txt": 3}}, r.PartialIndex)
	case <-time.After(2 * time.Second):
		t.Fatal("no result published")
	}
}

func TestProcessTask_EmptyTokensPublishesEmptyPartial(t *testing.T) {
	w, b, _ := testWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := collectResults(t, ctx, b)

	// Stopwords only: normalization yields nothing, but the coordinator
	// still needs a result to clear the doc from pending.
	w.processTask(ctx, &types.DocumentTask{DocID: "empty.txt", Content: "the and of"})

	select {
	case r := <-results:
		assert.Equal(t, "empty.txt", r.DocID)
		assert.Empty(t, r.PartialIndex)
		assert.NotNil(t, r.PartialIndex)
	case <-time.After(2 * time.Second):
		t.Fatal("no result published for empty document")
	}
}

func TestProcessTask_MalformedTaskDropped(t *testing.T) {
	w, b, _ := testWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := collectResults(t, ctx, b)

	w.processTask(ctx, &types.DocumentTask{DocID: "", Content: "orphan"})
	w.processTask(ctx, &types.DocumentTask{DocID: "ok.txt", Content: "fox"})

	select {
	case r := <-results:
		// Only the valid task produced a result.
		assert.Equal(t, "ok.txt", r.DocID)
	case <-time.After(2 * time.Second):
		t.Fatal("valid task after malformed one was not processed")
	}
}

func TestProcessTask_TaskLanguageOverridesDefault(t *testing.T) {
	w, b, _ := testWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := collectResults(t, ctx, b)

	w.processTask(ctx, &types.DocumentTask{
		DocID:    "es.txt",
		Content:  "los perros corren",
		Language: "spanish",
	})

	select {
	case r := <-results:
		assert.Equal(t, "spanish", r.Language)
		// "los" is a Spanish stopword; "perros" stems with the Spanish
		// stemmer.
		assert.NotContains(t, r.PartialIndex, "los")
		assert.Contains(t, r.PartialIndex, "perr")
	case <-time.After(2 * time.Second):
		t.Fatal("no result published")
	}
}

func TestRun_DrainsQueueInOrder(t *testing.T) {
	w, b, _ := testWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := collectResults(t, ctx, b)

	for _, docID := range []string{"first.txt", "second.txt"} {
		_, err := b.PushTask(ctx, w.ID(), &types.DocumentTask{DocID: docID, Content: "fox"})
		require.NoError(t, err)
	}

	runCtx, stopRun := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		w.Run(runCtx)
		close(done)
	}()

	var got []string
	for len(got) < 2 {
		select {
		case r := <-results:
			got = append(got, r.DocID)
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d results arrived", len(got))
		}
	}
	assert.Equal(t, []string{"first.txt", "second.txt"}, got)

	stopRun()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRun_EmitsHeartbeats(t *testing.T) {
	w, b, _ := testWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)

	require.Eventually(t, func() bool {
		workers, err := b.ListWorkers(context.Background())
		if err != nil {
			return false
		}
		for _, id := range workers {
			if id == w.ID() {
				return true
			}
		}
		return false
	}, 10*time.Second, 100*time.Millisecond, "worker never registered a status record")

	load, err := b.WorkerLoad(context.Background(), w.ID())
	require.NoError(t, err)
	assert.NotNil(t, load.CPUPercent)
	assert.NotNil(t, load.RAMPercent)
	assert.NotNil(t, load.TTLSeconds)
}

func TestTermFrequencies(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		expected types.PartialIndex
	}{
		{
			name:     "distinct terms",
			tokens:   []string{"cat", "dog"},
			expected: types.PartialIndex{"cat": {"d.txt": 1}, "dog": {"d.txt": 1}},
		},
		{
			name:     "repeated terms accumulate",
			tokens:   []string{"cat", "cat", "dog", "cat"},
			expected: types.PartialIndex{"cat": {"d.txt": 3}, "dog": {"d.txt": 1}},
		},
		{
			name:     "no tokens",
			tokens:   nil,
			expected: types.PartialIndex{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, termFrequencies(tt.tokens, "d.txt"))
		})
	}
}
