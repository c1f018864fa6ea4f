package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_FillsIDAndTimestamp(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	b.Publish(&Event{Type: EventDocumentDispatched, DocID: "d1.txt"})

	recent := b.Recent()
	require.Len(t, recent, 1)
	assert.NotEmpty(t, recent[0].ID)
	assert.False(t, recent[0].Timestamp.IsZero())
}

func TestSubscribe_ReceivesPublishedEvents(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventDocumentFused, DocID: "d1.txt", WorkerID: "worker-a"})

	select {
	case ev := <-sub:
		assert.Equal(t, EventDocumentFused, ev.Type)
		assert.Equal(t, "d1.txt", ev.DocID)
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestRecent_OldestFirstAndBounded(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	total := ringCapacity + 10
	for i := 0; i < total; i++ {
		b.Publish(&Event{Type: EventDocumentDispatched, DocID: fmt.Sprintf("d%d.txt", i)})
	}

	recent := b.Recent()
	require.Len(t, recent, ringCapacity)

	// The ten oldest events fell off the ring.
	assert.Equal(t, "d10.txt", recent[0].DocID)
	assert.Equal(t, fmt.Sprintf("d%d.txt", total-1), recent[len(recent)-1].DocID)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe() // never drained
	defer b.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Publish(&Event{Type: EventDocumentDispatched})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}
