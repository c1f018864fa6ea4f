package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventDocumentDispatched EventType = "document.dispatched"
	EventDocumentFused      EventType = "document.fused"
	EventDocumentRejected   EventType = "document.rejected"
	EventCheckpointSaved    EventType = "checkpoint.saved"
	EventCheckpointLoaded   EventType = "checkpoint.loaded"
)

// Event represents one step of a document's indexing lifecycle.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	DocID     string    `json:"doc_id,omitempty"`
	WorkerID  string    `json:"worker_id,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// ringCapacity bounds how many recent events are retained for the API.
const ringCapacity = 256

// Broker distributes indexing events to subscribers and keeps a bounded
// ring of the most recent ones.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex

	ring  []*Event
	start int
	count int

	eventCh chan *Event
	stopCh  chan struct{}
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		ring:        make([]*Event, ringCapacity),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish records an event and queues it for distribution. ID and
// timestamp are filled in when absent.
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	b.ring[(b.start+b.count)%ringCapacity] = event
	if b.count < ringCapacity {
		b.count++
	} else {
		b.start = (b.start + 1) % ringCapacity
	}
	b.mu.Unlock()

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

// Recent returns the retained events, oldest first.
func (b *Broker) Recent() []*Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*Event, 0, b.count)
	for i := 0; i < b.count; i++ {
		out = append(out, b.ring[(b.start+i)%ringCapacity])
	}
	return out
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}
