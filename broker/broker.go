package broker

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskpulse/domain"
)

// DefaultQueueSize bounds each subscriber's pending-event queue. A consumer
// that falls this far behind is treated as disconnected.
const DefaultQueueSize = 64

// Subscriber is one live-update connection: an identity plus its
// pending-event queue.
type Subscriber struct {
	id string
	ch chan domain.Event
}

// Events returns the queue to drain. The channel is closed when the
// subscriber leaves the registry, either by Unsubscribe or because its queue
// overflowed.
func (s *Subscriber) Events() <-chan domain.Event { return s.ch }

// ID returns the subscriber's registry identity.
func (s *Subscriber) ID() string { return s.id }

// Broker fans task lifecycle events out to all subscribed connections.
// Events reach each live subscriber in publish order; subscribers never
// block a publish.
type Broker struct {
	logger    *log.Logger
	queueSize int

	mu   sync.Mutex
	subs map[string]*Subscriber
}

// New creates a Broker. queueSize <= 0 selects DefaultQueueSize.
func New(logger *log.Logger, queueSize int) *Broker {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Broker{
		logger:    logger,
		queueSize: queueSize,
		subs:      make(map[string]*Subscriber),
	}
}

// Subscribe registers a new subscriber with an empty queue and returns it
// immediately.
func (b *Broker) Subscribe() *Subscriber {
	sub := &Subscriber{
		id: uuid.NewString(),
		ch: make(chan domain.Event, b.queueSize),
	}
	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscriber from the registry and closes its queue.
// It is idempotent.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	if _, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(sub.ch)
	}
	b.mu.Unlock()
}

// Publish enqueues the event on every registered subscriber's queue. A
// subscriber whose queue is full has stopped draining; it is dropped from
// the registry as part of this call and its queue closed.
func (b *Broker) Publish(eventType string, data any) {
	ev := domain.Event{Type: eventType, Data: data}

	b.mu.Lock()
	var dead []*Subscriber
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			dead = append(dead, sub)
		}
	}
	for _, sub := range dead {
		delete(b.subs, sub.id)
		close(sub.ch)
	}
	b.mu.Unlock()

	if len(dead) > 0 {
		b.logger.Warnf("broker: dropped %d stalled subscriber(s) on %s", len(dead), eventType)
	}
}

// Len reports the number of registered subscribers.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
