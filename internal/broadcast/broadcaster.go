// Package broadcast fans persisted detection events out to live
// subscribers. Delivery is best-effort: no buffering beyond each
// subscriber's channel, no retry, no acknowledgment.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/platewatch/platewatch-go/internal/datastore"
	"github.com/platewatch/platewatch-go/internal/logging"
	"github.com/platewatch/platewatch-go/internal/observability/metrics"
)

// Event types delivered to subscribers.
const (
	EventPlateDetected  = "PLATE_DETECTED"
	EventPlateValidated = "PLATE_VALIDATED"
)

// Event is a single broadcast message. Data points at the persisted
// record; subscribers must not mutate it.
type Event struct {
	Type string                 `json:"type"`
	Data *datastore.PlateRecord `json:"data"`
}

// Subscriber is one live connection's view of the event stream. Read
// from Events until Done is closed.
type Subscriber struct {
	ID     string
	Events chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// Done reports subscriber shutdown. Closed by Unsubscribe or Close.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Close marks the subscriber as gone. Safe to call more than once and
// safe to call concurrently with Publish.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Broadcaster maintains the live subscriber set. Add, remove and publish
// may all run concurrently; a subscriber arriving mid-publish may or may
// not see that event.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber

	buffer  int
	logger  *slog.Logger
	metrics *metrics.BroadcastMetrics
}

// New creates a broadcaster whose subscribers each get a channel of the
// given buffer size.
func New(bufferSize int) *Broadcaster {
	if bufferSize < 1 {
		bufferSize = 1
	}

	logger := logging.ForService("broadcast")
	if logger == nil {
		logger = slog.Default().With("service", "broadcast")
	}

	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
		buffer:      bufferSize,
		logger:      logger,
	}
}

// SetMetrics attaches broadcast telemetry. Safe to leave unset.
func (b *Broadcaster) SetMetrics(m *metrics.BroadcastMetrics) {
	b.metrics = m
}

// Subscribe registers a new live connection. The caller owns the
// returned subscriber and must eventually pass its ID to Unsubscribe.
// New subscribers receive no historical events; backfill comes from the
// store's recent query.
func (b *Broadcaster) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan Event, b.buffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	count := len(b.subscribers)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.SubscriberGauge.Set(float64(count))
	}
	b.logger.Debug("subscriber connected", "subscriber_id", sub.ID, "total", count)

	return sub
}

// Unsubscribe removes a subscriber and marks it done. Unknown IDs are a
// no-op, disconnects can race with pruning.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	sub, exists := b.subscribers[id]
	if exists {
		delete(b.subscribers, id)
	}
	count := len(b.subscribers)
	b.mu.Unlock()

	if !exists {
		return
	}

	sub.Close()
	if b.metrics != nil {
		b.metrics.SubscriberGauge.Set(float64(count))
	}
	b.logger.Debug("subscriber disconnected", "subscriber_id", id, "total", count)
}

// Publish delivers an event to every currently open subscriber. Closed
// subscribers are skipped and pruned; a subscriber whose buffer is full
// simply misses the event. One dead connection never blocks delivery to
// the rest.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	var stale []string
	delivered := 0

	for _, sub := range snapshot {
		select {
		case <-sub.done:
			stale = append(stale, sub.ID)
		default:
			select {
			case sub.Events <- event:
				delivered++
			default:
				b.logger.Debug("subscriber buffer full, event dropped",
					"subscriber_id", sub.ID, "event_type", event.Type)
			}
		}
	}

	for _, id := range stale {
		b.Unsubscribe(id)
	}

	if b.metrics != nil {
		b.metrics.EventsPublished.WithLabelValues(event.Type).Inc()
		b.metrics.EventsDelivered.WithLabelValues(event.Type).Add(float64(delivered))
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
