package broadcast

import (
	"sync"

	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/rs/zerolog/log"
)

// eventBufferSize bounds the handoff between the ingest path and fan-out
// delivery so a burst of ingests never stalls on subscriber I/O
const eventBufferSize = 256

// SnapshotFunc produces the full current-state view a new subscriber is
// bootstrapped with
type SnapshotFunc func() []transit.VehicleState

// Hub fans state-change events out to every registered subscriber. A new
// subscriber always receives a full snapshot as its first message and only
// deltas from then on; there is no replay of missed deltas
type Hub struct {
	registry *Registry
	snapshot SnapshotFunc

	events chan transit.VehicleState

	done     chan struct{}
	stopOnce sync.Once
}

func NewHub(snapshot SnapshotFunc) *Hub {
	return &Hub{
		registry: NewRegistry(),
		snapshot: snapshot,
		events:   make(chan transit.VehicleState, eventBufferSize),
		done:     make(chan struct{}),
	}
}

// Run delivers queued state changes until Stop is called. Call it from its
// own goroutine
func (h *Hub) Run() {
	log.Info().Msg("Starting broadcast hub")

	for {
		select {
		case state := <-h.events:
			envelope := transit.NewBusUpdateEnvelope(state)
			h.registry.each(func(subscriber *Subscriber) {
				subscriber.enqueue(envelope)
			})
		case <-h.done:
			return
		}
	}
}

// Publish hands a changed vehicle state to the delivery loop. It never
// blocks the caller - under sustained overload the oldest undelivered event
// is dropped
func (h *Hub) Publish(state transit.VehicleState) {
	for {
		select {
		case h.events <- state:
			return
		default:
		}

		select {
		case dropped := <-h.events:
			log.Warn().Str("vehicle", dropped.VehicleID).Msg("Broadcast backlog full, dropping oldest event")
		default:
		}
	}
}

// Subscribe registers a new observer. The snapshot is built and queued while
// holding the registry write lock, so no delta can slip in ahead of it or go
// missing behind it
func (h *Hub) Subscribe() *Subscriber {
	subscriber := newSubscriber()

	h.registry.mu.Lock()
	subscriber.enqueue(transit.NewSnapshotEnvelope(h.snapshot()))
	h.registry.subscribers[subscriber] = struct{}{}
	h.registry.mu.Unlock()

	log.Debug().Int("subscribers", h.registry.Count()).Msg("Subscriber registered")

	return subscriber
}

// Unsubscribe removes the subscriber and closes its message stream. Safe to
// call more than once and concurrently with delivery
func (h *Hub) Unsubscribe(subscriber *Subscriber) {
	h.registry.remove(subscriber)
}

// Subscribers returns the number of currently registered observers
func (h *Hub) Subscribers() int {
	return h.registry.Count()
}

// Stop terminates the delivery loop. Registered subscribers are left to be
// unsubscribed by their owners
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}
