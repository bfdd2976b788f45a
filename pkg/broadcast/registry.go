package broadcast

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry tracks the currently registered subscribers. Removal closes the
// subscriber's message channel and is idempotent
type Registry struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		subscribers: map[*Subscriber]struct{}{},
	}
}

func (r *Registry) remove(subscriber *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subscribers[subscriber]; !exists {
		return
	}

	delete(r.subscribers, subscriber)

	// Safe to close here - fan-out holds the read lock while sending, so no
	// send can be in flight once we hold the write lock
	close(subscriber.messages)

	log.Debug().Int("subscribers", len(r.subscribers)).Msg("Subscriber unregistered")
}

func (r *Registry) each(fn func(subscriber *Subscriber)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for subscriber := range r.subscribers {
		fn(subscriber)
	}
}

// Count returns the number of currently registered subscribers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subscribers)
}
