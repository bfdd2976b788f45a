package broadcast

import (
	"github.com/ghostbus/ghostbus/pkg/transit"
)

// subscriberQueueSize bounds the outbound queue per subscriber. A subscriber
// that falls this far behind starts losing its oldest pending messages
const subscriberQueueSize = 64

// Subscriber is one registered observer of the realtime channel. Messages
// arrive on Messages in order; the first is always a snapshot
type Subscriber struct {
	messages chan transit.Envelope
}

func newSubscriber() *Subscriber {
	return &Subscriber{
		messages: make(chan transit.Envelope, subscriberQueueSize),
	}
}

// Messages is the subscriber's ordered message stream. It is closed when the
// subscriber is unregistered
func (s *Subscriber) Messages() <-chan transit.Envelope {
	return s.messages
}

// enqueue delivers best effort - when the queue is full the oldest pending
// message is dropped rather than blocking the publisher
func (s *Subscriber) enqueue(envelope transit.Envelope) {
	for {
		select {
		case s.messages <- envelope:
			return
		default:
		}

		select {
		case <-s.messages:
		default:
		}
	}
}
