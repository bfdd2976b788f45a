package broadcast

import (
	"fmt"
	"testing"
	"time"

	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ghostState(vehicleID string) transit.VehicleState {
	return transit.VehicleState{
		VehicleID:    vehicleID,
		Latitude:     39.7392,
		Longitude:    -104.9903,
		RouteID:      "WEST",
		Status:       transit.VehicleStatusGhost,
		IsGhost:      true,
		AnomalyTypes: []transit.AnomalyType{transit.AnomalyStale},
		Severity:     transit.SeverityCritical,
		Timestamp:    1_700_000_000,
	}
}

func receiveEnvelope(t *testing.T, subscriber *Subscriber) transit.Envelope {
	t.Helper()

	select {
	case envelope, ok := <-subscriber.Messages():
		require.True(t, ok, "message stream closed unexpectedly")
		return envelope
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
		return transit.Envelope{}
	}
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	t.Run("first message is always the snapshot", func(t *testing.T) {
		t.Parallel()
		hub := NewHub(func() []transit.VehicleState {
			return []transit.VehicleState{ghostState("BUS_1"), ghostState("BUS_2")}
		})

		subscriber := hub.Subscribe()
		defer hub.Unsubscribe(subscriber)

		envelope := receiveEnvelope(t, subscriber)
		assert.Equal(t, transit.EnvelopeTypeSnapshot, envelope.Type)
		assert.Len(t, envelope.Snapshot, 2)
	})

	t.Run("an empty snapshot is still delivered", func(t *testing.T) {
		t.Parallel()
		hub := NewHub(func() []transit.VehicleState { return nil })

		subscriber := hub.Subscribe()
		defer hub.Unsubscribe(subscriber)

		envelope := receiveEnvelope(t, subscriber)
		assert.Equal(t, transit.EnvelopeTypeSnapshot, envelope.Type)
		assert.Empty(t, envelope.Snapshot)
	})
}

func TestPublish(t *testing.T) {
	t.Parallel()

	t.Run("deltas follow the snapshot", func(t *testing.T) {
		t.Parallel()
		hub := NewHub(func() []transit.VehicleState { return nil })
		go hub.Run()
		defer hub.Stop()

		subscriber := hub.Subscribe()
		defer hub.Unsubscribe(subscriber)

		snapshot := receiveEnvelope(t, subscriber)
		require.Equal(t, transit.EnvelopeTypeSnapshot, snapshot.Type)

		hub.Publish(ghostState("BUS_1"))

		update := receiveEnvelope(t, subscriber)
		require.Equal(t, transit.EnvelopeTypeBusUpdate, update.Type)
		require.NotNil(t, update.Update)
		assert.Equal(t, "BUS_1", update.Update.VehicleID)
		assert.True(t, update.Update.IsGhost)
	})

	t.Run("every subscriber receives every delta", func(t *testing.T) {
		t.Parallel()
		hub := NewHub(func() []transit.VehicleState { return nil })
		go hub.Run()
		defer hub.Stop()

		first := hub.Subscribe()
		second := hub.Subscribe()
		defer hub.Unsubscribe(first)
		defer hub.Unsubscribe(second)

		receiveEnvelope(t, first)
		receiveEnvelope(t, second)

		hub.Publish(ghostState("BUS_1"))

		assert.Equal(t, "BUS_1", receiveEnvelope(t, first).Update.VehicleID)
		assert.Equal(t, "BUS_1", receiveEnvelope(t, second).Update.VehicleID)
	})

	t.Run("a slow subscriber does not block publishing", func(t *testing.T) {
		t.Parallel()
		hub := NewHub(func() []transit.VehicleState { return nil })

		// No Run loop draining events; publishing far past the buffer must
		// still return
		for i := 0; i < eventBufferSize*2; i++ {
			hub.Publish(ghostState(fmt.Sprintf("BUS_%d", i)))
		}
	})
}

func TestSubscriberOverflow(t *testing.T) {
	t.Parallel()

	subscriber := newSubscriber()

	overflow := 10
	for i := 0; i < subscriberQueueSize+overflow; i++ {
		subscriber.enqueue(transit.NewBusUpdateEnvelope(ghostState(fmt.Sprintf("BUS_%d", i))))
	}

	// the oldest messages were dropped, order of the rest is preserved
	for i := overflow; i < subscriberQueueSize+overflow; i++ {
		envelope := <-subscriber.Messages()
		assert.Equal(t, fmt.Sprintf("BUS_%d", i), envelope.Update.VehicleID)
	}
	assert.Empty(t, subscriber.messages)
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	t.Run("closes the message stream", func(t *testing.T) {
		t.Parallel()
		hub := NewHub(func() []transit.VehicleState { return nil })

		subscriber := hub.Subscribe()
		require.Equal(t, 1, hub.Subscribers())

		hub.Unsubscribe(subscriber)
		assert.Equal(t, 0, hub.Subscribers())

		// drain the snapshot, then observe the close
		<-subscriber.Messages()
		_, ok := <-subscriber.Messages()
		assert.False(t, ok)
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()
		hub := NewHub(func() []transit.VehicleState { return nil })

		subscriber := hub.Subscribe()
		hub.Unsubscribe(subscriber)
		hub.Unsubscribe(subscriber)

		assert.Equal(t, 0, hub.Subscribers())
	})
}
