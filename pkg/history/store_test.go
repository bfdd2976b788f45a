package history

import (
	"testing"

	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(timestamp int64, latitude float64, longitude float64, speed float64) transit.PositionSample {
	return transit.PositionSample{
		Timestamp: timestamp,
		Latitude:  latitude,
		Longitude: longitude,
		Speed:     speed,
	}
}

func TestAppend(t *testing.T) {
	t.Parallel()

	t.Run("evicts oldest once the window is full", func(t *testing.T) {
		t.Parallel()
		store := NewStore()

		for i := int64(1); i <= DefaultMaxSamples+10; i++ {
			store.Append("BUS_1", sampleAt(i, 39.7, -104.9, 20))
		}

		samples := store.Samples("BUS_1")
		require.Len(t, samples, DefaultMaxSamples)
		assert.Equal(t, int64(11), samples[0].Timestamp)
		assert.Equal(t, int64(DefaultMaxSamples+10), samples[len(samples)-1].Timestamp)
	})

	t.Run("discards samples older than the newest retained", func(t *testing.T) {
		t.Parallel()
		store := NewStore()

		store.Append("BUS_1", sampleAt(100, 39.7, -104.9, 20))
		store.Append("BUS_1", sampleAt(50, 39.7, -104.9, 20))

		samples := store.Samples("BUS_1")
		require.Len(t, samples, 1)
		assert.Equal(t, int64(100), samples[0].Timestamp)
	})

	t.Run("vehicles are independent", func(t *testing.T) {
		t.Parallel()
		store := NewStore()

		store.Append("BUS_1", sampleAt(100, 39.7, -104.9, 20))

		assert.Len(t, store.Samples("BUS_1"), 1)
		assert.Empty(t, store.Samples("BUS_2"))
	})
}

func TestAverageSpeed(t *testing.T) {
	t.Parallel()

	t.Run("no baseline with fewer than two samples", func(t *testing.T) {
		t.Parallel()
		store := NewStore()

		_, ok := store.AverageSpeed("BUS_1")
		assert.False(t, ok)

		store.Append("BUS_1", sampleAt(100, 39.7, -104.9, 20))
		_, ok = store.AverageSpeed("BUS_1")
		assert.False(t, ok)
	})

	t.Run("excludes the newest sample", func(t *testing.T) {
		t.Parallel()
		store := NewStore()

		store.Append("BUS_1", sampleAt(100, 39.7, -104.9, 10))
		store.Append("BUS_1", sampleAt(110, 39.7, -104.9, 20))
		store.Append("BUS_1", sampleAt(120, 39.7, -104.9, 99))

		average, ok := store.AverageSpeed("BUS_1")
		require.True(t, ok)
		assert.InDelta(t, 15.0, average, 0.001)
	})
}

func TestLastMovementAge(t *testing.T) {
	t.Parallel()

	t.Run("unknown vehicle has no movement age", func(t *testing.T) {
		t.Parallel()
		store := NewStore()

		_, ok := store.LastMovementAge("BUS_1", sampleAt(100, 39.7, -104.9, 0), 15)
		assert.False(t, ok)
	})

	t.Run("parked vehicle ages from the oldest sample", func(t *testing.T) {
		t.Parallel()
		store := NewStore()

		store.Append("BUS_1", sampleAt(100, 39.7, -104.9, 0))
		store.Append("BUS_1", sampleAt(110, 39.7, -104.9, 0))
		store.Append("BUS_1", sampleAt(120, 39.7, -104.9, 0))

		age, ok := store.LastMovementAge("BUS_1", sampleAt(120, 39.7, -104.9, 0), 15)
		require.True(t, ok)
		assert.Equal(t, int64(20), age)
	})

	t.Run("ages from the most recent distinct position", func(t *testing.T) {
		t.Parallel()
		store := NewStore()

		// moved roughly 5km north between the first and second sample
		store.Append("BUS_1", sampleAt(100, 39.70, -104.9, 30))
		store.Append("BUS_1", sampleAt(110, 39.75, -104.9, 30))
		store.Append("BUS_1", sampleAt(120, 39.75, -104.9, 0))

		age, ok := store.LastMovementAge("BUS_1", sampleAt(120, 39.75, -104.9, 0), 15)
		require.True(t, ok)
		assert.Equal(t, int64(20), age)
	})

	t.Run("jitter within epsilon does not count as movement", func(t *testing.T) {
		t.Parallel()
		store := NewStore()

		// ~1m of wobble
		store.Append("BUS_1", sampleAt(100, 39.70000, -104.9, 0))
		store.Append("BUS_1", sampleAt(110, 39.70001, -104.9, 0))

		age, ok := store.LastMovementAge("BUS_1", sampleAt(110, 39.70001, -104.9, 0), 15)
		require.True(t, ok)
		assert.Equal(t, int64(10), age)
	})
}
