package state

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeState(vehicleID string) transit.VehicleState {
	return transit.VehicleState{
		VehicleID:    vehicleID,
		Latitude:     39.7392,
		Longitude:    -104.9903,
		RouteID:      "WEST",
		Speed:        30,
		Bearing:      90,
		Status:       transit.VehicleStatusActive,
		AnomalyTypes: []transit.AnomalyType{},
		Severity:     transit.SeverityInfo,
		Timestamp:    1_700_000_000,
	}
}

func TestUpsert(t *testing.T) {
	t.Parallel()

	t.Run("a new vehicle is always a change", func(t *testing.T) {
		t.Parallel()
		cache := NewCache()

		assert.True(t, cache.Upsert(activeState("BUS_1")))
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("a timestamp-only update is not observable", func(t *testing.T) {
		t.Parallel()
		cache := NewCache()
		cache.Upsert(activeState("BUS_1"))

		next := activeState("BUS_1")
		next.Timestamp += 30
		next.Speed += 5

		assert.False(t, cache.Upsert(next))

		// the newer record still replaces the stored one
		stored, found := cache.Get("BUS_1")
		require.True(t, found)
		assert.Equal(t, next.Timestamp, stored.Timestamp)
	})

	t.Run("a moved position is observable", func(t *testing.T) {
		t.Parallel()
		cache := NewCache()
		cache.Upsert(activeState("BUS_1"))

		next := activeState("BUS_1")
		next.Latitude += 0.01

		assert.True(t, cache.Upsert(next))
	})

	t.Run("a classification change is observable", func(t *testing.T) {
		t.Parallel()
		cache := NewCache()
		cache.Upsert(activeState("BUS_1"))

		next := activeState("BUS_1")
		next.Status = transit.VehicleStatusGhost
		next.IsGhost = true
		next.AnomalyTypes = []transit.AnomalyType{transit.AnomalyStale}
		next.Severity = transit.SeverityCritical

		assert.True(t, cache.Upsert(next))
	})

	t.Run("an anomaly set change alone is observable", func(t *testing.T) {
		t.Parallel()
		cache := NewCache()

		first := activeState("BUS_1")
		first.AnomalyTypes = []transit.AnomalyType{transit.AnomalyStationary}
		first.Severity = transit.SeverityWarning
		cache.Upsert(first)

		next := activeState("BUS_1")
		next.AnomalyTypes = []transit.AnomalyType{transit.AnomalySpeedAnomaly}
		next.Severity = transit.SeverityWarning

		assert.True(t, cache.Upsert(next))
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	t.Run("unknown vehicle", func(t *testing.T) {
		t.Parallel()
		cache := NewCache()

		_, found := cache.Get("BUS_1")
		assert.False(t, found)
	})

	t.Run("returns an isolated copy", func(t *testing.T) {
		t.Parallel()
		cache := NewCache()

		state := activeState("BUS_1")
		state.AnomalyTypes = []transit.AnomalyType{transit.AnomalyStationary}
		cache.Upsert(state)

		first, found := cache.Get("BUS_1")
		require.True(t, found)
		first.AnomalyTypes[0] = transit.AnomalyOffRoute

		second, found := cache.Get("BUS_1")
		require.True(t, found)
		assert.Equal(t, []transit.AnomalyType{transit.AnomalyStationary}, second.AnomalyTypes)
	})
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("covers every vehicle ordered by id", func(t *testing.T) {
		t.Parallel()
		cache := NewCache()

		cache.Upsert(activeState("BUS_3"))
		cache.Upsert(activeState("BUS_1"))
		cache.Upsert(activeState("BUS_2"))

		snapshot := cache.Snapshot()
		require.Len(t, snapshot, 3)
		assert.Equal(t, "BUS_1", snapshot[0].VehicleID)
		assert.Equal(t, "BUS_2", snapshot[1].VehicleID)
		assert.Equal(t, "BUS_3", snapshot[2].VehicleID)
	})

	t.Run("empty cache yields an empty snapshot", func(t *testing.T) {
		t.Parallel()
		cache := NewCache()

		assert.Empty(t, cache.Snapshot())
	})
}

func TestConcurrentUpserts(t *testing.T) {
	t.Parallel()

	cache := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				state := activeState(fmt.Sprintf("BUS_%d", i))
				state.Timestamp += int64(j)
				cache.Upsert(state)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, cache.Len())
	assert.Len(t, cache.Snapshot(), 50)
}
