package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/ghostbus/ghostbus/pkg/detect"
	"github.com/ghostbus/ghostbus/pkg/history"
	"github.com/ghostbus/ghostbus/pkg/state"
	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type capturePublisher struct {
	mu     sync.Mutex
	states []transit.VehicleState
}

func (p *capturePublisher) Publish(state transit.VehicleState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.states = append(p.states, state)
}

func (p *capturePublisher) published() []transit.VehicleState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]transit.VehicleState, len(p.states))
	copy(out, p.states)

	return out
}

func testPipeline(t *testing.T, now time.Time) (*Pipeline, *capturePublisher) {
	t.Helper()

	engine, err := detect.NewEngine(detect.GetConfig())
	require.NoError(t, err)

	publisher := &capturePublisher{}
	pipeline := NewPipeline(history.NewStore(), engine, state.NewCache(), publisher, transit.NewReferenceData(), fixedClock{now: now})

	return pipeline, publisher
}

func freshReport(vehicleID string, now time.Time) transit.VehicleReport {
	return transit.VehicleReport{
		VehicleID: vehicleID,
		Latitude:  39.7392,
		Longitude: -104.9903,
		RouteID:   "WEST",
		Speed:     30,
		Bearing:   90,
		Timestamp: now.Unix(),
	}
}

func TestProcess(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	t.Run("a fresh report becomes an active state", func(t *testing.T) {
		t.Parallel()
		pipeline, publisher := testPipeline(t, now)

		require.NoError(t, pipeline.Process(freshReport("BUS_1", now)))

		stored, found := pipeline.Cache.Get("BUS_1")
		require.True(t, found)
		assert.Equal(t, transit.VehicleStatusActive, stored.Status)
		assert.False(t, stored.IsGhost)
		assert.Empty(t, stored.AnomalyTypes)
		assert.Equal(t, transit.SeverityInfo, stored.Severity)

		published := publisher.published()
		require.Len(t, published, 1)
		assert.Equal(t, stored, published[0])
	})

	t.Run("a stale report flips the vehicle to ghost", func(t *testing.T) {
		t.Parallel()
		pipeline, publisher := testPipeline(t, now)

		require.NoError(t, pipeline.Process(freshReport("BUS_1", now)))

		stale := freshReport("BUS_1", now)
		stale.Timestamp = now.Add(-5 * time.Minute).Unix()
		require.NoError(t, pipeline.Process(stale))

		stored, found := pipeline.Cache.Get("BUS_1")
		require.True(t, found)
		assert.Equal(t, transit.VehicleStatusGhost, stored.Status)
		assert.True(t, stored.IsGhost)
		assert.Equal(t, []transit.AnomalyType{transit.AnomalyStale}, stored.AnomalyTypes)
		assert.Equal(t, transit.SeverityCritical, stored.Severity)

		published := publisher.published()
		require.Len(t, published, 2)
		assert.Equal(t, transit.VehicleStatusActive, published[0].Status)
		assert.Equal(t, transit.VehicleStatusGhost, published[1].Status)
	})

	t.Run("reprocessing an identical report publishes nothing new", func(t *testing.T) {
		t.Parallel()
		pipeline, publisher := testPipeline(t, now)

		report := freshReport("BUS_1", now)
		require.NoError(t, pipeline.Process(report))
		require.NoError(t, pipeline.Process(report))

		assert.Len(t, publisher.published(), 1)
		assert.Equal(t, 1, pipeline.Cache.Len())
	})

	t.Run("history window extends with each report", func(t *testing.T) {
		t.Parallel()
		pipeline, _ := testPipeline(t, now)

		for i := int64(0); i < 5; i++ {
			report := freshReport("BUS_1", now)
			report.Timestamp = now.Unix() - 50 + i*10
			report.Latitude += float64(i) * 0.01
			require.NoError(t, pipeline.Process(report))
		}

		assert.Len(t, pipeline.History.Samples("BUS_1"), 5)
	})

	t.Run("distinct vehicles are tracked independently", func(t *testing.T) {
		t.Parallel()
		pipeline, publisher := testPipeline(t, now)

		require.NoError(t, pipeline.Process(freshReport("BUS_1", now)))

		stale := freshReport("BUS_2", now)
		stale.Timestamp = now.Add(-5 * time.Minute).Unix()
		require.NoError(t, pipeline.Process(stale))

		first, _ := pipeline.Cache.Get("BUS_1")
		second, _ := pipeline.Cache.Get("BUS_2")
		assert.Equal(t, transit.VehicleStatusActive, first.Status)
		assert.Equal(t, transit.VehicleStatusGhost, second.Status)
		assert.Len(t, publisher.published(), 2)
	})
}

func TestProcessMalformed(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	cases := []struct {
		name   string
		mutate func(report *transit.VehicleReport)
	}{
		{"missing vehicle id", func(report *transit.VehicleReport) { report.VehicleID = "" }},
		{"latitude out of range", func(report *transit.VehicleReport) { report.Latitude = 91 }},
		{"longitude out of range", func(report *transit.VehicleReport) { report.Longitude = -181 }},
		{"missing timestamp", func(report *transit.VehicleReport) { report.Timestamp = 0 }},
	}

	for _, testCase := range cases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			pipeline, publisher := testPipeline(t, now)

			report := freshReport("BUS_1", now)
			testCase.mutate(&report)

			err := pipeline.Process(report)
			assert.ErrorIs(t, err, ErrMalformedReport)

			// nothing was mutated on the way out
			assert.Equal(t, 0, pipeline.Cache.Len())
			assert.Empty(t, pipeline.History.Samples(report.VehicleID))
			assert.Empty(t, publisher.published())
		})
	}
}
