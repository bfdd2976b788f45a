package simulator

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/ghostbus/ghostbus/pkg/redis_client"
	"github.com/ghostbus/ghostbus/pkg/tracker"
	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/rs/zerolog/log"
)

const DefaultReportInterval = 5 * time.Second

type simulatedVehicle struct {
	VehicleID string
	RouteID   string
	Latitude  float64
	Longitude float64

	// Frozen vehicles keep reporting the same position with an old timestamp
	Frozen bool
}

// Fleet publishes synthetic vehicle reports onto the reports queue so a full
// deployment can be exercised without a live feed. Most vehicles wander
// around their home position; one stays frozen with a timestamp far enough in
// the past to trip stale detection
type Fleet struct {
	ReportInterval time.Duration

	vehicles []simulatedVehicle
	queue    rmq.Queue
}

func NewFleet(reportInterval time.Duration) (*Fleet, error) {
	queue, err := redis_client.QueueConnection.OpenQueue(tracker.ReportsQueueName)
	if err != nil {
		return nil, err
	}

	return &Fleet{
		ReportInterval: reportInterval,

		vehicles: []simulatedVehicle{
			{VehicleID: "WEST_001", RouteID: "WEST", Latitude: 39.7392, Longitude: -104.9903},
			{VehicleID: "SOUT_002", RouteID: "SOUT", Latitude: 39.7392, Longitude: -104.9903},
			{VehicleID: "NRTH_003", RouteID: "NRTH", Latitude: 39.7392, Longitude: -104.9903},
			{VehicleID: "PEGA_004", RouteID: "PEGA", Latitude: 39.7392, Longitude: -104.9903},
			{VehicleID: "GHOST_005", RouteID: "WEST", Latitude: 39.7392, Longitude: -104.9903, Frozen: true},
		},
		queue: queue,
	}, nil
}

func (f *Fleet) Run(ctx context.Context) {
	log.Info().Int("vehicles", len(f.vehicles)).Dur("interval", f.ReportInterval).Msg("Starting fleet simulator")

	ticker := time.NewTicker(f.ReportInterval)
	defer ticker.Stop()

	for {
		now := time.Now()

		for index, vehicle := range f.vehicles {
			report := f.reportFor(vehicle, index, now)

			reportBytes, _ := json.Marshal(report)
			if err := f.queue.PublishBytes(reportBytes); err != nil {
				log.Error().Err(err).Str("vehicle", vehicle.VehicleID).Msg("Failed to publish simulated report")
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (f *Fleet) reportFor(vehicle simulatedVehicle, index int, now time.Time) transit.VehicleReport {
	if vehicle.Frozen {
		return transit.VehicleReport{
			VehicleID: vehicle.VehicleID,
			Latitude:  vehicle.Latitude,
			Longitude: vehicle.Longitude,
			RouteID:   vehicle.RouteID,
			Speed:     0,
			Bearing:   0,
			Timestamp: now.Add(-5 * time.Minute).Unix(),
		}
	}

	// Slow drift around the home position, offset per vehicle so they don't
	// all bunch up
	phase := float64(now.Unix())/60 + float64(index)

	return transit.VehicleReport{
		VehicleID: vehicle.VehicleID,
		Latitude:  vehicle.Latitude + math.Sin(phase)*0.01,
		Longitude: vehicle.Longitude + math.Cos(phase)*0.01,
		RouteID:   vehicle.RouteID,
		Speed:     20 + rand.Float64()*40,
		Bearing:   rand.Float64() * 360,
		Timestamp: now.Unix(),
	}
}
