package tracker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/ghostbus/ghostbus/pkg/detect"
	"github.com/ghostbus/ghostbus/pkg/history"
	"github.com/ghostbus/ghostbus/pkg/state"
	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/rs/zerolog/log"
)

var ErrMalformedReport = errors.New("malformed vehicle report")

const vehicleLockStripes = 64

// Publisher receives every observable state change. The broadcast hub
// satisfies this
type Publisher interface {
	Publish(state transit.VehicleState)
}

// Pipeline is the ingest path: validate a report, extend the vehicle's
// history, evaluate the detection rules and upsert the resulting state. Any
// observable change is handed to the publisher
type Pipeline struct {
	History   *history.Store
	Engine    *detect.Engine
	Cache     *state.Cache
	Publisher Publisher
	Reference *transit.ReferenceData
	Clock     Clock

	// optional collaborators
	Mirror *StateMirror

	vehicleLocks [vehicleLockStripes]sync.Mutex
}

func NewPipeline(historyStore *history.Store, engine *detect.Engine, cache *state.Cache, publisher Publisher, reference *transit.ReferenceData, clock Clock) *Pipeline {
	return &Pipeline{
		History:   historyStore,
		Engine:    engine,
		Cache:     cache,
		Publisher: publisher,
		Reference: reference,
		Clock:     clock,
	}
}

func (p *Pipeline) lockVehicle(vehicleID string) *sync.Mutex {
	hasher := fnv.New32a()
	hasher.Write([]byte(vehicleID))

	return &p.vehicleLocks[hasher.Sum32()%vehicleLockStripes]
}

// Process runs one report through the pipeline. Malformed reports are
// rejected before any mutation happens. Reports for the same vehicle are
// serialised; distinct vehicles proceed concurrently
func (p *Pipeline) Process(report transit.VehicleReport) error {
	if err := validateReport(report); err != nil {
		return err
	}

	mutex := p.lockVehicle(report.VehicleID)
	mutex.Lock()
	defer mutex.Unlock()

	p.History.Append(report.VehicleID, transit.PositionSample{
		Timestamp: report.Timestamp,
		Latitude:  report.Latitude,
		Longitude: report.Longitude,
		Speed:     report.Speed,
	})

	verdict := p.Engine.Evaluate(report, p.History, p.Reference, p.Clock.Now())

	status := transit.VehicleStatusActive
	if verdict.IsGhost {
		status = transit.VehicleStatusGhost
	}

	newState := transit.VehicleState{
		VehicleID: report.VehicleID,
		Latitude:  report.Latitude,
		Longitude: report.Longitude,
		RouteID:   report.RouteID,
		Speed:     report.Speed,
		Bearing:   report.Bearing,

		Status:       status,
		IsGhost:      verdict.IsGhost,
		AnomalyTypes: verdict.AnomalyTypes,
		Severity:     verdict.Severity,

		Timestamp: report.Timestamp,
	}

	previous, existed := p.Cache.Get(report.VehicleID)

	if !p.Cache.Upsert(newState) {
		return nil
	}

	p.Publisher.Publish(newState)

	if p.Mirror != nil {
		if err := p.Mirror.Store(context.Background(), newState); err != nil {
			log.Error().Err(err).Str("vehicle", newState.VehicleID).Msg("Failed to mirror vehicle state")
		}
	}

	if !existed || previous.Status != newState.Status {
		previousStatus := transit.VehicleStatus("")
		if existed {
			previousStatus = previous.Status
		}

		indexStatusTransition(p.Clock.Now(), previousStatus, newState)

		log.Info().
			Str("vehicle", newState.VehicleID).
			Str("route", newState.RouteID).
			Str("status", string(newState.Status)).
			Str("severity", string(newState.Severity)).
			Msg("Vehicle status changed")
	}

	return nil
}

func validateReport(report transit.VehicleReport) error {
	if report.VehicleID == "" {
		return fmt.Errorf("%w: missing vehicle id", ErrMalformedReport)
	}

	if math.IsNaN(report.Latitude) || math.IsNaN(report.Longitude) ||
		report.Latitude < -90 || report.Latitude > 90 ||
		report.Longitude < -180 || report.Longitude > 180 {
		return fmt.Errorf("%w: position out of range", ErrMalformedReport)
	}

	if report.Timestamp <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrMalformedReport)
	}

	return nil
}
