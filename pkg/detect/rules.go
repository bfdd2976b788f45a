package detect

import (
	"time"

	"github.com/ghostbus/ghostbus/pkg/history"
	"github.com/ghostbus/ghostbus/pkg/transit"
)

// RuleContext carries everything a rule may consult. Rules only ever read
// from it
type RuleContext struct {
	Report    transit.VehicleReport
	History   *history.Store
	Reference *transit.ReferenceData
	Config    Config
	Now       time.Time
}

// Rule is one independent anomaly check. Rules must be pure - no side
// effects, no memory beyond the context they are handed
type Rule interface {
	Tag() transit.AnomalyType
	Severity() transit.Severity
	Triggered(ctx *RuleContext) bool
}

// StaleRule flags reports whose recorded timestamp is too far in the past
// to be trusted
type StaleRule struct{}

func (StaleRule) Tag() transit.AnomalyType { return transit.AnomalyStale }
func (StaleRule) Severity() transit.Severity { return transit.SeverityCritical }
func (StaleRule) Triggered(ctx *RuleContext) bool {
	age := ctx.Now.Unix() - ctx.Report.Timestamp

	return age > ctx.Config.StaleThresholdSeconds
}

// StationaryRule flags vehicles that have sat still away from any known stop
// for longer than the stationary window
type StationaryRule struct{}

func (StationaryRule) Tag() transit.AnomalyType { return transit.AnomalyStationary }
func (StationaryRule) Severity() transit.Severity { return transit.SeverityWarning }
func (StationaryRule) Triggered(ctx *RuleContext) bool {
	current := transit.PositionSample{
		Timestamp: ctx.Report.Timestamp,
		Latitude:  ctx.Report.Latitude,
		Longitude: ctx.Report.Longitude,
		Speed:     ctx.Report.Speed,
	}

	age, ok := ctx.History.LastMovementAge(ctx.Report.VehicleID, current, ctx.Config.MovementEpsilonMeters)
	if !ok || age <= ctx.Config.StationaryWindowSeconds {
		return false
	}

	// Being parked at a stop is expected behaviour
	return !ctx.Reference.NearStop(ctx.Report.Latitude, ctx.Report.Longitude, ctx.Config.StopBufferMeters)
}

// SpeedAnomalyRule flags reports whose speed spikes above or collapses below
// the vehicle's recent baseline
type SpeedAnomalyRule struct{}

func (SpeedAnomalyRule) Tag() transit.AnomalyType { return transit.AnomalySpeedAnomaly }
func (SpeedAnomalyRule) Severity() transit.Severity { return transit.SeverityWarning }
func (SpeedAnomalyRule) Triggered(ctx *RuleContext) bool {
	average, ok := ctx.History.AverageSpeed(ctx.Report.VehicleID)
	if !ok || average <= 0 {
		return false
	}

	speed := ctx.Report.Speed

	return speed > ctx.Config.SpeedSpikeMultiplier*average ||
		speed < ctx.Config.SpeedDropMultiplier*average
}

// OffRouteRule flags reports outside the configured service area. This is a
// coarse boundary check - a corridor distance rule can be swapped in behind
// the same interface once route geometry is available
type OffRouteRule struct{}

func (OffRouteRule) Tag() transit.AnomalyType { return transit.AnomalyOffRoute }
func (OffRouteRule) Severity() transit.Severity { return transit.SeverityCritical }
func (OffRouteRule) Triggered(ctx *RuleContext) bool {
	return !ctx.Config.Boundary.Contains(ctx.Report.Latitude, ctx.Report.Longitude)
}
