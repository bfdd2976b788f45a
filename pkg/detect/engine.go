package detect

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/ghostbus/ghostbus/pkg/history"
	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/rs/zerolog/log"
)

// Verdict is the outcome of evaluating every rule against one report
type Verdict struct {
	AnomalyTypes []transit.AnomalyType
	Severity     transit.Severity
	IsGhost      bool
}

// exemptionEnv is the expression environment an exemption filter runs
// against, one field per report attribute
type exemptionEnv struct {
	ID        string  `expr:"id"`
	Lat       float64 `expr:"lat"`
	Lon       float64 `expr:"lon"`
	RouteID   string  `expr:"route_id"`
	Speed     float64 `expr:"speed"`
	Bearing   float64 `expr:"bearing"`
	Timestamp int64   `expr:"timestamp"`
}

// Engine evaluates the fixed rule set against a report. Evaluation is a pure
// function of the inputs - identical report, history and reference data
// always produce an identical verdict
type Engine struct {
	config Config
	rules  []Rule

	exemption *vm.Program
}

// NewEngine builds an engine for the given config. The rule declaration
// order here is canonical - it fixes the ordering of anomaly tags in every
// verdict
func NewEngine(config Config) (*Engine, error) {
	engine := &Engine{
		config: config,
		rules: []Rule{
			StaleRule{},
			StationaryRule{},
			SpeedAnomalyRule{},
			OffRouteRule{},
		},
	}

	if config.ExemptionFilter != "" {
		program, err := expr.Compile(config.ExemptionFilter, expr.Env(exemptionEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("failed to compile exemption filter: %w", err)
		}

		engine.exemption = program
	}

	return engine, nil
}

// Evaluate runs every rule against the report and aggregates the verdict.
// Rules that need a baseline simply do not fire on sparse history
func (e *Engine) Evaluate(report transit.VehicleReport, hist *history.Store, reference *transit.ReferenceData, now time.Time) Verdict {
	verdict := Verdict{
		AnomalyTypes: []transit.AnomalyType{},
		Severity:     transit.SeverityInfo,
	}

	if e.exempt(report) {
		return verdict
	}

	ctx := &RuleContext{
		Report:    report,
		History:   hist,
		Reference: reference,
		Config:    e.config,
		Now:       now,
	}

	for _, rule := range e.rules {
		if !rule.Triggered(ctx) {
			continue
		}

		verdict.AnomalyTypes = append(verdict.AnomalyTypes, rule.Tag())
		verdict.Severity = verdict.Severity.Max(rule.Severity())

		if rule.Tag().IsGhostClass() {
			verdict.IsGhost = true
		}
	}

	return verdict
}

func (e *Engine) exempt(report transit.VehicleReport) bool {
	if e.exemption == nil {
		return false
	}

	result, err := expr.Run(e.exemption, exemptionEnv{
		ID:        report.VehicleID,
		Lat:       report.Latitude,
		Lon:       report.Longitude,
		RouteID:   report.RouteID,
		Speed:     report.Speed,
		Bearing:   report.Bearing,
		Timestamp: report.Timestamp,
	})
	if err != nil {
		log.Error().Err(err).Str("vehicle", report.VehicleID).Msg("Failed to run exemption filter")
		return false
	}

	exempt, _ := result.(bool)

	return exempt
}
