package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ghostbus/ghostbus/pkg/elastic_client"
	"github.com/ghostbus/ghostbus/pkg/transit"
)

type StatusTransitionElasticEvent struct {
	Timestamp time.Time

	VehicleID string
	RouteID   string

	PreviousStatus transit.VehicleStatus
	NewStatus      transit.VehicleStatus

	AnomalyTypes []transit.AnomalyType
	Severity     transit.Severity
}

// indexStatusTransition records a vehicle's status change in Elasticsearch.
// A no-op when no Elasticsearch client is configured
func indexStatusTransition(now time.Time, previousStatus transit.VehicleStatus, newState transit.VehicleState) {
	yearNumber, weekNumber := now.ISOWeek()
	indexName := fmt.Sprintf("ghostbus-status-transitions-%d-%d", yearNumber, weekNumber)

	elasticEvent, _ := json.Marshal(StatusTransitionElasticEvent{
		Timestamp: now,

		VehicleID: newState.VehicleID,
		RouteID:   newState.RouteID,

		PreviousStatus: previousStatus,
		NewStatus:      newState.Status,

		AnomalyTypes: newState.AnomalyTypes,
		Severity:     newState.Severity,
	})

	elastic_client.IndexRequest(indexName, bytes.NewReader(elasticEvent))
}
