package transit

// VehicleStatus is the externally observable classification of a vehicle
type VehicleStatus string

const (
	VehicleStatusActive VehicleStatus = "active"
	VehicleStatusGhost  VehicleStatus = "ghost"
)

// Severity summarises the worst anomaly currently triggered for a vehicle
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityCritical: 2,
}

// Max returns the higher ranked of the two severities
func (s Severity) Max(other Severity) Severity {
	if severityRank[other] > severityRank[s] {
		return other
	}
	return s
}

type AnomalyType string

const (
	AnomalyStale        AnomalyType = "stale"
	AnomalyStationary   AnomalyType = "stationary"
	AnomalySpeedAnomaly AnomalyType = "speed_anomaly"
	AnomalyOffRoute     AnomalyType = "off_route"
)

// ghostAnomalies are the critical-class anomalies that on their own make a
// vehicle untrustworthy enough to classify as a ghost
var ghostAnomalies = map[AnomalyType]bool{
	AnomalyStale:    true,
	AnomalyOffRoute: true,
}

func (a AnomalyType) IsGhostClass() bool {
	return ghostAnomalies[a]
}

// VehicleReport is a single position record received from a feed or the
// simulator. It is ephemeral - once a history sample and a state update have
// been derived from it the report is discarded
type VehicleReport struct {
	VehicleID string  `json:"id"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	RouteID   string  `json:"route_id"`
	Speed     float64 `json:"speed"`
	Bearing   float64 `json:"bearing"`
	Timestamp int64   `json:"timestamp"`
}

// VehicleState is the authoritative classification of one vehicle, owned by
// the state cache and mirrored verbatim onto the realtime channel
type VehicleState struct {
	VehicleID string  `json:"id" groups:"basic"`
	Latitude  float64 `json:"lat" groups:"basic"`
	Longitude float64 `json:"lon" groups:"basic"`
	RouteID   string  `json:"route_id" groups:"basic"`
	Speed     float64 `json:"speed" groups:"basic"`
	Bearing   float64 `json:"bearing" groups:"basic"`

	Status       VehicleStatus `json:"status" groups:"basic"`
	IsGhost      bool          `json:"is_ghost" groups:"basic"`
	AnomalyTypes []AnomalyType `json:"anomaly_types" groups:"basic"`
	Severity     Severity      `json:"severity" groups:"basic"`

	Timestamp int64 `json:"timestamp" groups:"basic"`
}

// SameAnomalies reports whether both states carry an identical anomaly tag
// sequence. Tags are always emitted in rule declaration order so a plain
// element-wise comparison is enough
func (s *VehicleState) SameAnomalies(other *VehicleState) bool {
	if len(s.AnomalyTypes) != len(other.AnomalyTypes) {
		return false
	}
	for i, tag := range s.AnomalyTypes {
		if other.AnomalyTypes[i] != tag {
			return false
		}
	}
	return true
}

// PositionSample is the retained slice of a report kept in the history store
type PositionSample struct {
	Timestamp int64   `json:"timestamp"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Speed     float64 `json:"speed"`
}
