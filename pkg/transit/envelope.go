package transit

import (
	"encoding/json"
	"fmt"
)

// EnvelopeType is the closed set of message kinds on the realtime channel
type EnvelopeType string

const (
	EnvelopeTypeSnapshot  EnvelopeType = "snapshot"
	EnvelopeTypeBusUpdate EnvelopeType = "bus_update"
)

// Envelope is the tagged union sent to realtime subscribers. Exactly one of
// Snapshot or Update is set depending on Type
type Envelope struct {
	Type EnvelopeType

	Snapshot []VehicleState
	Update   *VehicleState
}

func NewSnapshotEnvelope(states []VehicleState) Envelope {
	return Envelope{
		Type:     EnvelopeTypeSnapshot,
		Snapshot: states,
	}
}

func NewBusUpdateEnvelope(state VehicleState) Envelope {
	return Envelope{
		Type:   EnvelopeTypeBusUpdate,
		Update: &state,
	}
}

type wireEnvelope struct {
	Type EnvelopeType `json:"type"`
	Data any          `json:"data"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EnvelopeTypeSnapshot:
		// a snapshot of zero vehicles is still a list on the wire
		data := e.Snapshot
		if data == nil {
			data = []VehicleState{}
		}
		return json.Marshal(wireEnvelope{Type: e.Type, Data: data})
	case EnvelopeTypeBusUpdate:
		return json.Marshal(wireEnvelope{Type: e.Type, Data: e.Update})
	default:
		return nil, fmt.Errorf("unknown envelope type %q", e.Type)
	}
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var header struct {
		Type EnvelopeType    `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return err
	}

	switch header.Type {
	case EnvelopeTypeSnapshot:
		e.Type = header.Type
		e.Update = nil
		return json.Unmarshal(header.Data, &e.Snapshot)
	case EnvelopeTypeBusUpdate:
		e.Type = header.Type
		e.Snapshot = nil
		e.Update = &VehicleState{}
		return json.Unmarshal(header.Data, e.Update)
	default:
		return fmt.Errorf("unknown envelope type %q", header.Type)
	}
}
