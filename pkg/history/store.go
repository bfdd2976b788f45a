package history

import (
	"sync"

	"github.com/ghostbus/ghostbus/pkg/transit"
)

// DefaultMaxSamples is how many recent position samples are retained per
// vehicle before the oldest is evicted
const DefaultMaxSamples = 60

// Store keeps a bounded recent-past window of position samples per vehicle
// for the temporal detection rules. Samples within a vehicle are ordered by
// non-decreasing timestamp
type Store struct {
	mu         sync.RWMutex
	vehicles   map[string][]transit.PositionSample
	maxSamples int
}

func NewStore() *Store {
	return &Store{
		vehicles:   map[string][]transit.PositionSample{},
		maxSamples: DefaultMaxSamples,
	}
}

// Append records a sample for the vehicle, evicting the oldest sample once
// the window is full. Samples older than the newest retained one are
// discarded to keep the sequence time ordered
func (s *Store) Append(vehicleID string, sample transit.PositionSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := s.vehicles[vehicleID]

	if len(samples) > 0 && sample.Timestamp < samples[len(samples)-1].Timestamp {
		return
	}

	if len(samples) >= s.maxSamples {
		copy(samples, samples[1:])
		samples = samples[:len(samples)-1]
	}

	s.vehicles[vehicleID] = append(samples, sample)
}

// Samples returns a copy of the vehicle's retained samples in chronological
// order. An unknown vehicle yields an empty sequence
func (s *Store) Samples(vehicleID string) []transit.PositionSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.vehicles[vehicleID]

	out := make([]transit.PositionSample, len(samples))
	copy(out, samples)

	return out
}

// AverageSpeed returns the mean speed of the retained samples excluding the
// most recent, which is the baseline the speed anomaly rule compares the
// current report against. The second return value is false when fewer than
// two samples exist and no baseline can be formed
func (s *Store) AverageSpeed(vehicleID string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.vehicles[vehicleID]
	if len(samples) < 2 {
		return 0, false
	}

	var total float64
	baseline := samples[:len(samples)-1]
	for _, sample := range baseline {
		total += sample.Speed
	}

	return total / float64(len(baseline)), true
}

// LastMovementAge returns how many seconds the vehicle has spent within
// epsilonMeters of the current sample's position, based on the retained
// window. The second return value is false when there is no prior sample to
// compare against
func (s *Store) LastMovementAge(vehicleID string, current transit.PositionSample, epsilonMeters float64) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.vehicles[vehicleID]

	// Walk backwards to the most recent sample that is a real movement away
	// from the current position
	for i := len(samples) - 1; i >= 0; i-- {
		sample := samples[i]
		if sample.Timestamp == current.Timestamp && sample.Latitude == current.Latitude && sample.Longitude == current.Longitude {
			// the current report may already have been appended
			continue
		}

		distance := transit.DistanceMeters(current.Latitude, current.Longitude, sample.Latitude, sample.Longitude)
		if distance > epsilonMeters {
			return current.Timestamp - sample.Timestamp, true
		}
	}

	if len(samples) == 0 {
		return 0, false
	}

	// Never moved within the retained window - the vehicle has been parked
	// since at least the oldest sample
	oldest := samples[0]
	if oldest.Timestamp == current.Timestamp {
		return 0, false
	}

	return current.Timestamp - oldest.Timestamp, true
}
