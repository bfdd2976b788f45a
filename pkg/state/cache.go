package state

import (
	"hash/fnv"
	"sync"

	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

const shardCount = 32

type shard struct {
	mu       sync.RWMutex
	vehicles map[string]*transit.VehicleState
}

// Cache is the single authoritative store of current vehicle classifications.
// Entries are sharded by vehicle id so writes for different vehicles do not
// contend, while writes for the same vehicle serialise on its shard
type Cache struct {
	shards [shardCount]*shard
}

func NewCache() *Cache {
	cache := &Cache{}
	for i := range cache.shards {
		cache.shards[i] = &shard{vehicles: map[string]*transit.VehicleState{}}
	}

	return cache
}

func (c *Cache) shardFor(vehicleID string) *shard {
	hasher := fnv.New32a()
	hasher.Write([]byte(vehicleID))

	return c.shards[hasher.Sum32()%shardCount]
}

// Upsert replaces the stored state for the vehicle and reports whether any
// observable field differs from what was stored before. A report that only
// advances the timestamp is not an observable change and produces no
// broadcast downstream
func (c *Cache) Upsert(newState transit.VehicleState) bool {
	stored := cloneState(&newState)

	s := c.shardFor(newState.VehicleID)
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, exists := s.vehicles[newState.VehicleID]
	s.vehicles[newState.VehicleID] = stored

	if !exists {
		return true
	}

	return observablyChanged(previous, stored)
}

func observablyChanged(previous *transit.VehicleState, current *transit.VehicleState) bool {
	if previous.Latitude != current.Latitude || previous.Longitude != current.Longitude {
		return true
	}
	if previous.RouteID != current.RouteID {
		return true
	}
	if previous.Status != current.Status || previous.Severity != current.Severity {
		return true
	}

	return !previous.SameAnomalies(current)
}

// Get returns a copy of the vehicle's current state
func (c *Cache) Get(vehicleID string) (transit.VehicleState, bool) {
	s := c.shardFor(vehicleID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.vehicles[vehicleID]
	if !exists {
		return transit.VehicleState{}, false
	}

	return *cloneState(stored), true
}

// Snapshot returns a copy of every current vehicle state ordered by vehicle
// id. Each entry is read atomically under its shard lock; the set as a whole
// is assembled shard by shard
func (c *Cache) Snapshot() []transit.VehicleState {
	var states []transit.VehicleState

	for _, s := range c.shards {
		s.mu.RLock()
		for _, stored := range s.vehicles {
			states = append(states, *cloneState(stored))
		}
		s.mu.RUnlock()
	}

	slices.SortFunc(states, func(a transit.VehicleState, b transit.VehicleState) int {
		switch {
		case a.VehicleID < b.VehicleID:
			return -1
		case a.VehicleID > b.VehicleID:
			return 1
		default:
			return 0
		}
	})

	return states
}

// Len returns how many vehicles are currently cached
func (c *Cache) Len() int {
	count := 0
	for _, s := range c.shards {
		s.mu.RLock()
		count += len(s.vehicles)
		s.mu.RUnlock()
	}

	return count
}

func cloneState(state *transit.VehicleState) *transit.VehicleState {
	clone := &transit.VehicleState{}
	if err := copier.CopyWithOption(clone, state, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on invalid arguments, which would be a
		// programming error here
		log.Error().Err(err).Str("vehicle", state.VehicleID).Msg("Failed to clone vehicle state")
		*clone = *state
	}

	return clone
}
