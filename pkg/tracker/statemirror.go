package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/ghostbus/ghostbus/pkg/redis_client"
	"github.com/ghostbus/ghostbus/pkg/transit"
)

const mirrorExpiration = 5 * time.Minute

type cachedVehicleState struct {
	transit.VehicleState
}

func (c *cachedVehicleState) MarshalBinary() ([]byte, error) {
	return json.Marshal(c.VehicleState)
}

func (c *cachedVehicleState) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, &c.VehicleState)
}

// StateMirror writes every observable state change through to redis with a
// TTL, giving other processes a self-expiring live view. The in-memory cache
// stays authoritative
type StateMirror struct {
	cache *cache.Cache[*cachedVehicleState]
}

func NewStateMirror() *StateMirror {
	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(mirrorExpiration))

	return &StateMirror{
		cache: cache.New[*cachedVehicleState](redisStore),
	}
}

func mirrorKey(vehicleID string) string {
	return fmt.Sprintf("vehicle_state:%s", vehicleID)
}

func (m *StateMirror) Store(ctx context.Context, state transit.VehicleState) error {
	return m.cache.Set(ctx, mirrorKey(state.VehicleID), &cachedVehicleState{VehicleState: state})
}

func (m *StateMirror) Get(ctx context.Context, vehicleID string) (transit.VehicleState, error) {
	cached, err := m.cache.Get(ctx, mirrorKey(vehicleID))
	if err != nil {
		return transit.VehicleState{}, err
	}

	return cached.VehicleState, nil
}
