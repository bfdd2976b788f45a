package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/adjust/rmq/v5"
	"github.com/cenkalti/backoff/v4"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/ghostbus/ghostbus/pkg/redis_client"
	"github.com/ghostbus/ghostbus/pkg/tracker"
	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/proto"
)

// maxReportAge filters out entities that haven't been updated in so long
// they would only flood the pipeline with ancient positions. Staleness
// within this window is still the detection engine's call
const maxReportAge = 20 * time.Minute

// GTFSRT polls a GTFS-RT vehicle positions feed and publishes each fresh
// entity as a vehicle report onto the reports queue
type GTFSRT struct {
	URL          string
	PollInterval time.Duration

	queue       rmq.Queue
	dedupeCache *cache.Cache[string]

	httpClient *http.Client
}

func NewGTFSRT(url string, pollInterval time.Duration) (*GTFSRT, error) {
	queue, err := redis_client.QueueConnection.OpenQueue(tracker.ReportsQueueName)
	if err != nil {
		return nil, err
	}

	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(90*time.Minute))

	return &GTFSRT{
		URL:          url,
		PollInterval: pollInterval,

		queue:       queue,
		dedupeCache: cache.New[string](redisStore),

		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Run polls until the context is cancelled
func (f *GTFSRT) Run(ctx context.Context) {
	log.Info().Str("url", f.URL).Dur("interval", f.PollInterval).Msg("Starting GTFS-RT feed poller")

	ticker := time.NewTicker(f.PollInterval)
	defer ticker.Stop()

	for {
		f.poll(ctx)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (f *GTFSRT) poll(ctx context.Context) {
	var body []byte

	fetch := func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		response, err := f.httpClient.Do(request)
		if err != nil {
			return err
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			return fmt.Errorf("feed returned status %d", response.StatusCode)
		}

		body, err = io.ReadAll(response.Body)

		return err
	}

	fetchBackoff := backoff.NewExponentialBackOff()
	fetchBackoff.MaxElapsedTime = f.PollInterval

	if err := backoff.Retry(fetch, backoff.WithContext(fetchBackoff, ctx)); err != nil {
		log.Error().Err(err).Str("url", f.URL).Msg("Failed to fetch GTFS-RT feed")
		return
	}

	feedMessage := gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, &feedMessage); err != nil {
		log.Error().Err(err).Msg("Failed parsing GTFS-RT protobuf")
		return
	}

	published := 0
	for _, entity := range feedMessage.Entity {
		if f.submitEntity(ctx, entity) {
			published++
		}
	}

	log.Info().Int("entities", len(feedMessage.Entity)).Int("published", published).Msg("Polled GTFS-RT feed")
}

func (f *GTFSRT) submitEntity(ctx context.Context, entity *gtfs.FeedEntity) bool {
	vehiclePosition := entity.GetVehicle()
	if vehiclePosition == nil {
		return false
	}

	position := vehiclePosition.GetPosition()
	if position == nil {
		return false
	}

	recordedAt := time.Unix(int64(vehiclePosition.GetTimestamp()), 0)
	if time.Since(recordedAt) > maxReportAge {
		return false
	}

	vehicleID := vehiclePosition.GetVehicle().GetId()
	if vehicleID == "" {
		vehicleID = entity.GetId()
	}

	// Skip entities whose timestamp hasn't moved since the last poll
	dedupeKey := fmt.Sprintf("gtfsrt-report:%s", vehicleID)
	timestampValue := fmt.Sprintf("%d", vehiclePosition.GetTimestamp())

	if cachedValue, _ := f.dedupeCache.Get(ctx, dedupeKey); cachedValue == timestampValue {
		return false
	}
	f.dedupeCache.Set(ctx, dedupeKey, timestampValue)

	report := transit.VehicleReport{
		VehicleID: vehicleID,
		Latitude:  float64(position.GetLatitude()),
		Longitude: float64(position.GetLongitude()),
		RouteID:   vehiclePosition.GetTrip().GetRouteId(),
		Speed:     float64(position.GetSpeed()),
		Bearing:   float64(position.GetBearing()),
		Timestamp: recordedAt.Unix(),
	}

	reportBytes, _ := json.Marshal(report)
	if err := f.queue.PublishBytes(reportBytes); err != nil {
		log.Error().Err(err).Str("vehicle", vehicleID).Msg("Failed to publish vehicle report")
		return false
	}

	return true
}
