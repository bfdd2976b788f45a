package tracker

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/ghostbus/ghostbus/pkg/consumer"
	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// ReportsQueueName is the rmq queue telemetry reports are consumed from
const ReportsQueueName = "ghostbus-reports-queue"

const numConsumers = 5
const batchSize = 200
const maxParallelReports = 16

// StartConsumers runs the background report consumers against the reports
// queue and exposes the queue stats server
func StartConsumers(pipeline *Pipeline) {
	log.Info().Msg("Starting report consumers")

	redisConsumer := consumer.RedisConsumer{
		QueueName: ReportsQueueName,

		NumberConsumers: numConsumers,
		BatchSize:       batchSize,

		Timeout: 2 * time.Second,

		Consumer: NewBatchConsumer(pipeline),
	}
	redisConsumer.Setup()
}

// BatchConsumer feeds batches of queued report payloads through the
// pipeline. Reports within a batch are independent, so they are processed
// with a bounded pool; the pipeline serialises same-vehicle reports itself
type BatchConsumer struct {
	pipeline *Pipeline
}

func NewBatchConsumer(pipeline *Pipeline) *BatchConsumer {
	return &BatchConsumer{pipeline: pipeline}
}

func (c *BatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	p := pool.New().WithMaxGoroutines(maxParallelReports)

	for _, payload := range payloads {
		payload := payload

		p.Go(func() {
			var report transit.VehicleReport
			if err := json.Unmarshal([]byte(payload), &report); err != nil {
				log.Error().Err(err).Msg("Failed to decode vehicle report, discarding")
				return
			}

			if err := c.pipeline.Process(report); err != nil {
				if errors.Is(err, ErrMalformedReport) {
					log.Warn().Err(err).Str("vehicle", report.VehicleID).Msg("Rejected vehicle report")
					return
				}

				log.Error().Err(err).Str("vehicle", report.VehicleID).Msg("Failed to process vehicle report")
			}
		})
	}

	p.Wait()

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to ack report batch")
		}
	}
}
