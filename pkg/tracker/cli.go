package tracker

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghostbus/ghostbus/pkg/api"
	"github.com/ghostbus/ghostbus/pkg/broadcast"
	"github.com/ghostbus/ghostbus/pkg/detect"
	"github.com/ghostbus/ghostbus/pkg/elastic_client"
	"github.com/ghostbus/ghostbus/pkg/gtfs"
	"github.com/ghostbus/ghostbus/pkg/history"
	"github.com/ghostbus/ghostbus/pkg/redis_client"
	"github.com/ghostbus/ghostbus/pkg/state"
	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "tracker",
		Usage: "Ingests vehicle telemetry, classifies ghost buses and serves the realtime channel",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run an instance of the detection pipeline",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}

					reference := loadReferenceData()

					engine, err := detect.NewEngine(detect.GetConfig())
					if err != nil {
						return err
					}

					stateCache := state.NewCache()
					hub := broadcast.NewHub(stateCache.Snapshot)
					go hub.Run()

					pipeline := NewPipeline(history.NewStore(), engine, stateCache, hub, reference, SystemClock{})
					pipeline.Mirror = NewStateMirror()

					StartConsumers(pipeline)

					go func() {
						if err := api.SetupServer(c.String("listen"), stateCache, hub, reference); err != nil {
							log.Fatal().Err(err).Msg("Web server failed")
						}
					}()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					hub.Stop()
					elastic_client.WaitUntilQueueEmpty()

					return nil
				},
			},
			{
				Name:  "cleaner",
				Usage: "run the queue cleaner for the reports queue",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					StartCleaner()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
			{
				Name:  "testdetect",
				Usage: "evaluate the detection rules against a canned stale report",
				Action: func(c *cli.Context) error {
					engine, err := detect.NewEngine(detect.GetConfig())
					if err != nil {
						return err
					}

					now := time.Now()

					report := transit.VehicleReport{
						VehicleID: "GHOST_005",
						Latitude:  39.7392,
						Longitude: -104.9903,
						RouteID:   "WEST",
						Speed:     0,
						Bearing:   0,
						Timestamp: now.Add(-5 * time.Minute).Unix(),
					}

					verdict := engine.Evaluate(report, history.NewStore(), transit.NewReferenceData(), now)
					pretty.Println(verdict)

					return nil
				},
			},
		},
	}
}

func loadReferenceData() *transit.ReferenceData {
	path := os.Getenv("GHOSTBUS_GTFS_PATH")
	if path == "" {
		log.Warn().Msg("GHOSTBUS_GTFS_PATH not set, running without reference data")
		return transit.NewReferenceData()
	}

	reference, err := gtfs.LoadReferenceData(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load GTFS reference data")
	}

	return reference
}
