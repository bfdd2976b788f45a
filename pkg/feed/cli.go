package feed

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghostbus/ghostbus/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Polls an upstream GTFS-RT feed for vehicle positions",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the GTFS-RT feed poller",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Usage:    "url of the GTFS-RT vehicle positions feed",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "interval",
						Value: 20 * time.Second,
						Usage: "how often to poll the feed",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					feed, err := NewGTFSRT(c.String("url"), c.Duration("interval"))
					if err != nil {
						return err
					}

					ctx, cancel := context.WithCancel(context.Background())

					go feed.Run(ctx)

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal
					cancel()

					return nil
				},
			},
		},
	}
}
