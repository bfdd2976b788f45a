package simulator

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghostbus/ghostbus/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "simulator",
		Usage: "Publishes a synthetic fleet of vehicle reports for testing",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the fleet simulator",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Value: DefaultReportInterval,
						Usage: "how often each vehicle reports",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					fleet, err := NewFleet(c.Duration("interval"))
					if err != nil {
						return err
					}

					ctx, cancel := context.WithCancel(context.Background())

					go fleet.Run(ctx)

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
