package main

import (
	"os"
	"time"

	"github.com/ghostbus/ghostbus/pkg/feed"
	"github.com/ghostbus/ghostbus/pkg/simulator"
	"github.com/ghostbus/ghostbus/pkg/tracker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("GHOSTBUS_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("GHOSTBUS_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "ghostbus",
		Description: "Single binary of truth for Ghostbus - runs all the services",

		Commands: []*cli.Command{
			tracker.RegisterCLI(),
			feed.RegisterCLI(),
			simulator.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
