package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"apm-exporter/cmd/apm-exporter/commands"
)

// @title APM Exporter API
// @version 1.0
// @description Batch export of page and interface performance metrics from the APM console
// @BasePath /api/v1
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "apm-exporter",
		Usage: "batch export of page and interface performance metrics",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run one batch export in the foreground",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "apps",
						Usage: "application ids, comma separated (defaults to the last-used list)",
					},
					&cli.StringFlag{
						Name:  "apps-file",
						Usage: "file with one application id per line",
					},
					&cli.StringFlag{
						Name:  "mapping",
						Usage: "JSON object mapping application id to display name",
					},
					&cli.StringFlag{
						Name:  "mapping-file",
						Usage: "file holding the JSON application mapping",
					},
					&cli.StringFlag{
						Name:  "range",
						Usage: "7days, 30days, 90days or custom",
						Value: "7days",
					},
					&cli.StringFlag{
						Name:  "start",
						Usage: "start date for a custom range (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "end",
						Usage: "end date for a custom range (YYYY-MM-DD)",
					},
					&cli.StringSliceFlag{
						Name:  "kinds",
						Usage: "dataset kinds to export (page, interface)",
						Value: []string{"page", "interface"},
					},
					&cli.IntFlag{
						Name:  "interval",
						Usage: "milliseconds between tasks (0 uses the configured delay)",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "csv or xlsx (defaults to the configured format)",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "output directory (overrides config)",
					},
					&cli.StringFlag{
						Name:  "token",
						Usage: "console x-csrf-token (overrides APM_CSRF_TOKEN)",
					},
					&cli.StringFlag{
						Name:  "cookie",
						Usage: "console Cookie header (overrides APM_COOKIE)",
					},
				}, commonFlags()...),
				Action: commands.RunAction,
			},
			{
				Name:  "serve",
				Usage: "start the HTTP API",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "HTTP port (overrides config)",
					},
				}, commonFlags()...),
				Action: commands.ServeAction,
			},
			{
				Name:  "history",
				Usage: "list past batches or show one",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "batch id to show",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "maximum number of batches",
						Value: 20,
					},
				}, commonFlags()...),
				Action: commands.HistoryAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "TOML configuration file",
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "environment file",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error (overrides config)",
		},
	}
}
