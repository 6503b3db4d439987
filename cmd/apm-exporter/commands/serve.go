package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"apm-exporter/internal/api"
	"apm-exporter/internal/api/handler"
	"apm-exporter/pkg/router"
	"apm-exporter/pkg/utils"
)

// ServeAction starts the HTTP API
func ServeAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cfg := appCtx.Config
	if port := int(cmd.Int("port")); port > 0 {
		cfg.HTTP.Port = port
	}

	if err := utils.NewOutputManager(cfg.Batch.OutputDir).EnsureOutputDirExists(); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	hub := handler.NewHub(appCtx.Logger)
	go hub.Run(ctx)

	h := handler.New(ctx, handler.Config{
		Store:       appCtx.Store,
		Hub:         hub,
		Options:     cfg.PipelineOptions(),
		Credentials: cfg.Credentials,
		Checker:     appCtx.Checker(),
		Logger:      appCtx.Logger,
	})

	r := router.New(appCtx.Logger)
	r.Colorize = cfg.Logging.Format == "text"
	api.RegisterRoutes(r, h)

	err = r.Start(ctx, cfg.ListenAddr())
	h.Wait()
	return err
}
