package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"apm-exporter/internal/config"
	"apm-exporter/internal/logger"
	"apm-exporter/internal/model"
	"apm-exporter/internal/pipeline"
	"apm-exporter/internal/store"
)

// AppContext holds what every command needs
type AppContext struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *store.Store
}

// NewAppContext loads configuration, installs the logger and opens the history database
func NewAppContext(cmd *cli.Command) (*AppContext, error) {
	cfg, err := config.LoadConfig(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: level, Format: cfg.Logging.Format})

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &AppContext{Config: cfg, Logger: log, Store: st}, nil
}

// Close releases the database
func (ac *AppContext) Close() {
	if ac.Store != nil {
		ac.Store.Close()
	}
}

// Checker is the pre-flight credential check, or a pass-through when disabled
func (ac *AppContext) Checker() pipeline.CredentialChecker {
	if !ac.Config.API.Preflight {
		return pipeline.CredentialCheckFunc(func(context.Context, model.Credentials) error { return nil })
	}
	return pipeline.RequireSession
}
