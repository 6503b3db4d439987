package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"apm-exporter/internal/model"
	"apm-exporter/internal/pipeline"
	"apm-exporter/internal/store"
	"apm-exporter/pkg/utils"
)

// Handler serves the export API
type Handler struct {
	store   *store.Store
	hub     *Hub
	output  *utils.OutputManager
	opts    pipeline.Options
	creds   model.Credentials
	checker pipeline.CredentialChecker
	fetcher pipeline.Fetcher
	logger  *slog.Logger

	// batches run on ctx, not on the request context
	ctx context.Context
	wg  sync.WaitGroup

	mu       sync.RWMutex
	trackers map[string]*pipeline.BatchTracker
}

// Config wires a Handler
type Config struct {
	Store       *store.Store
	Hub         *Hub
	Options     pipeline.Options
	Credentials model.Credentials // used when a request carries none
	Checker     pipeline.CredentialChecker
	Fetcher     pipeline.Fetcher
	Logger      *slog.Logger
}

// New creates a handler. Batches started through it stop when ctx is cancelled.
func New(ctx context.Context, cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Checker == nil {
		cfg.Checker = pipeline.RequireSession
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = pipeline.NewHTTPFetcher(cfg.Options, nil, cfg.Logger)
	}
	return &Handler{
		store:    cfg.Store,
		hub:      cfg.Hub,
		output:   utils.NewOutputManager(cfg.Options.OutputDir),
		opts:     cfg.Options,
		creds:    cfg.Credentials,
		checker:  cfg.Checker,
		fetcher:  cfg.Fetcher,
		logger:   cfg.Logger,
		ctx:      ctx,
		trackers: make(map[string]*pipeline.BatchTracker),
	}
}

// Wait blocks until every running batch has finished
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) tracker(id string) (*pipeline.BatchTracker, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.trackers[id]
	return t, ok
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
