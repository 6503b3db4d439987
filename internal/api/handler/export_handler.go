package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"apm-exporter/internal/model"
	"apm-exporter/internal/pipeline"
	"apm-exporter/internal/store"
	"apm-exporter/pkg/router"
)

// ExportRequest starts a batch; token and cookie override the server's session
type ExportRequest struct {
	model.BatchSpec
	Token  string `json:"token,omitempty"`
	Cookie string `json:"cookie,omitempty"`
}

// ExportCreated is returned when a batch has been accepted
type ExportCreated struct {
	BatchID   string    `json:"batchId"`
	Status    string    `json:"status"`
	Tasks     int       `json:"tasks"`
	Window    string    `json:"window"`
	StreamURL string    `json:"streamUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExportDetail is a stored batch plus live progress while it runs
type ExportDetail struct {
	model.BatchRecord
	Downloads []string               `json:"downloads"`
	Progress  *pipeline.BatchMetrics `json:"progress,omitempty"`
}

// CreateExport validates a batch spec and runs it in the background
// @Summary Start a batch export
// @Description Validate the batch, then fetch, transform and export every (application, dataset kind) task in order
// @Tags exports
// @Accept json
// @Produce json
// @Param export body ExportRequest true "Batch request"
// @Success 202 {object} ExportCreated
// @Failure 400 {object} ErrorResponse "Invalid batch request"
// @Failure 401 {object} ErrorResponse "Missing or invalid session"
// @Failure 500 {object} ErrorResponse
// @Router /exports [post]
func (h *Handler) CreateExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	plan, err := pipeline.PlanBatch(req.BatchSpec, h.opts, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	creds := h.creds
	if req.Token != "" || req.Cookie != "" {
		creds = model.Credentials{Token: req.Token, Cookie: req.Cookie}
	}
	if err := h.checker.Check(r.Context(), creds); err != nil {
		writeError(w, http.StatusUnauthorized, pipeline.ErrAuthInvalid.Error())
		return
	}

	batchID := uuid.New().String()
	if err := h.store.SaveBatch(r.Context(), batchID, req.BatchSpec); err != nil {
		h.logger.Error("failed to save batch", "batch_id", batchID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save batch")
		return
	}

	tracker := pipeline.NewBatchTracker(batchID)
	h.mu.Lock()
	h.trackers[batchID] = tracker
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runBatch(batchID, req.BatchSpec, creds, tracker)
		h.mu.Lock()
		delete(h.trackers, batchID)
		h.mu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, ExportCreated{
		BatchID:   batchID,
		Status:    "pending",
		Tasks:     len(plan.Tasks),
		Window:    plan.Window.String(),
		StreamURL: "/api/v1/exports/" + batchID + "/stream",
		CreatedAt: time.Now().UTC(),
	})
}

func (h *Handler) runBatch(batchID string, spec model.BatchSpec, creds model.Credentials, tracker *pipeline.BatchTracker) {
	ctx := h.ctx
	logger := h.logger.With("batch_id", batchID)
	bg := context.WithoutCancel(ctx)

	if err := h.store.UpdateBatchStatus(bg, batchID, string(model.BatchRunning)); err != nil {
		logger.Error("failed to update batch status", "error", err)
	}

	observer := pipeline.MultiObserver{
		tracker,
		store.NewBatchLog(ctx, h.store, batchID, logger),
		streamObserver{batchID: batchID, hub: h.hub},
	}
	orch := pipeline.NewOrchestrator(h.opts, h.fetcher, h.logger,
		pipeline.WithBatchID(batchID),
		pipeline.WithObserver(observer),
		pipeline.WithSettingsStore(h.store),
		pipeline.WithCredentialChecker(h.checker),
	)

	result, err := orch.Run(ctx, spec, creds)
	if err != nil {
		if serr := h.store.UpdateBatchStatus(bg, batchID, string(model.BatchRejected)); serr != nil {
			logger.Error("failed to update batch status", "error", serr)
		}
		return
	}
	if err := h.store.RecordResult(bg, batchID, result); err != nil {
		logger.Error("failed to record batch result", "error", err)
	}
}

// ListExports lists batches, newest first
// @Summary List batch exports
// @Tags exports
// @Produce json
// @Param limit query int false "Maximum number of batches"
// @Success 200 {array} model.BatchRecord
// @Failure 500 {object} ErrorResponse
// @Router /exports [get]
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	batches, err := h.store.ListBatches(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch batches")
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

// GetExport returns one batch
// @Summary Get a batch export
// @Tags exports
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} ExportDetail
// @Failure 404 {object} ErrorResponse
// @Router /exports/{id} [get]
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	id := router.Var(r, "id")
	rec, err := h.store.GetBatch(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch batch")
		return
	}

	detail := ExportDetail{BatchRecord: *rec, Downloads: []string{}}
	for _, f := range rec.Files {
		detail.Downloads = append(detail.Downloads, h.output.GetDownloadURL(id, f))
	}
	if t, ok := h.tracker(id); ok {
		m := t.GetMetrics()
		detail.Progress = &m
	}
	writeJSON(w, http.StatusOK, detail)
}

// GetExportErrors returns the task failures of a batch
// @Summary Get batch task errors
// @Tags exports
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {array} model.TaskError
// @Failure 500 {object} ErrorResponse
// @Router /exports/{id}/errors [get]
func (h *Handler) GetExportErrors(w http.ResponseWriter, r *http.Request) {
	errs, err := h.store.GetBatchErrors(r.Context(), router.Var(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch batch errors")
		return
	}
	writeJSON(w, http.StatusOK, errs)
}

// GetExportLogs returns the ordered log lines of a batch
// @Summary Get batch log lines
// @Tags exports
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {array} model.LogEntry
// @Failure 500 {object} ErrorResponse
// @Router /exports/{id}/logs [get]
func (h *Handler) GetExportLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.store.GetBatchLogs(r.Context(), router.Var(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch batch logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// DownloadFile serves an exported file
// @Summary Download an export file
// @Tags exports
// @Produce octet-stream
// @Param id path string true "Batch ID"
// @Param file path string true "File name"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /download/{id}/{file} [get]
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id, file := router.Var(r, "id"), router.Var(r, "file")
	path, err := h.output.GetOutputFilePath(id, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", h.output.GetContentType(path))
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(path)+"\"")
	http.ServeFile(w, r, path)
}

// SettingsResponse is the last-used batch input
type SettingsResponse struct {
	model.Settings
	Saved bool `json:"saved"`
}

// GetSettings returns the last-used application list and mapping
// @Summary Get last-used settings
// @Description Falls back to the default application mapping when nothing has been saved
// @Tags settings
// @Produce json
// @Success 200 {object} SettingsResponse
// @Failure 500 {object} ErrorResponse
// @Router /settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, ok, err := h.store.LoadSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if !ok {
		settings = model.Settings{AppMapping: model.DefaultAppMappingJSON()}
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: settings, Saved: ok})
}
