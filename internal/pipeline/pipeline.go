package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"apm-exporter/internal/model"
	"apm-exporter/pkg/utils"
)

// CredentialChecker is the pre-flight check gating a batch
type CredentialChecker interface {
	Check(ctx context.Context, creds model.Credentials) error
}

// CredentialCheckFunc adapts a function to CredentialChecker
type CredentialCheckFunc func(ctx context.Context, creds model.Credentials) error

func (f CredentialCheckFunc) Check(ctx context.Context, creds model.Credentials) error {
	return f(ctx, creds)
}

// RequireSession accepts credentials carrying both a token and a cookie
var RequireSession = CredentialCheckFunc(func(_ context.Context, creds model.Credentials) error {
	if !creds.Valid() {
		return ErrAuthInvalid
	}
	return nil
})

// SettingsStore persists the last-used batch input
type SettingsStore interface {
	SaveSettings(ctx context.Context, settings model.Settings) error
}

// Plan is a validated batch: its tasks in execution order and the derived window
type Plan struct {
	Tasks    []model.Task
	Kinds    []model.DatasetKind
	Range    model.TimeRange
	Window   model.TimeWindow
	Interval time.Duration
	Format   OutputFormat
}

// PlanBatch validates spec and expands it into tasks, applications outer and kinds inner
func PlanBatch(spec model.BatchSpec, opts Options, now time.Time) (*Plan, error) {
	appIDs := parseAppIDs(spec.AppIDs)
	if len(appIDs) == 0 {
		return nil, &ConfigurationError{Field: "appIds", Reason: "no application ids given"}
	}

	names, err := parseAppMapping(spec.AppMapping)
	if err != nil {
		return nil, err
	}

	kinds, err := parseKinds(spec.Kinds)
	if err != nil {
		return nil, err
	}

	tr, window, err := resolveWindow(spec, now)
	if err != nil {
		return nil, err
	}

	interval := opts.InterTaskDelay
	switch {
	case spec.RequestInterval < 0:
		return nil, &ConfigurationError{Field: "requestInterval", Reason: "must not be negative"}
	case spec.RequestInterval > 0:
		interval = time.Duration(spec.RequestInterval) * time.Millisecond
	}

	format, err := ParseOutputFormat(spec.OutputFormat, opts.OutputFormat)
	if err != nil {
		return nil, &ConfigurationError{Field: "outputFormat", Reason: err.Error()}
	}

	plan := &Plan{
		Kinds:    kinds,
		Range:    tr,
		Window:   window,
		Interval: interval,
		Format:   format,
	}
	for _, id := range appIDs {
		name := names[id]
		if name == "" {
			name = id
		}
		for _, kind := range kinds {
			plan.Tasks = append(plan.Tasks, model.Task{AppID: id, AppName: name, Kind: kind})
		}
	}
	return plan, nil
}

func parseAppIDs(text string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		id := strings.TrimSpace(line)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func parseAppMapping(text string) (map[string]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]string{}, nil
	}
	var names map[string]string
	if err := json.Unmarshal([]byte(text), &names); err != nil {
		return nil, &ConfigurationError{Field: "appMapping", Reason: "must be a JSON object of id to name: " + err.Error()}
	}
	return names, nil
}

func parseKinds(in []model.DatasetKind) ([]model.DatasetKind, error) {
	var kinds []model.DatasetKind
	seen := make(map[model.DatasetKind]bool)
	for _, raw := range in {
		kind, err := model.ParseDatasetKind(string(raw))
		if err != nil {
			return nil, &ConfigurationError{Field: "kinds", Reason: err.Error()}
		}
		if _, err := ProfileFor(kind); err != nil {
			return nil, &ConfigurationError{Field: "kinds", Reason: err.Error()}
		}
		if !seen[kind] {
			seen[kind] = true
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		return nil, &ConfigurationError{Field: "kinds", Reason: "no dataset kind selected"}
	}
	return kinds, nil
}

// resolveWindow derives the inclusive window. Custom end dates cover the whole day (UTC);
// a missing custom start falls back to seven days before the end.
func resolveWindow(spec model.BatchSpec, now time.Time) (model.TimeRange, model.TimeWindow, error) {
	key := strings.TrimSpace(spec.TimeRange)
	if key == "" {
		key = "7days"
	}
	tr, ok := model.LookupTimeRange(key)
	if !ok {
		return tr, model.TimeWindow{}, &ConfigurationError{Field: "timeRange", Reason: fmt.Sprintf("unknown time range %q", key)}
	}

	if key != model.CustomRange {
		end := now.Unix()
		return tr, model.TimeWindow{Start: end - int64(tr.Days)*86400, End: end}, nil
	}

	end := now.UTC()
	if s := strings.TrimSpace(spec.EndDate); s != "" {
		d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
		if err != nil {
			return tr, model.TimeWindow{}, &ConfigurationError{Field: "endDate", Reason: err.Error()}
		}
		// the end date is inclusive: the window runs through 23:59:59 UTC
		end = d.Add(24*time.Hour - time.Second)
	}

	var start time.Time
	if s := strings.TrimSpace(spec.StartDate); s != "" {
		d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
		if err != nil {
			return tr, model.TimeWindow{}, &ConfigurationError{Field: "startDate", Reason: err.Error()}
		}
		start = d
	} else {
		// anchored on the end date, not on now, so an explicit end yields a full week
		y, m, d := end.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -7)
	}

	if end.Before(start) {
		return tr, model.TimeWindow{}, &ConfigurationError{Field: "endDate", Reason: "end date is before start date"}
	}
	return tr, model.TimeWindow{Start: start.Unix(), End: end.Unix()}, nil
}

// ------------------- Orchestrator -------------------

// Orchestrator runs one batch: tasks strictly one at a time, spaced by the inter-task delay
type Orchestrator struct {
	opts     Options
	fetcher  Fetcher
	logger   *slog.Logger
	observer Observer
	settings SettingsStore
	checker  CredentialChecker
	batchID  string
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	mu    sync.RWMutex
	state model.BatchState
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithObserver sets the progress observer
func WithObserver(o Observer) Option {
	return func(orch *Orchestrator) { orch.observer = o }
}

// WithSettingsStore persists the batch input after export
func WithSettingsStore(s SettingsStore) Option {
	return func(orch *Orchestrator) { orch.settings = s }
}

// WithCredentialChecker replaces the pre-flight check
func WithCredentialChecker(c CredentialChecker) Option {
	return func(orch *Orchestrator) { orch.checker = c }
}

// WithBatchID names the batch and its output directory
func WithBatchID(id string) Option {
	return func(orch *Orchestrator) { orch.batchID = id }
}

// WithClock replaces the wall clock and the inter-task sleep
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(orch *Orchestrator) {
		if now != nil {
			orch.now = now
		}
		if sleep != nil {
			orch.sleep = sleep
		}
	}
}

// NewOrchestrator creates an idle orchestrator
func NewOrchestrator(opts Options, fetcher Fetcher, logger *slog.Logger, options ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		opts:     opts,
		fetcher:  fetcher,
		logger:   logger,
		observer: NopObserver{},
		checker:  RequireSession,
		now:      time.Now,
		sleep:    sleepContext,
		state:    model.BatchIdle,
	}
	for _, opt := range options {
		opt(o)
	}
	if o.batchID == "" {
		o.batchID = uuid.NewString()
	}
	o.logger = o.logger.With("batch_id", o.batchID)
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BatchID returns the batch identifier
func (o *Orchestrator) BatchID() string { return o.batchID }

// State returns the current batch state
func (o *Orchestrator) State() model.BatchState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s model.BatchState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) log(level model.LogLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case model.LogError:
		o.logger.Error(msg)
	default:
		o.logger.Info(msg)
	}
	o.observer.Log(level, msg)
}

// Run executes the batch. It returns an error only when the batch is rejected before any
// task is created (ConfigurationError or ErrAuthInvalid); task failures are reported in the result.
func (o *Orchestrator) Run(ctx context.Context, spec model.BatchSpec, creds model.Credentials) (*model.BatchResult, error) {
	plan, err := PlanBatch(spec, o.opts, o.now())
	if err != nil {
		o.setState(model.BatchRejected)
		o.log(model.LogError, "batch rejected: %v", err)
		return nil, err
	}

	if err := o.checker.Check(ctx, creds); err != nil {
		if !errors.Is(err, ErrAuthInvalid) {
			err = fmt.Errorf("%w: %v", ErrAuthInvalid, err)
		}
		o.setState(model.BatchRejected)
		o.log(model.LogError, "batch rejected: %v", err)
		return nil, err
	}

	o.setState(model.BatchRunning)
	result := &model.BatchResult{
		Window:    plan.Window,
		StartedAt: o.now(),
		Errors:    []model.TaskError{},
		Files:     []string{},
	}

	total := len(plan.Tasks)
	o.log(model.LogInfo, "starting batch export: %d task(s), %s (%s)", total, plan.Range.Label, plan.Window)

	queries := make(map[model.DatasetKind]QueryDescriptor, len(plan.Kinds))
	for _, kind := range plan.Kinds {
		q, err := BuildQuery(kind, plan.Window)
		if err != nil {
			return nil, err
		}
		queries[kind] = q
	}

	builder := NewBuilder(plan.Kinds...)
	for i, task := range plan.Tasks {
		if i > 0 {
			if err := o.sleep(ctx, plan.Interval); err != nil {
				o.logger.Debug("inter-task delay interrupted", "error", err)
			}
		}

		o.observer.TaskState(task, model.TaskInFlight)
		o.log(model.LogInfo, "[%d/%d] fetching %s (%s) %s...", i+1, total, task.AppName, task.AppID, task.Kind.Label())

		records, err := o.runTask(ctx, task, queries[task.Kind], creds)
		if err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, model.TaskError{
				AppID:     task.AppID,
				AppName:   task.AppName,
				Kind:      task.Kind,
				Class:     string(Classify(err)),
				Message:   err.Error(),
				Timestamp: o.now(),
			})
			o.observer.TaskState(task, model.TaskFailed)
			o.log(model.LogError, "%s %s failed: %v", task.AppName, task.Kind.Label(), err)
		} else {
			builder.Add(task.Kind, task.AppID, task.AppName, records)
			result.SuccessCount++
			o.observer.TaskState(task, model.TaskSucceeded)
			o.log(model.LogSuccess, "%s %s fetched: %d row(s)", task.AppName, task.Kind.Label(), len(records))
		}
		o.observer.Progress(i+1, total)
	}

	o.export(builder, plan, result)

	result.CompletedAt = o.now()
	o.setState(model.BatchCompleted)
	o.observer.Summary(result)
	if result.SuccessCount > 0 {
		o.log(model.LogSuccess, "%s", result.Summary())
	} else {
		o.log(model.LogError, "%s", result.Summary())
	}

	if o.settings != nil {
		settings := model.Settings{AppIDs: spec.AppIDs, AppMapping: spec.AppMapping}
		if err := o.settings.SaveSettings(ctx, settings); err != nil {
			o.logger.Warn("failed to save settings", "error", err)
		}
	}
	return result, nil
}

// runTask fetches, validates and transforms one task
func (o *Orchestrator) runTask(ctx context.Context, task model.Task, query QueryDescriptor, creds model.Credentials) ([]model.ExportRecord, error) {
	profile, err := ProfileFor(task.Kind)
	if err != nil {
		return nil, err
	}
	raw, err := o.fetcher.Fetch(ctx, task.AppID, query, creds)
	if err != nil {
		return nil, err
	}
	table, err := Validate(raw)
	if err != nil {
		return nil, err
	}
	records, stats, err := profile.TransformRows(table, task.AppID, task.AppName, o.opts.Transform)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("rows transformed",
		"app_id", task.AppID,
		"kind", task.Kind,
		"kept", stats.Kept,
		"filtered", stats.Filtered,
	)
	return records, nil
}

// export finalizes the builder and writes files; failures are logged and never change task outcomes
func (o *Orchestrator) export(builder *Builder, plan *Plan, result *model.BatchResult) {
	sections, notes := builder.Finalize()
	for _, note := range notes {
		o.log(model.LogInfo, "%s", note)
	}
	result.Skipped = notes
	if len(sections) == 0 {
		o.log(model.LogInfo, "no data to export")
		return
	}

	dir, err := utils.NewOutputManager(o.opts.OutputDir).CreateBatchOutputDir(o.batchID)
	if err != nil {
		o.log(model.LogError, "export failed: %v", err)
		return
	}

	em := &ExportManager{
		Dir:       dir,
		Format:    plan.Format,
		Transform: o.opts.Transform,
		TimeLabel: plan.Range.Label,
		Window:    plan.Window,
		Logger:    o.logger,
	}
	for _, res := range em.Export(sections, plan.Kinds) {
		if !res.Success {
			o.log(model.LogError, "export failed: %s: %s", res.Path, res.Error)
			continue
		}
		result.Files = append(result.Files, res.Path)
		o.log(model.LogSuccess, "exported %d record(s) to %s", res.RecordCount, res.Path)
	}
}
