package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"apm-exporter/internal/model"
	"apm-exporter/internal/pipeline"
	"apm-exporter/internal/store"
)

// RunAction runs one batch export in the foreground
func RunAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	spec, err := batchSpecFromFlags(ctx, cmd, appCtx.Store)
	if err != nil {
		return err
	}

	opts := appCtx.Config.PipelineOptions()
	if dir := cmd.String("output"); dir != "" {
		opts.OutputDir = dir
	}

	creds := appCtx.Config.Credentials
	if token := cmd.String("token"); token != "" {
		creds.Token = token
	}
	if cookie := cmd.String("cookie"); cookie != "" {
		creds.Cookie = cookie
	}

	batchID := uuid.New().String()
	if err := appCtx.Store.SaveBatch(ctx, batchID, spec); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}

	observer := pipeline.MultiObserver{
		consoleObserver{out: os.Stdout},
		store.NewBatchLog(ctx, appCtx.Store, batchID, appCtx.Logger),
	}
	fetcher := pipeline.NewHTTPFetcher(opts, nil, appCtx.Logger)
	orch := pipeline.NewOrchestrator(opts, fetcher, appCtx.Logger,
		pipeline.WithBatchID(batchID),
		pipeline.WithObserver(observer),
		pipeline.WithSettingsStore(appCtx.Store),
		pipeline.WithCredentialChecker(appCtx.Checker()),
	)

	bg := context.WithoutCancel(ctx)
	result, err := orch.Run(ctx, spec, creds)
	if err != nil {
		appCtx.Store.UpdateBatchStatus(bg, batchID, string(model.BatchRejected))
		if errors.Is(err, pipeline.ErrAuthInvalid) {
			return fmt.Errorf("%w: set APM_CSRF_TOKEN and APM_COOKIE or pass --token and --cookie", err)
		}
		return err
	}
	if err := appCtx.Store.RecordResult(bg, batchID, result); err != nil {
		appCtx.Logger.Error("failed to record batch result", "batch_id", batchID, "error", err)
	}

	fmt.Printf("\nbatch %s\n", batchID)
	for _, f := range result.Files {
		fmt.Printf("  %s\n", f)
	}
	if result.SuccessCount == 0 && result.FailureCount > 0 {
		return fmt.Errorf("every task failed")
	}
	return nil
}

// batchSpecFromFlags builds the batch input, falling back to the last-used applications
func batchSpecFromFlags(ctx context.Context, cmd *cli.Command, st *store.Store) (model.BatchSpec, error) {
	spec := model.BatchSpec{
		AppIDs:          strings.ReplaceAll(cmd.String("apps"), ",", "\n"),
		AppMapping:      cmd.String("mapping"),
		TimeRange:       cmd.String("range"),
		StartDate:       cmd.String("start"),
		EndDate:         cmd.String("end"),
		RequestInterval: int(cmd.Int("interval")),
		OutputFormat:    cmd.String("format"),
	}
	for _, k := range cmd.StringSlice("kinds") {
		for _, part := range strings.Split(k, ",") {
			if part = strings.TrimSpace(part); part != "" {
				spec.Kinds = append(spec.Kinds, model.DatasetKind(part))
			}
		}
	}

	if path := cmd.String("apps-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return spec, fmt.Errorf("failed to read apps file: %w", err)
		}
		spec.AppIDs = string(data)
	}
	if path := cmd.String("mapping-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return spec, fmt.Errorf("failed to read mapping file: %w", err)
		}
		spec.AppMapping = string(data)
	}

	saved, ok, err := st.LoadSettings(ctx)
	if err != nil {
		return spec, fmt.Errorf("failed to load settings: %w", err)
	}
	return withSettingsFallback(spec, saved, ok), nil
}

// withSettingsFallback fills a missing application list from the last-used settings and a
// missing mapping from the saved one, or the default mapping when nothing was saved
func withSettingsFallback(spec model.BatchSpec, saved model.Settings, ok bool) model.BatchSpec {
	if strings.TrimSpace(spec.AppIDs) == "" && ok {
		spec.AppIDs = saved.AppIDs
	}
	if strings.TrimSpace(spec.AppMapping) == "" {
		if ok && strings.TrimSpace(saved.AppMapping) != "" {
			spec.AppMapping = saved.AppMapping
		} else {
			spec.AppMapping = model.DefaultAppMappingJSON()
		}
	}
	return spec
}

// consoleObserver prints batch log lines for a terminal
type consoleObserver struct {
	pipeline.NopObserver
	out io.Writer
}

func (c consoleObserver) Log(level model.LogLevel, message string) {
	marker := "·"
	switch level {
	case model.LogSuccess:
		marker = "✓"
	case model.LogError:
		marker = "✗"
	}
	fmt.Fprintf(c.out, "%s %s\n", marker, message)
}
