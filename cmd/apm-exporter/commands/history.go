package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"apm-exporter/internal/store"
)

// HistoryAction lists past batches, or shows one batch with its errors and log
func HistoryAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if id := cmd.String("id"); id != "" {
		return showBatch(ctx, appCtx.Store, id)
	}

	batches, err := appCtx.Store.ListBatches(ctx, int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}
	if len(batches) == 0 {
		fmt.Println("no batches yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tOK\tFAILED\tCREATED")
	for _, b := range batches {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", b.ID, b.Status, b.SuccessCount, b.FailureCount, b.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func showBatch(ctx context.Context, st *store.Store, id string) error {
	b, err := st.GetBatch(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("batch %s not found", id)
	}
	if err != nil {
		return err
	}

	fmt.Printf("batch:    %s\n", b.ID)
	fmt.Printf("status:   %s\n", b.Status)
	fmt.Printf("tasks:    %d succeeded, %d failed\n", b.SuccessCount, b.FailureCount)
	fmt.Printf("range:    %s %s %s\n", b.Spec.TimeRange, b.Spec.StartDate, b.Spec.EndDate)
	for _, f := range b.Files {
		fmt.Printf("file:     %s\n", f)
	}

	taskErrs, err := st.GetBatchErrors(ctx, id)
	if err != nil {
		return err
	}
	if len(taskErrs) > 0 {
		fmt.Println("\nerrors:")
		for _, e := range taskErrs {
			fmt.Printf("  %s %s [%s] %s\n", e.AppName, e.Kind.Label(), e.Class, e.Message)
		}
	}

	logs, err := st.GetBatchLogs(ctx, id)
	if err != nil {
		return err
	}
	if len(logs) > 0 {
		fmt.Println("\nlog:")
		for _, l := range logs {
			fmt.Printf("  %s [%s] %s\n", l.Timestamp.Local().Format("15:04:05"), l.Level, l.Message)
		}
	}
	return nil
}
