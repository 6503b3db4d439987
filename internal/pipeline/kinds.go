package pipeline

import (
	"fmt"

	"apm-exporter/internal/model"
)

// RowStats counts what a transform kept and dropped
type RowStats struct {
	Kept     int
	Filtered int
}

// Profile is the per-kind behaviour the orchestrator dispatches on
type Profile interface {
	Kind() model.DatasetKind
	// BuildQuery renders the kind's fixed metric layout for window
	BuildQuery(window model.TimeWindow) QueryDescriptor
	// TransformRows filters and formats one response table
	TransformRows(table model.ResponseTable, appID, appName string, opts TransformOptions) ([]model.ExportRecord, RowStats, error)
	// Precision is the decimal places used for a cleaned column when values are re-parsed for a workbook
	Precision(column string, opts TransformOptions) int
}

var profiles = map[model.DatasetKind]Profile{
	model.KindPage:      pageProfile{},
	model.KindInterface: interfaceProfile{},
}

// ProfileFor returns the registered profile of kind
func ProfileFor(kind model.DatasetKind) (Profile, error) {
	p, ok := profiles[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported dataset kind: %q", kind)
	}
	return p, nil
}

// Transform reshapes a response table into export records for the given kind
func Transform(table model.ResponseTable, appID, appName string, kind model.DatasetKind, opts TransformOptions) ([]model.ExportRecord, error) {
	profile, err := ProfileFor(kind)
	if err != nil {
		return nil, err
	}
	records, _, err := profile.TransformRows(table, appID, appName, opts)
	return records, err
}
