package pipeline

import (
	"regexp"
	"strings"

	"apm-exporter/internal/model"
	"apm-exporter/pkg/utils"
)

const (
	FieldAppID   = "App ID"
	FieldAppName = "App Name"
)

var (
	// aggregator and unit annotations the console appends to column labels
	annotationPattern  = regexp.MustCompile(`\s*\((?i:avg|sum|count|total|current|ms|s|us|%)\)`)
	percentilePattern  = regexp.MustCompile(`\s*\((?i:pct\d{1,2})\)`)
	layoutShiftPattern = regexp.MustCompile(`(?i)\bcls\b|累计布局偏移`)
	slowRequestPattern = regexp.MustCompile(`(?i)slow|慢请求`)
)

const interfaceLabelPrefix = "webpro_ajax."

// cleanLabels strips annotations (and prefix, if set) from every column label.
// Percentile annotations are stripped only when stripPercentiles is set.
// A cleaned label that collides with an earlier one falls back to the raw label.
func cleanLabels(columns []string, prefix string, stripPercentiles bool) []string {
	labels := make([]string, len(columns))
	seen := map[string]bool{FieldAppID: true, FieldAppName: true}
	for i, col := range columns {
		label := annotationPattern.ReplaceAllString(col, "")
		if stripPercentiles {
			label = percentilePattern.ReplaceAllString(label, "")
		}
		if prefix != "" {
			label = strings.ReplaceAll(label, prefix, "")
		}
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			label = strings.TrimSpace(col)
		}
		seen[label] = true
		labels[i] = label
	}
	return labels
}

func cell(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

// formatMetric renders a numeric cell: zero is always "0", everything else fixed places plus unit
func formatMetric(v any, places int, unit string) string {
	f, ok := utils.ParseNumber(v)
	if !ok {
		return utils.CellText(v)
	}
	if f == 0 {
		return "0"
	}
	return utils.FormatFixed(f, places) + unit
}

func newRecord(appID, appName string, width int) model.ExportRecord {
	fields := make([]model.Field, 0, width+2)
	fields = append(fields,
		model.Field{Name: FieldAppID, Value: appID},
		model.Field{Name: FieldAppName, Value: appName},
	)
	return model.ExportRecord{AppID: appID, AppName: appName, Fields: fields}
}

// ------------------- Page performance -------------------

type pageProfile struct{}

func (pageProfile) Kind() model.DatasetKind { return model.KindPage }

func (pageProfile) BuildQuery(window model.TimeWindow) QueryDescriptor {
	return pageLayout.build(model.KindPage, window)
}

func (pageProfile) Precision(column string, opts TransformOptions) int {
	if layoutShiftPattern.MatchString(column) {
		return opts.LayoutShiftPrecision
	}
	return opts.TimingPrecision
}

// TransformRows drops rows with too many zero metrics (no-data or bot traffic) and
// prefixes the page id with the application name.
func (p pageProfile) TransformRows(table model.ResponseTable, appID, appName string, opts TransformOptions) ([]model.ExportRecord, RowStats, error) {
	var stats RowStats
	if len(table.Columns) == 0 {
		if len(table.Rows) == 0 {
			return nil, stats, nil
		}
		return nil, stats, &TransformError{Reason: "table has rows but no columns"}
	}

	labels := cleanLabels(table.Columns, "", true)
	records := make([]model.ExportRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		zeros := 0
		for i := 1; i < len(table.Columns); i++ {
			if f, ok := utils.ParseNumber(cell(row, i)); ok && f == 0 {
				zeros++
			}
		}
		if zeros >= opts.PageZeroThreshold {
			stats.Filtered++
			continue
		}

		rec := newRecord(appID, appName, len(labels))
		for i, label := range labels {
			var value string
			if i == 0 {
				value = appName + "-" + utils.CellText(cell(row, 0))
			} else {
				value = formatMetric(cell(row, i), p.Precision(table.Columns[i], opts), table.Unit(i))
			}
			rec.Fields = append(rec.Fields, model.Field{Name: label, Value: value})
		}
		records = append(records, rec)
		stats.Kept++
	}
	return records, stats, nil
}

// ------------------- Interface performance -------------------

type interfaceProfile struct{}

func (interfaceProfile) Kind() model.DatasetKind { return model.KindInterface }

func (interfaceProfile) BuildQuery(window model.TimeWindow) QueryDescriptor {
	return interfaceLayout.build(model.KindInterface, window)
}

func (interfaceProfile) Precision(_ string, opts TransformOptions) int {
	return opts.TimingPrecision
}

// TransformRows keeps endpoints with at least InterfaceSlowThreshold slow requests
func (p interfaceProfile) TransformRows(table model.ResponseTable, appID, appName string, opts TransformOptions) ([]model.ExportRecord, RowStats, error) {
	var stats RowStats
	if len(table.Rows) == 0 {
		return nil, stats, nil
	}

	slowIdx := -1
	for i, col := range table.Columns {
		if slowRequestPattern.MatchString(col) {
			slowIdx = i
			break
		}
	}
	if slowIdx < 0 {
		return nil, stats, &TransformError{Reason: "no slow request count column in interface table"}
	}

	// p50/p90/p99 of one metric share a name; the percentile keeps them apart
	labels := cleanLabels(table.Columns, interfaceLabelPrefix, false)
	records := make([]model.ExportRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		// ParseNumber reads "3e+01" style strings as plain numbers
		slow, ok := utils.ParseNumber(cell(row, slowIdx))
		if !ok {
			slow = 0
		}
		if slow < float64(opts.InterfaceSlowThreshold) {
			stats.Filtered++
			continue
		}

		rec := newRecord(appID, appName, len(labels))
		for i, label := range labels {
			rec.Fields = append(rec.Fields, model.Field{
				Name:  label,
				Value: formatMetric(cell(row, i), opts.TimingPrecision, ""),
			})
		}
		records = append(records, rec)
		stats.Kept++
	}
	return records, stats, nil
}
