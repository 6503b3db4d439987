package pipeline

import (
	"fmt"
	"strings"
	"time"

	"apm-exporter/internal/model"
)

// OutputFormat selects how a finished batch is serialized
type OutputFormat string

const (
	FormatCSV  OutputFormat = "csv"  // one BOM-prefixed CSV per (kind, application)
	FormatXLSX OutputFormat = "xlsx" // one workbook holding every section
)

// ParseOutputFormat accepts "csv" or "xlsx" ("" selects def)
func ParseOutputFormat(s string, def OutputFormat) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel", "workbook":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported output format: %q (must be csv or xlsx)", s)
	}
}

// TransformOptions holds the row filtering and formatting knobs
type TransformOptions struct {
	PageZeroThreshold      int `toml:"page_zero_threshold"`      // drop page rows with this many zero metrics
	InterfaceSlowThreshold int `toml:"interface_slow_threshold"` // drop interface rows with fewer slow requests
	LayoutShiftPrecision   int `toml:"layout_shift_precision"`
	TimingPrecision        int `toml:"timing_precision"`
}

// DefaultTransformOptions returns the thresholds the console export used
func DefaultTransformOptions() TransformOptions {
	return TransformOptions{
		PageZeroThreshold:      3,
		InterfaceSlowThreshold: 30,
		LayoutShiftPrecision:   6,
		TimingPrecision:        2,
	}
}

// Options is the immutable configuration handed to an orchestrator at batch start
type Options struct {
	Endpoint       string
	Timeout        time.Duration
	Retry          model.RetryConfig
	InterTaskDelay time.Duration
	OutputDir      string
	OutputFormat   OutputFormat
	Transform      TransformOptions
}

// DefaultOptions returns options matching the upstream console defaults
func DefaultOptions() Options {
	return Options{
		Endpoint:       "https://console.volcengine.com/api/top/apmplus/cn-beijing/2023-01-12/DashboardCustomGraphDraw",
		Timeout:        30 * time.Second,
		Retry:          model.DefaultRetryConfig(),
		InterTaskDelay: 1000 * time.Millisecond,
		OutputDir:      "exports",
		OutputFormat:   FormatXLSX,
		Transform:      DefaultTransformOptions(),
	}
}
