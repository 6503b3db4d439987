package model

import (
	"fmt"
	"strings"
	"time"
)

// DatasetKind names a category of metrics with its own query layout and row rules
type DatasetKind string

const (
	KindPage      DatasetKind = "page"
	KindInterface DatasetKind = "interface"
)

// AllKinds lists every supported dataset kind in presentation order
func AllKinds() []DatasetKind {
	return []DatasetKind{KindPage, KindInterface}
}

// ParseDatasetKind maps user input onto a known kind
func ParseDatasetKind(s string) (DatasetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "page", "page-performance", "page_performance":
		return KindPage, nil
	case "interface", "api", "interface-performance", "interface_performance":
		return KindInterface, nil
	default:
		return "", fmt.Errorf("unknown dataset kind: %q", s)
	}
}

// Label is the human readable name used in filenames and logs
func (k DatasetKind) Label() string {
	switch k {
	case KindPage:
		return "page-performance"
	case KindInterface:
		return "interface-performance"
	default:
		return string(k)
	}
}

// Task is one (application, dataset kind) unit of fetch-transform-export work
type Task struct {
	AppID   string      `json:"app_id"`
	AppName string      `json:"app_name"`
	Kind    DatasetKind `json:"kind"`
}

// Key is the task identity
func (t Task) Key() string {
	return string(t.Kind) + "/" + t.AppID
}

// TaskState tracks a task through the orchestrator
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskInFlight  TaskState = "in_flight"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
)

// Terminal reports whether no further transition is allowed
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// BatchState tracks the batch as a whole
type BatchState string

const (
	BatchIdle      BatchState = "idle"
	BatchRunning   BatchState = "running"
	BatchCompleted BatchState = "completed"
	BatchRejected  BatchState = "rejected" // configuration or auth check failed before running
)

// TimeRange is a named window preset
type TimeRange struct {
	Key   string
	Label string
	Days  int
}

// CustomRange is the key selecting explicit start/end dates
const CustomRange = "custom"

var timeRanges = map[string]TimeRange{
	"7days":     {Key: "7days", Label: "last-7-days", Days: 7},
	"30days":    {Key: "30days", Label: "last-30-days", Days: 30},
	"90days":    {Key: "90days", Label: "last-90-days", Days: 90},
	CustomRange: {Key: CustomRange, Label: "custom-range", Days: 0},
}

// LookupTimeRange returns the preset registered under key
func LookupTimeRange(key string) (TimeRange, bool) {
	r, ok := timeRanges[key]
	return r, ok
}

// TimeWindow is an inclusive range of epoch seconds
type TimeWindow struct {
	Start int64 `json:"start_time"`
	End   int64 `json:"end_time"`
}

// StartDate formats the window start as YYYY-MM-DD (UTC)
func (w TimeWindow) StartDate() string {
	return time.Unix(w.Start, 0).UTC().Format(time.DateOnly)
}

// EndDate formats the window end as YYYY-MM-DD (UTC)
func (w TimeWindow) EndDate() string {
	return time.Unix(w.End, 0).UTC().Format(time.DateOnly)
}

// String renders the window the way batch logs show it
func (w TimeWindow) String() string {
	return w.StartDate() + " ~ " + w.EndDate()
}
