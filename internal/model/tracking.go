package model

import (
	"fmt"
	"time"
)

// LogLevel tags a batch log line
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogError   LogLevel = "error"
)

// LogEntry is one ordered batch log line
type LogEntry struct {
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskError records the terminal failure of one task
type TaskError struct {
	AppID     string      `json:"app_id"`
	AppName   string      `json:"app_name"`
	Kind      DatasetKind `json:"kind"`
	Class     string      `json:"class"` // transport, api, malformed, missing_table, transform
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// BatchResult is the outcome of one batch run
type BatchResult struct {
	SuccessCount int         `json:"success_count"`
	FailureCount int         `json:"failure_count"`
	Errors       []TaskError `json:"errors"`
	Files        []string    `json:"files"`
	Skipped      []string    `json:"skipped,omitempty"` // empty sections, informational only
	Window       TimeWindow  `json:"window"`
	StartedAt    time.Time   `json:"started_at"`
	CompletedAt  time.Time   `json:"completed_at"`
}

// Total is the number of tasks that reached a terminal state
func (r *BatchResult) Total() int {
	return r.SuccessCount + r.FailureCount
}

// Summary renders the final completion line
func (r *BatchResult) Summary() string {
	return fmt.Sprintf("batch export finished: %d succeeded, %d failed", r.SuccessCount, r.FailureCount)
}

// BatchRecord is a persisted batch as listed by the store
type BatchRecord struct {
	ID           string    `json:"id"`
	Spec         BatchSpec `json:"spec"`
	Status       string    `json:"status"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	Files        []string  `json:"files"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
