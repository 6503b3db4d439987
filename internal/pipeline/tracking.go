package pipeline

import (
	"sync"
	"time"

	"apm-exporter/internal/model"
)

// Observer receives batch progress from the orchestrator, in order, on the batch goroutine
type Observer interface {
	Log(level model.LogLevel, message string)
	TaskState(task model.Task, state model.TaskState)
	Progress(completed, total int)
	Summary(result *model.BatchResult)
}

// NopObserver ignores everything
type NopObserver struct{}

func (NopObserver) Log(model.LogLevel, string)            {}
func (NopObserver) TaskState(model.Task, model.TaskState) {}
func (NopObserver) Progress(int, int)                     {}
func (NopObserver) Summary(*model.BatchResult)            {}

// MultiObserver fans every event out to each observer in order
type MultiObserver []Observer

func (m MultiObserver) Log(level model.LogLevel, message string) {
	for _, o := range m {
		o.Log(level, message)
	}
}

func (m MultiObserver) TaskState(task model.Task, state model.TaskState) {
	for _, o := range m {
		o.TaskState(task, state)
	}
}

func (m MultiObserver) Progress(completed, total int) {
	for _, o := range m {
		o.Progress(completed, total)
	}
}

func (m MultiObserver) Summary(result *model.BatchResult) {
	for _, o := range m {
		o.Summary(result)
	}
}

// BatchMetrics is a point-in-time view of a batch
type BatchMetrics struct {
	BatchID   string                     `json:"batch_id"`
	State     model.BatchState           `json:"state"`
	Total     int                        `json:"total"`
	Completed int                        `json:"completed"`
	Succeeded int                        `json:"succeeded"`
	Failed    int                        `json:"failed"`
	Tasks     map[string]model.TaskState `json:"tasks"`
	Logs      []model.LogEntry           `json:"logs"`
	Summary   string                     `json:"summary,omitempty"`
	StartTime time.Time                  `json:"start_time"`
	EndTime   *time.Time                 `json:"end_time,omitempty"`
	Duration  time.Duration              `json:"duration"`
}

// BatchTracker is an Observer that keeps metrics readable from other goroutines
type BatchTracker struct {
	mu      sync.RWMutex
	metrics BatchMetrics
	now     func() time.Time
}

// NewBatchTracker creates a tracker for batchID
func NewBatchTracker(batchID string) *BatchTracker {
	return &BatchTracker{
		metrics: BatchMetrics{
			BatchID:   batchID,
			State:     model.BatchIdle,
			Tasks:     make(map[string]model.TaskState),
			StartTime: time.Now(),
		},
		now: time.Now,
	}
}

func (bt *BatchTracker) Log(level model.LogLevel, message string) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.metrics.Logs = append(bt.metrics.Logs, model.LogEntry{Level: level, Message: message, Timestamp: bt.now()})
}

func (bt *BatchTracker) TaskState(task model.Task, state model.TaskState) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	if bt.metrics.State == model.BatchIdle {
		bt.metrics.State = model.BatchRunning
	}
	if prev, ok := bt.metrics.Tasks[task.Key()]; ok && prev.Terminal() {
		return
	}
	bt.metrics.Tasks[task.Key()] = state
	switch state {
	case model.TaskSucceeded:
		bt.metrics.Succeeded++
	case model.TaskFailed:
		bt.metrics.Failed++
	}
}

func (bt *BatchTracker) Progress(completed, total int) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.metrics.Completed = completed
	bt.metrics.Total = total
	bt.metrics.Duration = bt.now().Sub(bt.metrics.StartTime)
}

func (bt *BatchTracker) Summary(result *model.BatchResult) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	end := bt.now()
	bt.metrics.State = model.BatchCompleted
	bt.metrics.Summary = result.Summary()
	bt.metrics.EndTime = &end
	bt.metrics.Duration = end.Sub(bt.metrics.StartTime)
}

// GetMetrics returns a copy of the current metrics
func (bt *BatchTracker) GetMetrics() BatchMetrics {
	bt.mu.RLock()
	defer bt.mu.RUnlock()

	m := bt.metrics
	m.Tasks = make(map[string]model.TaskState, len(bt.metrics.Tasks))
	for k, v := range bt.metrics.Tasks {
		m.Tasks[k] = v
	}
	m.Logs = append([]model.LogEntry(nil), bt.metrics.Logs...)
	return m
}
