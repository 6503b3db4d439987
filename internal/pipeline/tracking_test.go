package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"apm-exporter/internal/model"
)

type countingObserver struct {
	logs, states, progress, summaries int
}

func (c *countingObserver) Log(model.LogLevel, string)            { c.logs++ }
func (c *countingObserver) TaskState(model.Task, model.TaskState) { c.states++ }
func (c *countingObserver) Progress(int, int)                     { c.progress++ }
func (c *countingObserver) Summary(*model.BatchResult)            { c.summaries++ }

func TestMultiObserver(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	m := MultiObserver{a, b, NopObserver{}}

	m.Log(model.LogInfo, "hello")
	m.TaskState(model.Task{AppID: "1", Kind: model.KindPage}, model.TaskInFlight)
	m.Progress(1, 2)
	m.Summary(&model.BatchResult{})

	for _, o := range []*countingObserver{a, b} {
		assert.Equal(t, countingObserver{logs: 1, states: 1, progress: 1, summaries: 1}, *o)
	}
}

func TestBatchTracker_TerminalStateIsFinal(t *testing.T) {
	bt := NewBatchTracker("b")
	task := model.Task{AppID: "1", Kind: model.KindPage}

	bt.TaskState(task, model.TaskInFlight)
	bt.TaskState(task, model.TaskFailed)
	bt.TaskState(task, model.TaskSucceeded)

	m := bt.GetMetrics()
	assert.Equal(t, model.BatchRunning, m.State)
	assert.Equal(t, model.TaskFailed, m.Tasks[task.Key()])
	assert.Equal(t, 1, m.Failed)
	assert.Equal(t, 0, m.Succeeded)

	m.Tasks[task.Key()] = model.TaskPending
	assert.Equal(t, model.TaskFailed, bt.GetMetrics().Tasks[task.Key()])
}
