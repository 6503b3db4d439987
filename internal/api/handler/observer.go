package handler

import (
	"apm-exporter/internal/model"
)

// streamObserver mirrors batch events to stream subscribers
type streamObserver struct {
	batchID string
	hub     *Hub
}

func (o streamObserver) Log(level model.LogLevel, msg string) {
	o.publish(Event{Type: "log", Level: level, Message: msg})
}

func (o streamObserver) TaskState(task model.Task, state model.TaskState) {
	o.publish(Event{Type: "task", Task: &task, State: state})
}

func (o streamObserver) Progress(completed, total int) {
	o.publish(Event{Type: "progress", Completed: completed, Total: total})
}

func (o streamObserver) Summary(result *model.BatchResult) {
	o.publish(Event{Type: "summary", Message: result.Summary(), Result: result})
}

func (o streamObserver) publish(event Event) {
	if o.hub == nil {
		return
	}
	event.BatchID = o.batchID
	o.hub.Publish(event)
}
