// Package event carries scheduler notifications (a run finished, a graph node
// completed) from producers to asynchronous listeners over a messaging queue.
package event

import "time"

// Event types published by the scheduler and graph executor.
const (
	TypeRunCompleted = "run.completed"
	TypeRunCancelled = "run.cancelled"
	TypeRunFaulted   = "run.faulted"
)

// Context describes what an event is about.
type Context struct {
	RunID       string `json:"runID"`
	Kernel      string `json:"kernel"`
	Node        string `json:"node,omitempty"`
	EventType   string `json:"eventType"`
	Status      string `json:"status,omitempty"`
	TimeTakenMs int    `json:"timeTakenMs"`
}

// Event wraps a payload with its context.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
