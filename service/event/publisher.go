package event

import (
	"context"
	"errors"
	"time"

	"github.com/viant/workgrid/service/messaging"
)

// Publisher sends typed events to a queue.
type Publisher[T any] struct {
	queue messaging.Queue[Event[T]]
}

// NewPublisher creates a publisher backed by queue.
func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{queue: queue}
}

// Publish stamps and enqueues the event.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	if p == nil || p.queue == nil {
		return errors.New("event: publisher has no queue")
	}
	event.CreatedAt = time.Now()
	return p.queue.Publish(ctx, event)
}

// Consume blocks until the next message is available and returns it unacknowledged.
func (p *Publisher[T]) Consume(ctx context.Context) (messaging.Message[Event[T]], error) {
	return p.queue.Consume(ctx)
}
