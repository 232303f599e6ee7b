package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Handler processes a single event. Returning an error negatively
// acknowledges the message so the queue can redeliver it.
type Handler[T any] func(ctx context.Context, event *Event[T]) error

// Listener drains a publisher queue on a background goroutine.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   Handler[T]
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      sync.WaitGroup
}

// NewListener creates a listener; call Start to begin consuming.
func NewListener[T any](publisher *Publisher[T], handler Handler[T], logger *slog.Logger) *Listener[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener[T]{publisher: publisher, handler: handler, logger: logger}
}

// Start launches the consuming goroutine.
func (l *Listener[T]) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done.Add(1)
	go func() {
		defer l.done.Done()
		for {
			msg, err := l.publisher.Consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				l.logger.Error("failed to consume event", "error", err)
				continue
			}
			if msg == nil {
				continue
			}
			event := msg.T()
			if err = l.handler(ctx, event); err != nil {
				l.logger.Warn("event handler failed", "eventType", event.Context.EventType, "run", event.Context.RunID, "error", err)
				_ = msg.Nack(err)
				continue
			}
			_ = msg.Ack()
		}
	}()
}

// Stop cancels consumption and waits for the goroutine to exit.
func (l *Listener[T]) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	l.done.Wait()
}
