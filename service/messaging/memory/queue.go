// Package memory is a channel backed messaging.Queue. Negatively acknowledged
// messages are redelivered after a delay and parked as dead letters once
// their retries are exhausted.
package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/workgrid/internal/idgen"
	"github.com/viant/workgrid/service/messaging"
)

// ErrProcessed is returned when a message is settled twice.
var ErrProcessed = errors.New("message already processed")

// Config for memory queue implementation
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 256,
	}
}

// Message is one delivery of a payload. Attempts counts earlier failed deliveries.
type Message[T any] struct {
	id       string
	payload  T
	attempts int
	settled  atomic.Bool
	queue    *Queue[T]
}

// ID returns the message identifier, stable across redeliveries.
func (m *Message[T]) ID() string { return m.id }

// Attempts returns how many times the payload was nacked before this delivery.
func (m *Message[T]) Attempts() int { return m.attempts }

// T returns the message payload
func (m *Message[T]) T() *T { return &m.payload }

// Ack settles the message.
func (m *Message[T]) Ack() error {
	if !m.settled.CompareAndSwap(false, true) {
		return ErrProcessed
	}
	return nil
}

// Nack settles the message and schedules a redelivery, or dead letters it
// after MaxRetries failed deliveries.
func (m *Message[T]) Nack(_ error) error {
	if !m.settled.CompareAndSwap(false, true) {
		return ErrProcessed
	}
	m.queue.retry(m)
	return nil
}

// Queue implements an in-memory messaging.Queue
type Queue[T any] struct {
	config   Config
	messages chan *Message[T]
	inflight sync.WaitGroup

	deadMu sync.Mutex
	dead   []*Message[T]
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{config: config, messages: make(chan *Message[T], config.QueueBuffer)}
}

func (q *Queue[T]) retry(m *Message[T]) {
	attempts := m.attempts + 1
	if attempts > q.config.MaxRetries {
		if q.config.DeadLetter {
			q.deadMu.Lock()
			q.dead = append(q.dead, m)
			q.deadMu.Unlock()
		}
		return
	}
	next := &Message[T]{id: m.id, payload: m.payload, attempts: attempts, queue: q}
	q.inflight.Add(1)
	time.AfterFunc(q.config.RetryDelay, func() {
		defer q.inflight.Done()
		q.messages <- next
	})
}

// Publish enqueues a copy of t, blocking while the buffer is full.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.messages <- &Message[T]{id: idgen.New(), payload: *t, queue: q}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume blocks until a message is available or ctx is done.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the number of buffered messages.
func (q *Queue[T]) Size() int { return len(q.messages) }

// DLQSize returns the number of dead letters.
func (q *Queue[T]) DLQSize() int {
	q.deadMu.Lock()
	defer q.deadMu.Unlock()
	return len(q.dead)
}

// DeadLetters returns the payloads that exhausted their retries.
func (q *Queue[T]) DeadLetters() []T {
	q.deadMu.Lock()
	defer q.deadMu.Unlock()
	ret := make([]T, len(q.dead))
	for i, m := range q.dead {
		ret[i] = m.payload
	}
	return ret
}

// Drain waits until scheduled redeliveries are back in the buffer.
func (q *Queue[T]) Drain() { q.inflight.Wait() }

var _ messaging.Queue[any] = (*Queue[any])(nil)
