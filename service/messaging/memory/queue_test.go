package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestPayload struct {
	ID    string
	Count int
}

func TestQueue(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	ctx := context.Background()

	payload := TestPayload{ID: "test-1", Count: 1}
	require.NoError(t, queue.Publish(ctx, &payload))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, payload, *message.T())

	assert.NoError(t, message.Ack())
	assert.ErrorIs(t, message.Ack(), ErrProcessed)
	assert.ErrorIs(t, message.Nack(nil), ErrProcessed)
}

func TestQueueRetries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = 5 * time.Millisecond
	queue := NewQueue[TestPayload](config)
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &TestPayload{ID: "retry"}))

	var ids []string
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
		message, err := queue.Consume(consumeCtx)
		cancel()
		require.NoError(t, err, "attempt %d", attempt)
		delivered := message.(*Message[TestPayload])
		assert.Equal(t, attempt, delivered.Attempts())
		ids = append(ids, delivered.ID())
		require.NoError(t, message.Nack(fmt.Errorf("attempt %d", attempt)))
		queue.Drain()
	}

	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.DLQSize())
	assert.Equal(t, []TestPayload{{ID: "retry"}}, queue.DeadLetters())
	assert.Equal(t, ids[0], ids[len(ids)-1])
}

func TestQueue_ConsumeCancelled(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := queue.Consume(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, queue.Publish(ctx, &TestPayload{}), context.Canceled)
}

func TestQueueConcurrency(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	producers, perProducer := 8, 25
	var consumed sync.Map
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(2)
		go func(producerID int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, queue.Publish(ctx, &TestPayload{ID: fmt.Sprintf("p%d-m%d", producerID, j)}))
			}
		}(p)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				message, err := queue.Consume(ctx)
				if !assert.NoError(t, err) {
					return
				}
				consumed.Store(message.T().ID, true)
				assert.NoError(t, message.Ack())
			}
		}()
	}
	wg.Wait()

	count := 0
	consumed.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.Equal(t, producers*perProducer, count)
}
