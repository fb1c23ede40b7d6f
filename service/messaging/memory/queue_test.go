package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type job struct {
	Loop int
	Step int
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[job](DefaultConfig())
	ctx := context.Background()

	assert.Nil(t, queue.Publish(ctx, &job{Loop: 0, Step: 1}))
	assert.Nil(t, queue.Publish(ctx, &job{Loop: 1, Step: 0}))
	assert.Equal(t, 2, queue.Size())

	msg, err := queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Equal(t, job{Loop: 0, Step: 1}, *msg.T())
	assert.Nil(t, msg.Ack())
	assert.NotNil(t, msg.Ack(), "double ack must be rejected")

	msg, err = queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Equal(t, job{Loop: 1, Step: 0}, *msg.T())
	assert.Nil(t, msg.Ack())
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_NackRequeues(t *testing.T) {
	queue := NewQueue[job](Config{QueueBuffer: 4})
	ctx := context.Background()

	assert.Nil(t, queue.Publish(ctx, &job{Loop: 3, Step: 2}))

	msg, err := queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Nil(t, msg.Nack(context.DeadlineExceeded))
	assert.NotNil(t, msg.Ack(), "nacked message is already settled")

	redelivered, err := queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Equal(t, job{Loop: 3, Step: 2}, *redelivered.T())
	assert.Nil(t, redelivered.Ack())
}

func TestQueue_ConsumeHonoursContext(t *testing.T) {
	queue := NewQueue[job](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := queue.Consume(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_PublishBlocksWhenFull(t *testing.T) {
	queue := NewQueue[job](Config{QueueBuffer: 1})
	ctx := context.Background()
	assert.Nil(t, queue.Publish(ctx, &job{}))

	blockedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := queue.Publish(blockedCtx, &job{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_ConcurrentConsumers(t *testing.T) {
	queue := NewQueue[job](DefaultConfig())
	ctx := context.Background()

	const total = 50
	for i := 0; i < total; i++ {
		assert.Nil(t, queue.Publish(ctx, &job{Loop: i}))
	}

	var mu sync.Mutex
	seen := map[int]bool{}
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				consumeCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
				msg, err := queue.Consume(consumeCtx)
				cancel()
				if err != nil {
					return
				}
				mu.Lock()
				seen[msg.T().Loop] = true
				mu.Unlock()
				_ = msg.Ack()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, total)
}
