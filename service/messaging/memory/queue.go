package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/viant/cyclor/service/messaging"
)

// Config for the in-memory queue.
type Config struct {
	// QueueBuffer is the channel capacity; publishers block once exceeded.
	QueueBuffer int
}

// DefaultConfig returns a standard configuration for the memory queue.
func DefaultConfig() Config {
	return Config{QueueBuffer: 256}
}

// Message implements messaging.Message for the in-memory queue.
type Message[T any] struct {
	id        string
	payload   T
	queue     *Queue[T]
	mu        sync.Mutex
	processed bool
}

// T returns the message payload.
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	return nil
}

// Nack requeues the message for another consumer.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	requeued := &Message[T]{id: m.id, payload: m.payload, queue: m.queue}
	select {
	case m.queue.messages <- requeued:
		return nil
	default:
		return fmt.Errorf("queue full, dropping message %v after: %v", m.id, err)
	}
}

// Queue implements an in-memory messaging.Queue backed by a buffered
// channel.
type Queue[T any] struct {
	messages chan *Message[T]
}

// NewQueue creates a new in-memory queue.
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
	}
}

// Publish adds a new item to the queue.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	msg := &Message[T]{
		id:      uuid.New().String(),
		payload: *t,
		queue:   q,
	}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume retrieves a single item from the queue.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the current number of messages in the queue.
func (q *Queue[T]) Size() int {
	return len(q.messages)
}
