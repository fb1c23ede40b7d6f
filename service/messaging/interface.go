// Package messaging abstracts the work queue the engine drains: each message
// carries one (loop instance, step) dispatch unit. The abstraction keeps the
// engine independent of the queue transport; the in-memory implementation in
// the memory sub-package is the default.
package messaging

import (
	"context"
)

// Queue represents an abstract message queue for any payload type.
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue.
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue, blocking until one
	// is available or ctx is cancelled.
	Consume(ctx context.Context) (Message[T], error)

	// Size returns the number of messages currently queued.
	Size() int
}

// Message represents a message retrieved from a queue.
type Message[T any] interface {
	// T returns the payload of this message.
	T() *T

	// Ack acknowledges successful processing of this message.
	Ack() error

	// Nack indicates failure in processing this message; the queue requeues
	// it for another consumer.
	Nack(err error) error
}
