package queue

import (
	"context"

	"github.com/quotaguard/quotaguard/internal/models"
)

// MessageInterface defines the interface for queue messages
// This enables better testability by allowing mock implementations
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetViolation() *models.Violation
}

// ViolationQueue is the interface for the violation audit pipeline
type ViolationQueue interface {
	// Publish hands one violation record to the queue
	Publish(ctx context.Context, v *models.Violation) error

	// Consume returns a channel of messages from the queue.
	// Messages are delivered asynchronously as they arrive; the caller is
	// responsible for acknowledging each message. Prefetch controls how
	// many unacknowledged messages each consumer can hold.
	// The returned channels close when the context is cancelled or an
	// error occurs.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}
