package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/quotaguard/quotaguard/internal/models"
)

// MemoryQueue is an in-process ViolationQueue for tests and local
// development. Requeued messages go to the back of the queue.
type MemoryQueue struct {
	mu      sync.Mutex
	pending []*models.Violation
	closed  bool
	notify  chan struct{}
}

// NewMemoryQueue creates an in-memory violation queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		notify: make(chan struct{}, 1),
	}
}

// Publish appends one violation
func (q *MemoryQueue) Publish(ctx context.Context, v *models.Violation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	q.pending = append(q.pending, v)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of undelivered violations
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Consume delivers violations until the context is cancelled
func (q *MemoryQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, nil, fmt.Errorf("queue is closed")
	}
	q.mu.Unlock()

	if prefetchCount <= 0 {
		prefetchCount = 1
	}
	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		for {
			q.mu.Lock()
			var v *models.Violation
			if len(q.pending) > 0 {
				v = q.pending[0]
				q.pending = q.pending[1:]
			}
			closed := q.closed
			q.mu.Unlock()

			if closed {
				return
			}
			if v == nil {
				select {
				case <-ctx.Done():
					return
				case <-q.notify:
					continue
				}
			}

			msg := &Message{
				Violation: v,
				ackFn:     func() error { return nil },
				nackFn: func(requeue bool) error {
					if requeue {
						return q.Publish(context.Background(), v)
					}
					return nil
				},
			}

			select {
			case <-ctx.Done():
				// Requeue the undelivered message
				q.mu.Lock()
				q.pending = append([]*models.Violation{v}, q.pending...)
				q.mu.Unlock()
				return
			case msgChan <- msg:
			}
		}
	}()

	return msgChan, errChan, nil
}

// Close closes the queue
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// HealthCheck verifies the queue is usable
func (q *MemoryQueue) HealthCheck(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	return nil
}

var _ ViolationQueue = (*MemoryQueue)(nil)
