package queue

import (
	"context"

	"github.com/quotaguard/quotaguard/internal/models"
	"github.com/quotaguard/quotaguard/internal/ratelimit"
)

// Recorder adapts a ViolationQueue to the engine's ViolationRecorder
// interface. Publishing is fire-and-forget from the engine's perspective:
// the engine logs a failed Record and carries on with the decision.
type Recorder struct {
	queue ViolationQueue
}

// NewRecorder creates a queue-backed violation recorder
func NewRecorder(q ViolationQueue) *Recorder {
	return &Recorder{queue: q}
}

// Record publishes the violation to the audit queue
func (r *Recorder) Record(ctx context.Context, v *models.Violation) error {
	return r.queue.Publish(ctx, v)
}

var _ ratelimit.ViolationRecorder = (*Recorder)(nil)
