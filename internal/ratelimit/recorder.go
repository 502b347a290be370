package ratelimit

import (
	"context"

	"github.com/quotaguard/quotaguard/internal/models"
)

// ViolationRecorder receives violation records on denial. Recording is
// best-effort from the engine's perspective: a failed write is logged by
// the engine but never blocks or fails the admission decision.
type ViolationRecorder interface {
	Record(ctx context.Context, v *models.Violation) error
}

// RecorderFunc adapts a function to the ViolationRecorder interface
type RecorderFunc func(ctx context.Context, v *models.Violation) error

// Record calls f
func (f RecorderFunc) Record(ctx context.Context, v *models.Violation) error {
	return f(ctx, v)
}

// NopRecorder discards violations. Useful when no audit sink is configured.
var NopRecorder = RecorderFunc(func(ctx context.Context, v *models.Violation) error {
	return nil
})
