package ratelimit

import (
	"context"
	"time"
)

// CounterStore is the engine's view of the shared, time-ordered counter
// store. Implementations must be safe for concurrent use; every method may
// block on I/O. Unreachable-store errors must wrap ErrStoreUnavailable.
type CounterStore interface {
	// CountInWindow returns the number of entries under key whose timestamp
	// lies in [windowStart, now]. Implementations purge entries older than
	// windowStart first; purge failures are best-effort and non-fatal.
	CountInWindow(ctx context.Context, key string, windowStart, now time.Time) (int, error)

	// Record inserts one entry timestamped at now and refreshes the key's
	// total expiry to ttl so abandoned keys self-clean.
	Record(ctx context.Context, key string, now time.Time, ttl time.Duration) error

	// Delete removes the key entirely. Used only by administrative reset.
	Delete(ctx context.Context, key string) error
}

// counterTTLBuffer is added to a rule's window when setting key expiry, so
// entries still inside the window are never dropped by key-level expiry.
const counterTTLBuffer = 60 * time.Second
