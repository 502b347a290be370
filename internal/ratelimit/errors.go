package ratelimit

import "errors"

var (
	// ErrStoreUnavailable indicates the counter store could not be reached.
	// The engine never maps this to an implicit allow or deny on its own;
	// the configured fail-open/fail-closed policy decides.
	ErrStoreUnavailable = errors.New("counter store unavailable")

	// ErrInvalidKeyInput indicates key derivation was attempted with inputs
	// that violate its contract (empty tenant or rule ID, or an empty
	// identifier for a non-global scope).
	ErrInvalidKeyInput = errors.New("invalid key derivation input")
)
