package models

import (
	"time"

	"github.com/google/uuid"
)

// Violation is an append-only audit record emitted when a rule denies a request.
// The identifier is kept raw (pre-hash) for audit readability; it is never used
// as a counter store key.
type Violation struct {
	ID            uuid.UUID `json:"id"`
	TenantID      string    `json:"tenant_id"`
	RuleID        uuid.UUID `json:"rule_id"`
	RuleName      string    `json:"rule_name"`
	Scope         Scope     `json:"scope"`
	Identifier    string    `json:"identifier"`
	Endpoint      string    `json:"endpoint"`
	Method        string    `json:"method"`
	CurrentCount  int       `json:"current_count"`
	Limit         int       `json:"limit"`
	WindowSeconds int       `json:"window_seconds"`
	Action        Action    `json:"action"`
	WasBlocked    bool      `json:"was_blocked"`
	OccurredAt    time.Time `json:"occurred_at"`
}
