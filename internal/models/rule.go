package models

import (
	"time"

	"github.com/google/uuid"
)

// Scope is the dimension along which a rule's quota is tracked
type Scope string

const (
	ScopeGlobal      Scope = "global"
	ScopePerTenant   Scope = "per_tenant"
	ScopePerUser     Scope = "per_user"
	ScopePerIP       Scope = "per_ip"
	ScopePerAPIKey   Scope = "per_api_key"
	ScopePerEndpoint Scope = "per_endpoint"
)

// Action is what happens when a rule's limit is exceeded
type Action string

const (
	ActionBlock     Action = "block"
	ActionLogOnly   Action = "log_only"
	ActionThrottle  Action = "throttle"
	ActionChallenge Action = "challenge"
)

// Rule is a tenant-scoped rate limiting policy
type Rule struct {
	ID              uuid.UUID  `json:"id"`
	TenantID        string     `json:"tenant_id" validate:"required"`
	Name            string     `json:"name" validate:"required,max=255"`
	Scope           Scope      `json:"scope" validate:"required,rule_scope"`
	EndpointPattern string     `json:"endpoint_pattern,omitempty"`
	MaxRequests     int        `json:"max_requests" validate:"required,gt=0"`
	WindowSeconds   int        `json:"window_seconds" validate:"required,gt=0"`
	Action          Action     `json:"action" validate:"required,rule_action"`
	Priority        int        `json:"priority"`
	ExemptUserIDs   []string   `json:"exempt_user_ids,omitempty"`
	ExemptIPs       []string   `json:"exempt_ip_addresses,omitempty"`
	ExemptAPIKeyIDs []string   `json:"exempt_api_key_ids,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// Window returns the rule's window as a duration
func (r *Rule) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// Selectable reports whether the rule may ever be chosen for evaluation
func (r *Rule) Selectable() bool {
	return r.IsActive && r.DeletedAt == nil
}
