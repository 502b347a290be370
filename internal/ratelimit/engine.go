// Package ratelimit implements sliding-window admission control over a
// shared counter store. For every inbound operation it decides, per
// tenant-configured rule, whether the operation may proceed.
//
// Checking and recording are two separate store interactions rather than
// one atomic operation. Two requests racing on the same identifier can
// therefore both observe a count just below the limit and both be
// admitted, overshooting the limit by a small bounded margin. This is a
// deliberate trade-off favoring availability and simplicity; a store-side
// atomic script is a compatible stricter evolution as long as it still
// records only what was actually admitted.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/quotaguard/quotaguard/internal/logger"
	"github.com/quotaguard/quotaguard/internal/models"
	"go.uber.org/zap"
)

// globalIdentifier keys counters for rules with the global scope
const globalIdentifier = "global"

// Engine orchestrates rule selection, exemption checks, and sliding
// window evaluation into one admission decision per request. It holds no
// mutable state of its own beyond the injected store client, so a single
// Engine is shared safely by all request-handling goroutines.
type Engine struct {
	selector   *Selector
	source     RuleSource
	store      CounterStore
	window     windowEvaluator
	recorder   ViolationRecorder
	logger     *zap.Logger
	clock      Clock
	failClosed bool
}

// Option configures an Engine
type Option func(*Engine)

// WithFailClosed makes the engine deny requests while the counter store
// is unreachable. The default is fail-open: a store outage must not become
// a full outage of the protected service.
func WithFailClosed() Option {
	return func(e *Engine) { e.failClosed = true }
}

// WithClock overrides the engine's time source. Used by tests.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// NewEngine creates an admission engine. All collaborators are injected;
// the engine owns none of their lifecycles.
func NewEngine(source RuleSource, store CounterStore, recorder ViolationRecorder, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = NopRecorder
	}
	e := &Engine{
		selector: NewSelector(source, log),
		source:   source,
		store:    store,
		window:   windowEvaluator{store: store},
		recorder: recorder,
		logger:   log,
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check evaluates every applicable rule in priority order and returns the
// admission decision. It performs no recording; callers that go on to
// execute the protected operation must call Commit afterwards, and must
// not call Commit if the operation was cancelled or failed.
//
// Check never fails the request on infrastructure errors: rule lookup or
// store outages resolve to the configured fail-open/fail-closed policy,
// and every other error path skips only the affected rule.
func (e *Engine) Check(ctx context.Context, ic *models.IdentityContext) *models.Decision {
	now := e.clock.Now()

	rules, err := e.selector.Select(ctx, ic.TenantID, ic.Endpoint)
	if err != nil {
		e.logger.Error("rule_lookup_failed",
			zap.String("tenant_id", logger.SanitizeIdentifier(ic.TenantID)),
			zap.Error(err),
		)
		return e.outageDecision(nil)
	}
	if len(rules) == 0 {
		// No rules configured means unrestricted
		return &models.Decision{Allowed: true}
	}

	for _, rule := range rules {
		identifier, ok := scopeIdentifier(rule.Scope, ic)
		if !ok {
			// The scope needs an identity attribute this request doesn't
			// have (e.g. per-user with no authenticated user). Skip the
			// rule rather than fail the request.
			e.logger.Debug("rule_skipped_unresolvable_identifier",
				zap.String("rule_id", rule.ID.String()),
				zap.String("scope", string(rule.Scope)),
			)
			continue
		}
		if IsExempt(rule, ic.UserID, ic.IPAddress, ic.APIKeyID) {
			continue
		}

		allowed, count, err := e.window.evaluate(ctx, rule, ic.TenantID, identifier, now)
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				e.logger.Error("counter_store_unavailable",
					zap.String("rule_id", rule.ID.String()),
					zap.Error(err),
				)
				if e.failClosed {
					return e.denial(rule, count)
				}
				continue
			}
			e.logger.Warn("rule_evaluation_failed",
				zap.String("rule_id", rule.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if allowed {
			continue
		}

		// Threshold exceeded: always audit, regardless of action.
		e.recordViolation(ctx, rule, identifier, ic, count, now)

		if rule.Action == models.ActionLogOnly {
			// Log-only rules never deny admission
			continue
		}
		return e.denial(rule, count)
	}

	return &models.Decision{Allowed: true}
}

// Commit advances the sliding window for every non-exempt applicable rule.
// Callers invoke it only after the protected operation actually executed,
// immediately following a successful Check for the same identity context.
// A failed write only causes slight under-counting, so store errors are
// logged and swallowed.
func (e *Engine) Commit(ctx context.Context, ic *models.IdentityContext) {
	now := e.clock.Now()

	rules, err := e.selector.Select(ctx, ic.TenantID, ic.Endpoint)
	if err != nil {
		e.logger.Warn("commit_rule_lookup_failed",
			zap.String("tenant_id", logger.SanitizeIdentifier(ic.TenantID)),
			zap.Error(err),
		)
		return
	}

	for _, rule := range rules {
		identifier, ok := scopeIdentifier(rule.Scope, ic)
		if !ok {
			continue
		}
		if IsExempt(rule, ic.UserID, ic.IPAddress, ic.APIKeyID) {
			continue
		}

		key, err := DeriveKey(ic.TenantID, rule.Scope, identifier, rule.ID, rule.EndpointPattern)
		if err != nil {
			e.logger.Warn("commit_key_derivation_failed",
				zap.String("rule_id", rule.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if err := e.store.Record(ctx, key, now, rule.Window()+counterTTLBuffer); err != nil {
			e.logger.Warn("commit_record_failed",
				zap.String("rule_id", rule.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// Status returns a read-only snapshot of every applicable rule's counter
// for the identity. It performs no recording.
func (e *Engine) Status(ctx context.Context, ic *models.IdentityContext) ([]models.RuleStatus, error) {
	now := e.clock.Now()

	rules, err := e.selector.Select(ctx, ic.TenantID, ic.Endpoint)
	if err != nil {
		return nil, err
	}

	statuses := make([]models.RuleStatus, 0, len(rules))
	for _, rule := range rules {
		identifier, ok := scopeIdentifier(rule.Scope, ic)
		if !ok {
			continue
		}

		allowed, count, err := e.window.evaluate(ctx, rule, ic.TenantID, identifier, now)
		if err != nil {
			return nil, err
		}
		remaining := rule.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.RuleStatus{
			RuleName:      rule.Name,
			Scope:         rule.Scope,
			CurrentCount:  count,
			Limit:         rule.MaxRequests,
			WindowSeconds: rule.WindowSeconds,
			IsAllowed:     allowed || IsExempt(rule, ic.UserID, ic.IPAddress, ic.APIKeyID),
			Remaining:     remaining,
		})
	}

	return statuses, nil
}

// Reset deletes the counter key for one (rule, identifier) pair.
// Administrative operation; returns false when the rule does not exist or
// belongs to another tenant.
func (e *Engine) Reset(ctx context.Context, tenantID string, ruleID uuid.UUID, identifier string) (bool, error) {
	rule, err := e.source.GetByID(ctx, ruleID)
	if err != nil {
		return false, err
	}
	if rule == nil || rule.TenantID != tenantID {
		return false, nil
	}

	key, err := DeriveKey(tenantID, rule.Scope, identifier, rule.ID, rule.EndpointPattern)
	if err != nil {
		return false, err
	}
	if err := e.store.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// denial builds the deny decision for a triggered rule. Retry-after equals
// the rule's window by convention.
func (e *Engine) denial(rule *models.Rule, count int) *models.Decision {
	return &models.Decision{
		Allowed:           false,
		RuleTriggered:     rule,
		Action:            rule.Action,
		CurrentCount:      count,
		Limit:             rule.MaxRequests,
		WindowSeconds:     rule.WindowSeconds,
		RetryAfterSeconds: rule.WindowSeconds,
	}
}

// outageDecision resolves an infrastructure failure that prevented rule
// evaluation entirely, per the configured fail-open/fail-closed policy.
func (e *Engine) outageDecision(rule *models.Rule) *models.Decision {
	if !e.failClosed {
		return &models.Decision{Allowed: true}
	}
	d := &models.Decision{Allowed: false}
	if rule != nil {
		d.RuleTriggered = rule
		d.Action = rule.Action
		d.Limit = rule.MaxRequests
		d.WindowSeconds = rule.WindowSeconds
		d.RetryAfterSeconds = rule.WindowSeconds
	}
	return d
}

// recordViolation hands a violation to the audit sink. Audit is
// best-effort; admission correctness is not, so failures are logged and
// never propagated.
func (e *Engine) recordViolation(ctx context.Context, rule *models.Rule, identifier string, ic *models.IdentityContext, count int, now time.Time) {
	v := &models.Violation{
		ID:            uuid.New(),
		TenantID:      ic.TenantID,
		RuleID:        rule.ID,
		RuleName:      rule.Name,
		Scope:         rule.Scope,
		Identifier:    identifier,
		Endpoint:      ic.Endpoint,
		Method:        ic.Method,
		CurrentCount:  count,
		Limit:         rule.MaxRequests,
		WindowSeconds: rule.WindowSeconds,
		Action:        rule.Action,
		WasBlocked:    rule.Action != models.ActionLogOnly,
		OccurredAt:    now.UTC(),
	}
	if err := e.recorder.Record(ctx, v); err != nil {
		e.logger.Warn("violation_audit_write_failed",
			zap.String("rule_id", rule.ID.String()),
			zap.Error(err),
		)
	}
}

// scopeIdentifier resolves the counter identifier for a rule's scope from
// the request identity. The second return value is false when the scope
// requires an attribute the request does not carry.
func scopeIdentifier(scope models.Scope, ic *models.IdentityContext) (string, bool) {
	switch scope {
	case models.ScopeGlobal:
		return globalIdentifier, true
	case models.ScopePerTenant:
		return ic.TenantID, ic.TenantID != ""
	case models.ScopePerUser:
		return ic.UserID, ic.UserID != ""
	case models.ScopePerIP:
		return ic.IPAddress, ic.IPAddress != ""
	case models.ScopePerAPIKey:
		return ic.APIKeyID, ic.APIKeyID != ""
	case models.ScopePerEndpoint:
		return ic.Endpoint, ic.Endpoint != ""
	default:
		return "", false
	}
}
