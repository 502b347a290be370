package ratelimit

import (
	"context"
	"regexp"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/quotaguard/quotaguard/internal/logger"
	"github.com/quotaguard/quotaguard/internal/models"
	"go.uber.org/zap"
)

// RuleSource supplies rule definitions. The database repository implements
// it in production; tests use an in-memory fake.
type RuleSource interface {
	// GetActiveRules returns the tenant's active, non-deleted rules in any order.
	GetActiveRules(ctx context.Context, tenantID string) ([]*models.Rule, error)

	// GetByID returns one rule, or nil if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Rule, error)
}

// Selector picks the rules applicable to a (tenant, endpoint) pair and
// orders them for evaluation: priority descending, rule ID ascending on
// ties so the order is deterministic.
type Selector struct {
	source RuleSource
	logger *zap.Logger

	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

// NewSelector creates a rule selector
func NewSelector(source RuleSource, log *zap.Logger) *Selector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Selector{
		source:   source,
		logger:   log,
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Select returns the applicable rules for the endpoint, ordered for evaluation.
func (s *Selector) Select(ctx context.Context, tenantID, endpoint string) ([]*models.Rule, error) {
	rules, err := s.source.GetActiveRules(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Rule, 0, len(rules))
	for _, rule := range rules {
		// The repository already excludes inactive and soft-deleted rules;
		// re-check here so a non-database source cannot leak them through.
		if !rule.Selectable() || rule.TenantID != tenantID {
			continue
		}
		if s.matches(rule, endpoint) {
			matched = append(matched, rule)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	return matched, nil
}

// matches reports whether the rule applies to the endpoint. Global rules
// and rules without an endpoint pattern apply everywhere. A malformed
// pattern disables only that rule, never the request.
func (s *Selector) matches(rule *models.Rule, endpoint string) bool {
	if rule.Scope == models.ScopeGlobal || rule.EndpointPattern == "" {
		return true
	}

	re, err := s.compiled(rule.ID, rule.EndpointPattern)
	if err != nil {
		s.logger.Warn("invalid_rule_endpoint_pattern",
			zap.String("rule_id", rule.ID.String()),
			zap.String("rule_name", rule.Name),
			zap.String("pattern", logger.SanitizeString(rule.EndpointPattern, logger.MaxPathLength)),
			zap.Error(err),
		)
		return false
	}

	return re.MatchString(endpoint)
}

// compiled returns the rule's anchored endpoint regexp, compiling and
// caching it on first use. The cache key includes the pattern text so a
// rule whose pattern was edited recompiles instead of reusing stale state.
func (s *Selector) compiled(ruleID uuid.UUID, pattern string) (*regexp.Regexp, error) {
	cacheKey := ruleID.String() + "\x00" + pattern

	s.mu.RLock()
	re, ok := s.patterns[cacheKey]
	s.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.patterns[cacheKey] = re
	s.mu.Unlock()

	return re, nil
}
