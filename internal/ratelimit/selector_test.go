package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quotaguard/quotaguard/internal/models"
)

func selectorRule(id string, priority int, scope models.Scope, pattern string) *models.Rule {
	return &models.Rule{
		ID:              uuid.MustParse(id),
		TenantID:        "acme",
		Name:            "r-" + id[:8],
		Scope:           scope,
		EndpointPattern: pattern,
		MaxRequests:     10,
		WindowSeconds:   60,
		Action:          models.ActionBlock,
		Priority:        priority,
		IsActive:        true,
	}
}

func TestSelectOrdersByPriorityThenID(t *testing.T) {
	t.Parallel()
	a := selectorRule("00000000-0000-0000-0000-00000000000a", 5, models.ScopePerUser, "")
	b := selectorRule("00000000-0000-0000-0000-00000000000b", 5, models.ScopePerUser, "")
	c := selectorRule("00000000-0000-0000-0000-00000000000c", 9, models.ScopePerUser, "")
	sel := NewSelector(&memoryRuleSource{rules: []*models.Rule{b, a, c}}, nil)

	got, err := sel.Select(context.Background(), "acme", "/api/v1/widgets")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Highest priority first, then rule ID ascending for equal priorities
	if got[0].ID != c.ID || got[1].ID != a.ID || got[2].ID != b.ID {
		t.Errorf("order = [%s %s %s], want [c a b]", got[0].Name, got[1].Name, got[2].Name)
	}
}

func TestSelectEndpointMatching(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		scope    models.Scope
		pattern  string
		endpoint string
		want     bool
	}{
		{"global_matches_everything", models.ScopeGlobal, "", "/anything", true},
		{"empty_pattern_matches_everything", models.ScopePerUser, "", "/api/v1/widgets", true},
		{"regex_match", models.ScopePerUser, "/api/v1/.*", "/api/v1/widgets", true},
		{"regex_no_match", models.ScopePerUser, "/api/v1/.*", "/api/v2/widgets", false},
		{"anchored_exact", models.ScopePerUser, "/api/v1/widgets", "/api/v1/widgets", true},
		{"anchored_rejects_prefix", models.ScopePerUser, "/api", "/api/v1/widgets", false},
		{"alternation", models.ScopePerIP, "/login|/signup", "/signup", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rule := selectorRule("11111111-0000-0000-0000-000000000001", 1, tt.scope, tt.pattern)
			sel := NewSelector(&memoryRuleSource{rules: []*models.Rule{rule}}, nil)
			got, err := sel.Select(context.Background(), "acme", tt.endpoint)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if (len(got) == 1) != tt.want {
				t.Errorf("matched = %v, want %v", len(got) == 1, tt.want)
			}
		})
	}
}

func TestSelectSkipsMalformedPattern(t *testing.T) {
	t.Parallel()
	bad := selectorRule("22222222-0000-0000-0000-000000000001", 9, models.ScopePerUser, "/api/(oops")
	ok := selectorRule("22222222-0000-0000-0000-000000000002", 1, models.ScopePerUser, "/api/.*")
	sel := NewSelector(&memoryRuleSource{rules: []*models.Rule{bad, ok}}, nil)

	got, err := sel.Select(context.Background(), "acme", "/api/v1/widgets")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != ok.ID {
		t.Errorf("Select() = %v, want only the well-formed rule", got)
	}
}

func TestSelectExcludesInactiveAndDeleted(t *testing.T) {
	t.Parallel()
	now := time.Now()
	inactive := selectorRule("33333333-0000-0000-0000-000000000001", 1, models.ScopePerUser, "")
	inactive.IsActive = false
	deleted := selectorRule("33333333-0000-0000-0000-000000000002", 1, models.ScopePerUser, "")
	deleted.DeletedAt = &now
	live := selectorRule("33333333-0000-0000-0000-000000000003", 1, models.ScopePerUser, "")
	sel := NewSelector(&memoryRuleSource{rules: []*models.Rule{inactive, deleted, live}}, nil)

	got, err := sel.Select(context.Background(), "acme", "/x")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != live.ID {
		t.Errorf("Select() returned %d rules, want only the live one", len(got))
	}
}

func TestSelectFiltersByTenant(t *testing.T) {
	t.Parallel()
	r := selectorRule("44444444-0000-0000-0000-000000000001", 1, models.ScopePerUser, "")
	sel := NewSelector(&memoryRuleSource{rules: []*models.Rule{r}}, nil)

	got, err := sel.Select(context.Background(), "globex", "/x")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Select() leaked %d rules across tenants", len(got))
	}
}

func TestCompiledPatternCacheInvalidatesOnEdit(t *testing.T) {
	t.Parallel()
	rule := selectorRule("55555555-0000-0000-0000-000000000001", 1, models.ScopePerUser, "/old/.*")
	src := &memoryRuleSource{rules: []*models.Rule{rule}}
	sel := NewSelector(src, nil)

	if got, _ := sel.Select(context.Background(), "acme", "/old/x"); len(got) != 1 {
		t.Fatal("original pattern should match /old/x")
	}

	rule.EndpointPattern = "/new/.*"
	if got, _ := sel.Select(context.Background(), "acme", "/old/x"); len(got) != 0 {
		t.Error("edited pattern should no longer match /old/x")
	}
	if got, _ := sel.Select(context.Background(), "acme", "/new/x"); len(got) != 1 {
		t.Error("edited pattern should match /new/x")
	}
}
