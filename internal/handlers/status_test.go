package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/quotaguard/quotaguard/internal/models"
	"github.com/quotaguard/quotaguard/internal/ratelimit"
	"github.com/quotaguard/quotaguard/internal/request"
)

func newStatusFixture(t *testing.T) (*StatusHandler, *ratelimit.Engine, *models.Rule) {
	t.Helper()
	rule := &models.Rule{
		ID:            uuid.New(),
		TenantID:      "acme",
		Name:          "user-burst",
		Scope:         models.ScopePerUser,
		MaxRequests:   5,
		WindowSeconds: 60,
		Action:        models.ActionBlock,
		IsActive:      true,
	}
	repo := newFakeRuleRepo()
	repo.rules[rule.ID] = rule
	store := ratelimit.NewMemoryCounterStore()
	engine := ratelimit.NewEngine(repo, store, ratelimit.NopRecorder, nil)
	return NewStatusHandler(engine, "default", nil), engine, rule
}

func identityRequest(method, target, tenant, user string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set(request.TenantHeader, tenant)
	r.Header.Set(request.UserHeader, user)
	return r
}

func TestStatusReportsCounts(t *testing.T) {
	t.Parallel()
	h, engine, _ := newStatusFixture(t)

	ic := &models.IdentityContext{TenantID: "acme", UserID: "u1", Endpoint: "/api/x", Method: "GET"}
	for i := 0; i < 2; i++ {
		engine.Commit(context.Background(), ic)
	}

	w := httptest.NewRecorder()
	h.Status(w, identityRequest("GET", "/v1/ratelimit/status?endpoint=/api/x", "acme", "u1"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		TenantID string              `json:"tenant_id"`
		Rules    []models.RuleStatus `json:"rules"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TenantID != "acme" {
		t.Errorf("tenant = %q, want acme", resp.TenantID)
	}
	if len(resp.Rules) != 1 {
		t.Fatalf("got %d rule statuses, want 1", len(resp.Rules))
	}
	rs := resp.Rules[0]
	if rs.CurrentCount != 2 || rs.Remaining != 3 || !rs.IsAllowed {
		t.Errorf("status = %+v, want count 2 remaining 3 allowed", rs)
	}
}

func TestStatusIsReadOnly(t *testing.T) {
	t.Parallel()
	h, engine, _ := newStatusFixture(t)

	req := identityRequest("GET", "/v1/ratelimit/status", "acme", "u2")
	for i := 0; i < 10; i++ {
		h.Status(httptest.NewRecorder(), req)
	}

	ic := &models.IdentityContext{TenantID: "acme", UserID: "u2"}
	statuses, err := engine.Status(context.Background(), ic)
	if err != nil {
		t.Fatalf("engine status: %v", err)
	}
	if len(statuses) != 1 || statuses[0].CurrentCount != 0 {
		t.Errorf("status queries consumed quota: %+v", statuses)
	}
}

func TestResetClearsCounter(t *testing.T) {
	t.Parallel()
	h, engine, rule := newStatusFixture(t)

	ic := &models.IdentityContext{TenantID: "acme", UserID: "u3"}
	for i := 0; i < 4; i++ {
		engine.Commit(context.Background(), ic)
	}

	body := `{"tenant_id":"acme","rule_id":"` + rule.ID.String() + `","identifier":"u3"}`
	r := httptest.NewRequest("POST", "/v1/admin/ratelimit/reset", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Reset(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	statuses, err := engine.Status(context.Background(), ic)
	if err != nil {
		t.Fatalf("engine status: %v", err)
	}
	if statuses[0].CurrentCount != 0 {
		t.Errorf("count after reset = %d, want 0", statuses[0].CurrentCount)
	}
}

func TestResetValidation(t *testing.T) {
	t.Parallel()
	h, _, rule := newStatusFixture(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing tenant", `{"rule_id":"` + rule.ID.String() + `"}`, http.StatusBadRequest},
		{"bad rule id", `{"tenant_id":"acme","rule_id":"nope"}`, http.StatusBadRequest},
		{"unknown rule", `{"tenant_id":"acme","rule_id":"` + uuid.NewString() + `","identifier":"u"}`, http.StatusNotFound},
		{"wrong tenant", `{"tenant_id":"umbrella","rule_id":"` + rule.ID.String() + `","identifier":"u"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/v1/admin/ratelimit/reset", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			h.Reset(w, r)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
