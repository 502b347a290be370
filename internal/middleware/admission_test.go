package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/quotaguard/quotaguard/internal/models"
	"github.com/quotaguard/quotaguard/internal/ratelimit"
	"github.com/quotaguard/quotaguard/internal/request"
)

type staticRules struct {
	rules []*models.Rule
}

func (s *staticRules) GetActiveRules(ctx context.Context, tenantID string) ([]*models.Rule, error) {
	out := make([]*models.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *staticRules) GetByID(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	for _, r := range s.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func newAdmissionHandler(t *testing.T, maxRequests int, handler http.HandlerFunc) http.Handler {
	t.Helper()
	rule := &models.Rule{
		ID:            uuid.New(),
		TenantID:      "acme",
		Name:          "ip-burst",
		Scope:         models.ScopePerIP,
		MaxRequests:   maxRequests,
		WindowSeconds: 60,
		Action:        models.ActionBlock,
		Priority:      10,
		IsActive:      true,
	}
	store := ratelimit.NewMemoryCounterStore()
	engine := ratelimit.NewEngine(&staticRules{rules: []*models.Rule{rule}}, store, ratelimit.NopRecorder, nil)
	return Admission(engine, "default", nil)(handler)
}

func doRequest(h http.Handler, ip string, tenant string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("GET", "/api/v1/widgets", nil)
	r.Header.Set("X-Forwarded-For", ip)
	r.Header.Set(request.TenantHeader, tenant)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestAdmissionAllowsUnderLimit(t *testing.T) {
	t.Parallel()
	h := newAdmissionHandler(t, 3, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		if w := doRequest(h, "203.0.113.1", "acme"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}
}

func TestAdmissionDeniesOverLimit(t *testing.T) {
	t.Parallel()
	h := newAdmissionHandler(t, 2, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	doRequest(h, "203.0.113.2", "acme")
	doRequest(h, "203.0.113.2", "acme")

	w := doRequest(h, "203.0.113.2", "acme")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", w.Header().Get("Retry-After"))
	}
	if w.Header().Get("X-RateLimit-Limit") != "2" {
		t.Errorf("X-RateLimit-Limit = %q, want 2", w.Header().Get("X-RateLimit-Limit"))
	}

	// A different IP is unaffected
	if w := doRequest(h, "203.0.113.3", "acme"); w.Code != http.StatusOK {
		t.Errorf("other IP status = %d, want 200", w.Code)
	}
}

func TestAdmissionDoesNotCountFailedHandlers(t *testing.T) {
	t.Parallel()
	h := newAdmissionHandler(t, 2, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	// Server errors never consume quota, no matter how many occur
	for i := 0; i < 5; i++ {
		if w := doRequest(h, "203.0.113.4", "acme"); w.Code != http.StatusInternalServerError {
			t.Fatalf("request %d: status = %d, want 500", i+1, w.Code)
		}
	}
}

func TestAdmissionAttachesIdentityToContext(t *testing.T) {
	t.Parallel()
	var seen *models.IdentityContext
	h := newAdmissionHandler(t, 5, func(w http.ResponseWriter, r *http.Request) {
		seen = request.IdentityFromContext(r)
		w.WriteHeader(http.StatusOK)
	})

	doRequest(h, "203.0.113.5", "acme")
	if seen == nil {
		t.Fatal("handler saw no identity context")
	}
	if seen.TenantID != "acme" || seen.IPAddress != "203.0.113.5" {
		t.Errorf("identity = %+v", seen)
	}
}

func TestAdmissionDefaultTenant(t *testing.T) {
	t.Parallel()
	var seen *models.IdentityContext
	h := newAdmissionHandler(t, 5, func(w http.ResponseWriter, r *http.Request) {
		seen = request.IdentityFromContext(r)
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest("GET", "/x", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if seen == nil || seen.TenantID != "default" {
		t.Errorf("identity = %+v, want default tenant", seen)
	}
}
