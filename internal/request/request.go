package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/quotaguard/quotaguard/internal/models"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Header names the upstream edge uses to convey identity attributes.
// Authentication itself happens upstream; this service only consumes the
// resulting attributes.
const (
	TenantHeader = "X-Tenant-ID"
	UserHeader   = "X-User-ID"
	APIKeyHeader = "X-API-Key-ID"
)

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// Identity builds the per-request identity context. defaultTenant is used
// when the edge did not set a tenant header.
func Identity(r *http.Request, defaultTenant string) *models.IdentityContext {
	tenant := strings.TrimSpace(r.Header.Get(TenantHeader))
	if tenant == "" {
		tenant = defaultTenant
	}
	return &models.IdentityContext{
		TenantID:  tenant,
		UserID:    strings.TrimSpace(r.Header.Get(UserHeader)),
		IPAddress: ClientIP(r),
		APIKeyID:  strings.TrimSpace(r.Header.Get(APIKeyHeader)),
		Endpoint:  r.URL.Path,
		Method:    r.Method,
	}
}

// WithIdentity returns a context with the identity attached. Used by the
// admission middleware so handlers see the same identity it checked.
func WithIdentity(ctx context.Context, ic *models.IdentityContext) context.Context {
	return context.WithValue(ctx, identityContextKey, ic)
}

// IdentityFromContext returns the identity from the request context, or nil
// if missing or wrong type.
func IdentityFromContext(r *http.Request) *models.IdentityContext {
	ic, _ := r.Context().Value(identityContextKey).(*models.IdentityContext)
	return ic
}
