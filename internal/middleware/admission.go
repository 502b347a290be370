package middleware

import (
	"fmt"
	"net/http"

	"github.com/quotaguard/quotaguard/internal/models"
	"github.com/quotaguard/quotaguard/internal/ratelimit"
	"github.com/quotaguard/quotaguard/internal/request"
	"go.uber.org/zap"
)

// Admission wraps handlers with the sliding-window admission check.
// Denied requests get a 429 with rate limit headers; admitted requests are
// served and then committed, but only when the handler did not fail. A
// request the service could not actually execute is never counted.
func Admission(engine *ratelimit.Engine, defaultTenant string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ic := request.Identity(r, defaultTenant)
			ctx := r.Context()

			decision := engine.Check(ctx, ic)
			if !decision.Allowed {
				ruleName := ""
				if decision.RuleTriggered != nil {
					ruleName = decision.RuleTriggered.Name
				}
				logger.Debug("request_denied",
					zap.String("rule", ruleName),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("current_count", decision.CurrentCount),
				)
				writeRateLimitHeaders(w, decision)
				w.Header().Set("Retry-After", fmt.Sprintf("%d", decision.RetryAfterSeconds))
				if decision.Action != "" {
					w.Header().Set("X-RateLimit-Action", string(decision.Action))
				}
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			writeRateLimitHeaders(w, decision)

			wrapped := &admissionResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(request.WithIdentity(ctx, ic)))

			// Commit only what actually executed: a handler that failed
			// server-side did not consume quota.
			if wrapped.statusCode < http.StatusInternalServerError {
				engine.Commit(ctx, ic)
			}
		})
	}
}

func writeRateLimitHeaders(w http.ResponseWriter, d *models.Decision) {
	if d.Limit == 0 {
		return
	}
	remaining := d.Limit - d.CurrentCount
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", d.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
}

type admissionResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (aw *admissionResponseWriter) WriteHeader(code int) {
	aw.statusCode = code
	aw.ResponseWriter.WriteHeader(code)
}
