package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/quotaguard/quotaguard/internal/ratelimit"
	"github.com/quotaguard/quotaguard/internal/request"
	"go.uber.org/zap"
)

// StatusHandler exposes the read-only counter diagnostics and the
// administrative counter reset.
type StatusHandler struct {
	engine        *ratelimit.Engine
	defaultTenant string
	logger        *zap.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(engine *ratelimit.Engine, defaultTenant string, logger *zap.Logger) *StatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusHandler{engine: engine, defaultTenant: defaultTenant, logger: logger}
}

// Status handles GET /v1/ratelimit/status. It reports, per applicable
// rule, the caller's current count and remaining quota. Performs no
// recording. The endpoint being inspected is passed as ?endpoint=; the
// identity attributes come from the usual headers.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	ic := request.Identity(r, h.defaultTenant)
	if endpoint := r.URL.Query().Get("endpoint"); endpoint != "" {
		ic.Endpoint = endpoint
	}

	statuses, err := h.engine.Status(r.Context(), ic)
	if err != nil {
		h.logger.Error("status_lookup_failed", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "counter store unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tenant_id": ic.TenantID,
		"endpoint":  ic.Endpoint,
		"rules":     statuses,
	})
}

type resetRequest struct {
	TenantID   string `json:"tenant_id"`
	RuleID     string `json:"rule_id"`
	Identifier string `json:"identifier"`
}

// Reset handles POST /v1/admin/ratelimit/reset. It deletes the counter
// key for one (rule, identifier) pair.
func (h *StatusHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" || req.RuleID == "" {
		respondError(w, http.StatusBadRequest, "tenant_id and rule_id are required")
		return
	}
	ruleID, err := uuid.Parse(req.RuleID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "rule_id must be a UUID")
		return
	}

	ok, err := h.engine.Reset(r.Context(), req.TenantID, ruleID, req.Identifier)
	if err != nil {
		h.logger.Error("counter_reset_failed",
			zap.String("rule_id", req.RuleID),
			zap.Error(err),
		)
		respondError(w, http.StatusServiceUnavailable, "reset failed")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "rule not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"reset": true})
}
