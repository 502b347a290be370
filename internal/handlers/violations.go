package handlers

import (
	"net/http"
	"strconv"

	"github.com/quotaguard/quotaguard/internal/database"
	"github.com/quotaguard/quotaguard/internal/models"
	"github.com/quotaguard/quotaguard/internal/request"
	"go.uber.org/zap"
)

// ViolationHandler serves the recorded violation audit trail
type ViolationHandler struct {
	repo          database.ViolationRepositoryInterface
	defaultTenant string
	logger        *zap.Logger
}

// NewViolationHandler creates a new violation handler
func NewViolationHandler(repo database.ViolationRepositoryInterface, defaultTenant string, logger *zap.Logger) *ViolationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViolationHandler{repo: repo, defaultTenant: defaultTenant, logger: logger}
}

// List handles GET /v1/admin/violations. Supports ?limit=; the
// repository caps it.
func (h *ViolationHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(request.TenantHeader)
	if tenantID == "" {
		tenantID = h.defaultTenant
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	violations, err := h.repo.ListRecent(r.Context(), tenantID, limit)
	if err != nil {
		h.logger.Error("violation_list_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list violations")
		return
	}
	if violations == nil {
		violations = []*models.Violation{}
	}
	respondJSON(w, http.StatusOK, violations)
}
