package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/quotaguard/quotaguard/internal/database"
	logpkg "github.com/quotaguard/quotaguard/internal/logger"
	"github.com/quotaguard/quotaguard/internal/models"
	"github.com/quotaguard/quotaguard/internal/request"
	"github.com/quotaguard/quotaguard/internal/validation"
	"go.uber.org/zap"
)

// RuleHandler handles rule management HTTP requests
type RuleHandler struct {
	repo          database.RuleRepositoryInterface
	defaultTenant string
	logger        *zap.Logger
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(repo database.RuleRepositoryInterface, defaultTenant string, logger *zap.Logger) *RuleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleHandler{repo: repo, defaultTenant: defaultTenant, logger: logger}
}

func (h *RuleHandler) tenant(r *http.Request) string {
	if t := r.Header.Get(request.TenantHeader); t != "" {
		return t
	}
	return h.defaultTenant
}

// List handles GET /v1/admin/rules. Returns all non-deleted rules for
// the tenant, inactive ones included.
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repo.List(r.Context(), h.tenant(r))
	if err != nil {
		h.logger.Error("rule_list_failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}
	if rules == nil {
		rules = []*models.Rule{}
	}
	respondJSON(w, http.StatusOK, rules)
}

// Get handles GET /v1/admin/rules/{id}
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	rule, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("rule_get_failed", zap.String("rule_id", id.String()), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get rule")
		return
	}
	if rule == nil || rule.DeletedAt != nil || rule.TenantID != h.tenant(r) {
		respondError(w, http.StatusNotFound, "rule not found")
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

// Create handles POST /v1/admin/rules
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rule models.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule.ID = uuid.Nil
	rule.TenantID = h.tenant(r)
	rule.DeletedAt = nil

	if msg := h.checkRule(&rule); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.repo.Create(r.Context(), &rule); err != nil {
		h.logger.Error("rule_create_failed",
			zap.String("tenant_id", logpkg.SanitizeIdentifier(rule.TenantID)),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to create rule")
		return
	}

	h.logger.Info("rule_created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("tenant_id", logpkg.SanitizeIdentifier(rule.TenantID)),
		zap.String("scope", string(rule.Scope)),
	)
	respondJSON(w, http.StatusCreated, &rule)
}

// Update handles PUT /v1/admin/rules/{id}. The rule's identity fields
// are taken from the URL and the stored row, not the body.
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	existing, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("rule_get_failed", zap.String("rule_id", id.String()), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get rule")
		return
	}
	if existing == nil || existing.DeletedAt != nil || existing.TenantID != h.tenant(r) {
		respondError(w, http.StatusNotFound, "rule not found")
		return
	}

	var rule models.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rule.ID = id
	rule.TenantID = existing.TenantID
	rule.DeletedAt = nil

	if msg := h.checkRule(&rule); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.repo.Update(r.Context(), &rule); err != nil {
		h.logger.Error("rule_update_failed", zap.String("rule_id", id.String()), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update rule")
		return
	}

	h.logger.Info("rule_updated", zap.String("rule_id", id.String()))
	respondJSON(w, http.StatusOK, &rule)
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetActive handles PATCH /v1/admin/rules/{id}/active
func (h *RuleHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.requireOwned(w, r, id) {
		return
	}

	if err := h.repo.SetActive(r.Context(), id, req.IsActive); err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.logger.Error("rule_set_active_failed", zap.String("rule_id", id.String()), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update rule")
		return
	}

	h.logger.Info("rule_active_changed",
		zap.String("rule_id", id.String()),
		zap.Bool("is_active", req.IsActive),
	)
	respondJSON(w, http.StatusOK, map[string]bool{"is_active": req.IsActive})
}

// Delete handles DELETE /v1/admin/rules/{id}. Deletion is soft: the row
// stays for violation history but is never selected again.
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	if !h.requireOwned(w, r, id) {
		return
	}

	if err := h.repo.SoftDelete(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.logger.Error("rule_delete_failed", zap.String("rule_id", id.String()), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to delete rule")
		return
	}

	h.logger.Info("rule_deleted", zap.String("rule_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *RuleHandler) ruleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "rule id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// requireOwned verifies the rule exists, is not deleted, and belongs to
// the caller's tenant. It writes the error response itself and returns
// false when the caller should stop.
func (h *RuleHandler) requireOwned(w http.ResponseWriter, r *http.Request, id uuid.UUID) bool {
	rule, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("rule_get_failed", zap.String("rule_id", id.String()), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get rule")
		return false
	}
	if rule == nil || rule.DeletedAt != nil || rule.TenantID != h.tenant(r) {
		respondError(w, http.StatusNotFound, "rule not found")
		return false
	}
	return true
}

// checkRule validates a rule definition beyond struct tags: the endpoint
// pattern must compile, since a malformed pattern would silently disable
// the rule at evaluation time.
func (h *RuleHandler) checkRule(rule *models.Rule) string {
	if err := validation.ValidateRule(rule); err != nil {
		return err.Error()
	}
	if rule.EndpointPattern != "" {
		if _, err := regexp.Compile("^(?:" + rule.EndpointPattern + ")$"); err != nil {
			return "endpoint_pattern is not a valid regular expression"
		}
	}
	return ""
}
