package validation

import (
	"testing"

	"github.com/quotaguard/quotaguard/internal/models"
)

func validRule() *models.Rule {
	return &models.Rule{
		TenantID:      "t1",
		Name:          "api-burst",
		Scope:         models.ScopePerUser,
		MaxRequests:   100,
		WindowSeconds: 60,
		Action:        models.ActionBlock,
		IsActive:      true,
	}
}

func TestValidateRule(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*models.Rule)
		wantErr bool
	}{
		{"valid", func(r *models.Rule) {}, false},
		{"missing_tenant", func(r *models.Rule) { r.TenantID = "" }, true},
		{"missing_name", func(r *models.Rule) { r.Name = "" }, true},
		{"zero_max_requests", func(r *models.Rule) { r.MaxRequests = 0 }, true},
		{"negative_window", func(r *models.Rule) { r.WindowSeconds = -1 }, true},
		{"unknown_scope", func(r *models.Rule) { r.Scope = "per_planet" }, true},
		{"unknown_action", func(r *models.Rule) { r.Action = "explode" }, true},
		{"log_only_action", func(r *models.Rule) { r.Action = models.ActionLogOnly }, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := validRule()
			tt.mutate(r)
			err := ValidateRule(r)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRule() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
