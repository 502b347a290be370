package ratelimit

import (
	"testing"

	"github.com/quotaguard/quotaguard/internal/models"
)

func TestIsExempt(t *testing.T) {
	t.Parallel()
	rule := &models.Rule{
		ExemptUserIDs:   []string{"u-admin", "u-batch"},
		ExemptIPs:       []string{"10.0.0.1"},
		ExemptAPIKeyIDs: []string{"key-internal"},
	}
	tests := []struct {
		name     string
		userID   string
		ip       string
		apiKeyID string
		want     bool
	}{
		{"no_attributes", "", "", "", false},
		{"exempt_user", "u-admin", "", "", true},
		{"other_user", "u-guest", "", "", false},
		{"exempt_ip", "", "10.0.0.1", "", true},
		{"other_ip", "", "10.0.0.2", "", false},
		{"exempt_api_key", "", "", "key-internal", true},
		{"any_one_match_suffices", "u-guest", "10.0.0.2", "key-internal", true},
		{"all_present_none_match", "u-guest", "10.0.0.2", "key-external", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsExempt(rule, tt.userID, tt.ip, tt.apiKeyID); got != tt.want {
				t.Errorf("IsExempt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsExemptEmptyListsNeverMatch(t *testing.T) {
	t.Parallel()
	rule := &models.Rule{}
	if IsExempt(rule, "u1", "10.0.0.1", "key") {
		t.Error("rule without exemption lists should exempt nobody")
	}
}

// An empty attribute must never match, even if an empty string somehow
// ends up on an exemption list.
func TestIsExemptAbsentAttribute(t *testing.T) {
	t.Parallel()
	rule := &models.Rule{ExemptUserIDs: []string{""}}
	if IsExempt(rule, "", "", "") {
		t.Error("absent attributes must not match exemption entries")
	}
}
