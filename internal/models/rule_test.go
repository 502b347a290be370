package models

import (
	"testing"
	"time"
)

func TestRuleSelectable(t *testing.T) {
	t.Parallel()
	now := time.Now()
	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{"active", Rule{IsActive: true}, true},
		{"inactive", Rule{IsActive: false}, false},
		{"soft_deleted", Rule{IsActive: true, DeletedAt: &now}, false},
		{"inactive_and_deleted", Rule{IsActive: false, DeletedAt: &now}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.rule.Selectable(); got != tt.want {
				t.Errorf("Selectable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuleWindow(t *testing.T) {
	t.Parallel()
	r := Rule{WindowSeconds: 90}
	if got := r.Window(); got != 90*time.Second {
		t.Errorf("Window() = %v, want 90s", got)
	}
}
