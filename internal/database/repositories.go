package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/quotaguard/quotaguard/internal/models"
	"github.com/quotaguard/quotaguard/internal/ratelimit"
)

// RuleRepositoryInterface defines the interface for rule repository
// operations. This interface enables better testability by allowing mock
// implementations; it is a superset of the engine's ratelimit.RuleSource.
type RuleRepositoryInterface interface {
	GetActiveRules(ctx context.Context, tenantID string) ([]*models.Rule, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Rule, error)
	List(ctx context.Context, tenantID string) ([]*models.Rule, error)
	Create(ctx context.Context, rule *models.Rule) error
	Update(ctx context.Context, rule *models.Rule) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// ViolationRepositoryInterface defines the interface for violation
// repository operations
type ViolationRepositoryInterface interface {
	Insert(ctx context.Context, v *models.Violation) error
	ListRecent(ctx context.Context, tenantID string, limit int) ([]*models.Violation, error)
}

// Ensure concrete types implement the interfaces
var (
	_ RuleRepositoryInterface      = (*RuleRepository)(nil)
	_ ViolationRepositoryInterface = (*ViolationRepository)(nil)
	_ ratelimit.RuleSource         = (*RuleRepository)(nil)
)
