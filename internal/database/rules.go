package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/quotaguard/quotaguard/internal/models"
)

// RuleRepository handles rate limit rule database operations
type RuleRepository struct {
	db *DB
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *DB) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `
	id, tenant_id, name, scope, endpoint_pattern, max_requests,
	window_seconds, action, priority, exempt_user_ids, exempt_ip_addresses,
	exempt_api_key_ids, is_active, created_at, updated_at, deleted_at
`

// GetActiveRules retrieves the tenant's active, non-deleted rules.
// Ordering is left to the caller; the engine re-sorts by priority.
func (r *RuleRepository) GetActiveRules(ctx context.Context, tenantID string) ([]*models.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rate_limit_rules
		WHERE tenant_id = $1 AND is_active = TRUE AND deleted_at IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active rules: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	var rules []*models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return rules, nil
}

// GetByID retrieves one rule, or nil if it does not exist
func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rate_limit_rules
		WHERE id = $1
	`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// List retrieves all non-deleted rules for a tenant, including inactive ones
func (r *RuleRepository) List(ctx context.Context, tenantID string) ([]*models.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rate_limit_rules
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY priority DESC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	var rules []*models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return rules, nil
}

// Create inserts a new rule
func (r *RuleRepository) Create(ctx context.Context, rule *models.Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	query := `
		INSERT INTO rate_limit_rules (
			id, tenant_id, name, scope, endpoint_pattern, max_requests,
			window_seconds, action, priority, exempt_user_ids,
			exempt_ip_addresses, exempt_api_key_ids, is_active,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		rule.ID,
		rule.TenantID,
		rule.Name,
		rule.Scope,
		rule.EndpointPattern,
		rule.MaxRequests,
		rule.WindowSeconds,
		rule.Action,
		rule.Priority,
		pq.Array(rule.ExemptUserIDs),
		pq.Array(rule.ExemptIPs),
		pq.Array(rule.ExemptAPIKeyIDs),
		rule.IsActive,
		now,
		now,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

// Update overwrites an existing rule's definition
func (r *RuleRepository) Update(ctx context.Context, rule *models.Rule) error {
	query := `
		UPDATE rate_limit_rules SET
			name = $2, scope = $3, endpoint_pattern = $4, max_requests = $5,
			window_seconds = $6, action = $7, priority = $8,
			exempt_user_ids = $9, exempt_ip_addresses = $10,
			exempt_api_key_ids = $11, is_active = $12, updated_at = $13
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.Scope,
		rule.EndpointPattern,
		rule.MaxRequests,
		rule.WindowSeconds,
		rule.Action,
		rule.Priority,
		pq.Array(rule.ExemptUserIDs),
		pq.Array(rule.ExemptIPs),
		pq.Array(rule.ExemptAPIKeyIDs),
		rule.IsActive,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule not found: %s", rule.ID)
	}

	return nil
}

// SetActive toggles a rule without deleting it
func (r *RuleRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE rate_limit_rules
		SET is_active = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set rule active state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule not found: %s", id)
	}

	return nil
}

// SoftDelete marks a rule as deleted. Soft-deleted rules are never selected.
func (r *RuleRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE rate_limit_rules
		SET deleted_at = $2, is_active = FALSE, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule not found: %s", id)
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*models.Rule, error) {
	rule := &models.Rule{}
	var pattern sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&rule.ID,
		&rule.TenantID,
		&rule.Name,
		&rule.Scope,
		&pattern,
		&rule.MaxRequests,
		&rule.WindowSeconds,
		&rule.Action,
		&rule.Priority,
		pq.Array(&rule.ExemptUserIDs),
		pq.Array(&rule.ExemptIPs),
		pq.Array(&rule.ExemptAPIKeyIDs),
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if pattern.Valid {
		rule.EndpointPattern = pattern.String
	}
	if deletedAt.Valid {
		rule.DeletedAt = &deletedAt.Time
	}

	return rule, nil
}
