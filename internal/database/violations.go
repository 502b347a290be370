package database

import (
	"context"
	"fmt"

	"github.com/quotaguard/quotaguard/internal/models"
)

// ViolationRepository handles the append-only rate limit violation audit table
type ViolationRepository struct {
	db *DB
}

// NewViolationRepository creates a new violation repository
func NewViolationRepository(db *DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// Insert appends one violation record. Records are write-once: there is no
// update path by design.
func (r *ViolationRepository) Insert(ctx context.Context, v *models.Violation) error {
	query := `
		INSERT INTO rate_limit_violations (
			id, tenant_id, rule_id, rule_name, scope, identifier, endpoint,
			method, current_count, request_limit, window_seconds, action,
			was_blocked, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		v.ID,
		v.TenantID,
		v.RuleID,
		v.RuleName,
		v.Scope,
		v.Identifier,
		v.Endpoint,
		v.Method,
		v.CurrentCount,
		v.Limit,
		v.WindowSeconds,
		v.Action,
		v.WasBlocked,
		v.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}

	return nil
}

// ListRecent retrieves the tenant's most recent violations, newest first
func (r *ViolationRepository) ListRecent(ctx context.Context, tenantID string, limit int) ([]*models.Violation, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, tenant_id, rule_id, rule_name, scope, identifier, endpoint,
			method, current_count, request_limit, window_seconds, action,
			was_blocked, occurred_at
		FROM rate_limit_violations
		WHERE tenant_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	var violations []*models.Violation
	for rows.Next() {
		v := &models.Violation{}
		err := rows.Scan(
			&v.ID,
			&v.TenantID,
			&v.RuleID,
			&v.RuleName,
			&v.Scope,
			&v.Identifier,
			&v.Endpoint,
			&v.Method,
			&v.CurrentCount,
			&v.Limit,
			&v.WindowSeconds,
			&v.Action,
			&v.WasBlocked,
			&v.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate violations: %w", err)
	}

	return violations, nil
}
