package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/quotaguard/quotaguard/internal/models"
)

const defaultAdminLimitKey = "default"

// AdminLimitRepository handles the admin-surface rate limit configuration
// in the database.
type AdminLimitRepository struct {
	db *DB
}

// NewAdminLimitRepository creates a new admin limit config repository.
func NewAdminLimitRepository(db *DB) *AdminLimitRepository {
	return &AdminLimitRepository{db: db}
}

// Get retrieves the default admin limit config, or nil if none is stored.
func (r *AdminLimitRepository) Get(ctx context.Context) (*models.AdminLimitConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT config_key, rate, created_at, updated_at
		FROM admin_limit_config WHERE config_key = $1
	`, defaultAdminLimitKey)
	c := &models.AdminLimitConfig{}
	err := row.Scan(&c.ConfigKey, &c.Rate, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin limit config: %w", err)
	}
	return c, nil
}

// Set upserts the default admin limit config. Rate format: e.g. "5-S", "100-M".
func (r *AdminLimitRepository) Set(ctx context.Context, c *models.AdminLimitConfig) error {
	rate := strings.TrimSpace(c.Rate)
	if rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_limit_config (config_key, rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (config_key) DO UPDATE SET
			rate = EXCLUDED.rate,
			updated_at = EXCLUDED.updated_at
	`, defaultAdminLimitKey, rate, now, now)
	if err != nil {
		return fmt.Errorf("set admin limit config: %w", err)
	}
	return nil
}
