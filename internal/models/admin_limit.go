package models

import "time"

// AdminLimitConfig holds the coarse rate applied to the admin API surface
// itself (ulule/limiter format, e.g. "5-S", "100-M"). Stored in the database
// so operators can change it without redeploying.
type AdminLimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
