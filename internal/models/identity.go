package models

// IdentityContext carries the per-request identity attributes the engine
// keys its counters on. It is built fresh for every request and never persisted.
type IdentityContext struct {
	TenantID  string
	UserID    string
	IPAddress string
	APIKeyID  string
	Endpoint  string
	Method    string
}
