package ratelimit

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/google/uuid"
	"github.com/quotaguard/quotaguard/internal/models"
)

// keySeparator joins key components before hashing. It is a control
// character that no legitimate tenant, identifier, or endpoint contains;
// escapeKeyPart strips it defensively anyway so crafted inputs cannot
// collide across component boundaries.
const keySeparator = "\x1f"

func escapeKeyPart(s string) string {
	return strings.ReplaceAll(s, keySeparator, "")
}

// DeriveKey builds the counter store key for one (rule, identifier) pair.
//
// The identifier and endpoint pattern are folded into a fixed-width FNV-64a
// hash to bound key length, while the tenant, scope, and rule ID stay in
// the clear for observability:
//
//	ratelimit:{tenant}:{scope}:{hash16}:{ruleID}
//
// Derivation is deterministic: identical inputs always yield the same key.
// The identifier may be empty only for the global scope.
func DeriveKey(tenantID string, scope models.Scope, identifier string, ruleID uuid.UUID, endpointPattern string) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("%w: empty tenant id", ErrInvalidKeyInput)
	}
	if ruleID == uuid.Nil {
		return "", fmt.Errorf("%w: empty rule id", ErrInvalidKeyInput)
	}
	if identifier == "" && scope != models.ScopeGlobal {
		return "", fmt.Errorf("%w: empty identifier for scope %s", ErrInvalidKeyInput, scope)
	}

	h := fnv.New64a()
	h.Write([]byte(escapeKeyPart(tenantID)))
	h.Write([]byte(keySeparator))
	h.Write([]byte(string(scope)))
	h.Write([]byte(keySeparator))
	h.Write([]byte(escapeKeyPart(identifier)))
	h.Write([]byte(keySeparator))
	h.Write([]byte(escapeKeyPart(endpointPattern)))

	return fmt.Sprintf("ratelimit:%s:%s:%016x:%s", tenantID, scope, h.Sum64(), ruleID), nil
}
