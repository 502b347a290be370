package ratelimit

import "github.com/quotaguard/quotaguard/internal/models"

// IsExempt reports whether any of the caller's identity attributes appears
// on the rule's exemption allow-lists. Absent attributes never match.
// Pure function: no side effects, no store access.
func IsExempt(rule *models.Rule, userID, ipAddress, apiKeyID string) bool {
	if userID != "" && containsString(rule.ExemptUserIDs, userID) {
		return true
	}
	if ipAddress != "" && containsString(rule.ExemptIPs, ipAddress) {
		return true
	}
	if apiKeyID != "" && containsString(rule.ExemptAPIKeyIDs, apiKeyID) {
		return true
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
