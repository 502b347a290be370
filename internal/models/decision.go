package models

// Decision is the outcome of an admission check
type Decision struct {
	Allowed           bool    `json:"allowed"`
	RuleTriggered     *Rule   `json:"rule_triggered,omitempty"`
	Action            Action  `json:"action,omitempty"`
	CurrentCount      int     `json:"current_count"`
	Limit             int     `json:"limit,omitempty"`
	WindowSeconds     int     `json:"window_seconds,omitempty"`
	RetryAfterSeconds int     `json:"retry_after_seconds,omitempty"`
}

// RuleStatus is a read-only snapshot of one rule's counter for an identity,
// returned by the diagnostic status endpoint. It performs no recording.
type RuleStatus struct {
	RuleName      string `json:"rule_name"`
	Scope         Scope  `json:"scope"`
	CurrentCount  int    `json:"current_count"`
	Limit         int    `json:"limit"`
	WindowSeconds int    `json:"window_seconds"`
	IsAllowed     bool   `json:"is_allowed"`
	Remaining     int    `json:"remaining"`
}
