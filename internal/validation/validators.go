package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/quotaguard/quotaguard/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("rule_scope", validateRuleScope); err != nil {
		panic(fmt.Sprintf("failed to register rule_scope validator: %v", err))
	}
	if err := Validate.RegisterValidation("rule_action", validateRuleAction); err != nil {
		panic(fmt.Sprintf("failed to register rule_action validator: %v", err))
	}
}

// validateRuleScope validates that a string is a valid Scope enum value
func validateRuleScope(fl validator.FieldLevel) bool {
	switch models.Scope(fl.Field().String()) {
	case models.ScopeGlobal, models.ScopePerTenant, models.ScopePerUser,
		models.ScopePerIP, models.ScopePerAPIKey, models.ScopePerEndpoint:
		return true
	default:
		return false
	}
}

// validateRuleAction validates that a string is a valid Action enum value
func validateRuleAction(fl validator.FieldLevel) bool {
	switch models.Action(fl.Field().String()) {
	case models.ActionBlock, models.ActionLogOnly, models.ActionThrottle, models.ActionChallenge:
		return true
	default:
		return false
	}
}

// ValidateRule runs struct validation over a rule definition.
func ValidateRule(r *models.Rule) error {
	if err := Validate.Struct(r); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}
	return nil
}
