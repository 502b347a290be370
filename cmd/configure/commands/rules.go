package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/quotaguard/quotaguard/internal/config"
	"github.com/quotaguard/quotaguard/internal/database"
	"github.com/quotaguard/quotaguard/internal/models"
	"github.com/quotaguard/quotaguard/internal/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewRulesCmd creates the rules management command
func NewRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage rate limit rules",
		Long:  "List, add, enable, disable, delete, or bulk-import rate limit rules",
	}
	cmd.AddCommand(newRulesListCmd())
	cmd.AddCommand(newRulesAddCmd())
	cmd.AddCommand(newRulesEnableCmd())
	cmd.AddCommand(newRulesDisableCmd())
	cmd.AddCommand(newRulesDeleteCmd())
	cmd.AddCommand(newRulesImportCmd())
	return cmd
}

func openRuleRepo() (*database.DB, *database.RuleRepository, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, database.NewRuleRepository(db), nil
}

func newRulesListCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, repo, err := openRuleRepo()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			rules, err := repo.List(context.Background(), tenant)
			if err != nil {
				return fmt.Errorf("list rules: %w", err)
			}
			if len(rules) == 0 {
				fmt.Printf("No rules for tenant %q.\n", tenant)
				return nil
			}
			for _, r := range rules {
				state := "active"
				if !r.IsActive {
					state = "inactive"
				}
				fmt.Printf("%s  %-20s  %-12s  %d/%ds  %-9s  prio=%d  [%s]\n",
					r.ID, r.Name, r.Scope, r.MaxRequests, r.WindowSeconds, r.Action, r.Priority, state)
				if r.EndpointPattern != "" {
					fmt.Printf("    pattern: %s\n", r.EndpointPattern)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "default", "Tenant ID")
	return cmd
}

func newRulesAddCmd() *cobra.Command {
	rule := &models.Rule{}
	var scope, action string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a rate limit rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			rule.Scope = models.Scope(scope)
			rule.Action = models.Action(action)
			rule.IsActive = true
			if err := validation.ValidateRule(rule); err != nil {
				return err
			}

			db, repo, err := openRuleRepo()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := repo.Create(context.Background(), rule); err != nil {
				return fmt.Errorf("create rule: %w", err)
			}
			fmt.Printf("Rule created: %s\n", rule.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&rule.TenantID, "tenant", "default", "Tenant ID")
	cmd.Flags().StringVar(&rule.Name, "name", "", "Rule name (required)")
	cmd.Flags().StringVar(&scope, "scope", "", "Scope: global, per_tenant, per_user, per_ip, per_api_key, per_endpoint (required)")
	cmd.Flags().StringVar(&rule.EndpointPattern, "pattern", "", "Endpoint regex pattern (optional)")
	cmd.Flags().IntVar(&rule.MaxRequests, "max", 0, "Maximum requests per window (required)")
	cmd.Flags().IntVar(&rule.WindowSeconds, "window", 0, "Window length in seconds (required)")
	cmd.Flags().StringVar(&action, "action", "block", "Action: block, log_only, throttle, challenge")
	cmd.Flags().IntVar(&rule.Priority, "priority", 0, "Rule priority (higher wins)")
	cmd.Flags().StringSliceVar(&rule.ExemptUserIDs, "exempt-user", nil, "Exempt user ID (repeatable)")
	cmd.Flags().StringSliceVar(&rule.ExemptIPs, "exempt-ip", nil, "Exempt IP address (repeatable)")
	cmd.Flags().StringSliceVar(&rule.ExemptAPIKeyIDs, "exempt-api-key", nil, "Exempt API key ID (repeatable)")
	return cmd
}

func newRulesSetActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <rule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("rule id must be a UUID: %w", err)
			}
			db, repo, err := openRuleRepo()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := repo.SetActive(context.Background(), id, active); err != nil {
				return err
			}
			fmt.Printf("Rule %s %sd.\n", id, use)
			return nil
		},
	}
}

func newRulesEnableCmd() *cobra.Command {
	return newRulesSetActiveCmd("enable", "Enable a rule", true)
}

func newRulesDisableCmd() *cobra.Command {
	return newRulesSetActiveCmd("disable", "Disable a rule", false)
}

func newRulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Soft-delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("rule id must be a UUID: %w", err)
			}
			db, repo, err := openRuleRepo()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := repo.SoftDelete(context.Background(), id); err != nil {
				return err
			}
			fmt.Printf("Rule %s deleted.\n", id)
			return nil
		},
	}
}

// ruleImportFile is the YAML shape accepted by 'rules import'
type ruleImportFile struct {
	Rules []struct {
		TenantID        string   `yaml:"tenant_id"`
		Name            string   `yaml:"name"`
		Scope           string   `yaml:"scope"`
		EndpointPattern string   `yaml:"endpoint_pattern"`
		MaxRequests     int      `yaml:"max_requests"`
		WindowSeconds   int      `yaml:"window_seconds"`
		Action          string   `yaml:"action"`
		Priority        int      `yaml:"priority"`
		ExemptUserIDs   []string `yaml:"exempt_user_ids"`
		ExemptIPs       []string `yaml:"exempt_ip_addresses"`
		ExemptAPIKeyIDs []string `yaml:"exempt_api_key_ids"`
	} `yaml:"rules"`
}

func newRulesImportCmd() *cobra.Command {
	var file string
	var tenant string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-import rules from a YAML file",
		Long:  "Import rules from a YAML file. Each entry is validated before any rule is created.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			var doc ruleImportFile
			if err := yaml.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("parse YAML: %w", err)
			}
			if len(doc.Rules) == 0 {
				return fmt.Errorf("no rules in %s", file)
			}

			rules := make([]*models.Rule, 0, len(doc.Rules))
			var problems []string
			for i, e := range doc.Rules {
				r := &models.Rule{
					TenantID:        e.TenantID,
					Name:            e.Name,
					Scope:           models.Scope(e.Scope),
					EndpointPattern: e.EndpointPattern,
					MaxRequests:     e.MaxRequests,
					WindowSeconds:   e.WindowSeconds,
					Action:          models.Action(e.Action),
					Priority:        e.Priority,
					ExemptUserIDs:   e.ExemptUserIDs,
					ExemptIPs:       e.ExemptIPs,
					ExemptAPIKeyIDs: e.ExemptAPIKeyIDs,
					IsActive:        true,
				}
				if r.TenantID == "" {
					r.TenantID = tenant
				}
				if r.Action == "" {
					r.Action = models.ActionBlock
				}
				if err := validation.ValidateRule(r); err != nil {
					problems = append(problems, fmt.Sprintf("rule %d (%s): %v", i, e.Name, err))
					continue
				}
				rules = append(rules, r)
			}
			if len(problems) > 0 {
				return fmt.Errorf("validation failed, nothing imported:\n  %s", strings.Join(problems, "\n  "))
			}

			db, repo, err := openRuleRepo()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx := context.Background()
			for _, r := range rules {
				if err := repo.Create(ctx, r); err != nil {
					return fmt.Errorf("create rule %q: %w", r.Name, err)
				}
				fmt.Printf("Imported %s (%s)\n", r.Name, r.ID)
			}
			fmt.Printf("Imported %d rules.\n", len(rules))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file with rule definitions (required)")
	cmd.Flags().StringVar(&tenant, "tenant", "default", "Default tenant for entries without tenant_id")
	return cmd
}
