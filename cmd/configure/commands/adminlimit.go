package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/quotaguard/quotaguard/internal/config"
	"github.com/quotaguard/quotaguard/internal/database"
	"github.com/quotaguard/quotaguard/internal/models"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// NewAdminLimitCmd creates the admin rate limit configuration command.
// This limit protects the admin API surface itself and is separate from
// the tenant rules.
func NewAdminLimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adminlimit",
		Short: "Manage the admin API rate limit",
		Long:  "List or update the admin surface rate limit (e.g. 10-S, 100-M). Stored in database.",
	}
	cmd.AddCommand(newAdminLimitListCmd())
	cmd.AddCommand(newAdminLimitSetCmd())
	return cmd
}

func newAdminLimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the current admin rate limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()
			repo := database.NewAdminLimitRepository(db)
			c, err := repo.Get(context.Background())
			if err != nil {
				return fmt.Errorf("get admin limit config: %w", err)
			}
			if c == nil {
				fmt.Println("No admin rate limit in database. Use 'adminlimit set' to add one.")
				return nil
			}
			fmt.Println("Admin rate limit configuration:")
			fmt.Printf("  Rate: %s\n", c.Rate)
			return nil
		},
	}
}

func newAdminLimitSetCmd() *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the admin rate limit",
		Long:  "Update the admin surface rate limit (e.g. 10-S, 100-M, 1000-H). Stored in database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if rate == "" {
				return fmt.Errorf("--rate is required (e.g. 10-S, 100-M)")
			}
			if _, err := limiter.NewRateFromFormatted(rate); err != nil {
				return fmt.Errorf("invalid rate %q: %w", rate, err)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()
			repo := database.NewAdminLimitRepository(db)
			c := &models.AdminLimitConfig{Rate: rate}
			if err := repo.Set(context.Background(), c); err != nil {
				return fmt.Errorf("set admin limit config: %w", err)
			}
			fmt.Println("Admin rate limit updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 10-S, 100-M, 1000-H) (required)")
	return cmd
}
