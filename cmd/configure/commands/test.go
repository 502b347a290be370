package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/quotaguard/quotaguard/internal/config"
	"github.com/quotaguard/quotaguard/internal/database"
	"github.com/quotaguard/quotaguard/internal/queue"
	"github.com/quotaguard/quotaguard/internal/ratelimit"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the connectivity test command
func NewTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test service connectivity",
		Long:  "Verify that Postgres, Redis, and RabbitMQ are reachable with the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			fmt.Println("Testing Postgres connection...")
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer func() { _ = db.Close() }()
			fmt.Println("✓ Postgres is reachable")

			fmt.Println("\nTesting Redis connection...")
			redisClient, err := ratelimit.NewRedisClient(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			defer func() { _ = redisClient.Close() }()
			fmt.Println("✓ Redis is reachable")

			fmt.Println("\nTesting RabbitMQ connection...")
			q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("rabbitmq: %w", err)
			}
			defer func() { _ = q.Close() }()
			if err := q.HealthCheck(ctx); err != nil {
				return fmt.Errorf("rabbitmq health check: %w", err)
			}
			fmt.Println("✓ RabbitMQ is reachable")

			fmt.Println("\n✓ All connectivity tests passed")
			return nil
		},
	}
}
