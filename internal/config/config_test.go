package config

import (
	"testing"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
	if _, err := Load(); err == nil {
		t.Error("Load() expected error when DATABASE_URL is empty")
	}
}

func TestLoadRequiresRabbitMQURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/quotaguard")
	t.Setenv("RABBITMQ_URL", "")
	if _, err := Load(); err == nil {
		t.Error("Load() expected error when RABBITMQ_URL is empty")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/quotaguard")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
	t.Setenv("REDIS_URL", "")
	t.Setenv("RATELIMIT_FAIL_CLOSED", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q, want default", cfg.RedisURL)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.FailClosed {
		t.Error("FailClosed should default to false (fail-open)")
	}
	if cfg.DefaultTenant != "default" {
		t.Errorf("DefaultTenant = %q, want default", cfg.DefaultTenant)
	}
}

func TestLoadFailClosedFlag(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/quotaguard")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
	t.Setenv("RATELIMIT_FAIL_CLOSED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.FailClosed {
		t.Error("FailClosed = false, want true")
	}
}
