package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/quotaguard/quotaguard/internal/database"
	"github.com/quotaguard/quotaguard/internal/queue"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthChecker reports service liveness and dependency health
type HealthChecker struct {
	db     *database.DB
	redis  *redis.Client
	queue  queue.ViolationQueue
	logger *zap.Logger
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db *database.DB, redisClient *redis.Client, q queue.ViolationQueue, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthChecker{db: db, redis: redisClient, queue: q, logger: logger}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies,omitempty"`
}

// Health handles GET /healthz. The basic mode only confirms the process
// is serving; ?mode=extended probes Postgres, Redis, and RabbitMQ.
// A Redis outage degrades rather than fails the check: admission keeps
// working in fail-open mode without it.
func (h *HealthChecker) Health(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("mode") != "extended" {
		respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	deps := map[string]dependencyStatus{}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("health_check_database_failed", zap.Error(err))
		deps["database"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		healthy = false
	} else {
		deps["database"] = dependencyStatus{Status: "ok"}
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		h.logger.Warn("health_check_redis_failed", zap.Error(err))
		deps["redis"] = dependencyStatus{Status: "degraded", Error: err.Error()}
	} else {
		deps["redis"] = dependencyStatus{Status: "ok"}
	}

	if err := h.queue.HealthCheck(ctx); err != nil {
		h.logger.Warn("health_check_queue_failed", zap.Error(err))
		deps["queue"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		healthy = false
	} else {
		deps["queue"] = dependencyStatus{Status: "ok"}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, healthResponse{Status: status, Dependencies: deps})
}
