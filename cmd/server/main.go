package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/quotaguard/quotaguard/internal/config"
	"github.com/quotaguard/quotaguard/internal/database"
	"github.com/quotaguard/quotaguard/internal/handlers"
	"github.com/quotaguard/quotaguard/internal/logger"
	"github.com/quotaguard/quotaguard/internal/middleware"
	"github.com/quotaguard/quotaguard/internal/queue"
	"github.com/quotaguard/quotaguard/internal/ratelimit"
	"github.com/quotaguard/quotaguard/internal/telemetry"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("default_tenant", cfg.DefaultTenant),
		zap.Bool("fail_closed", cfg.FailClosed),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "quotaguard", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Connect to Redis for the sliding window counters
	redisClient, err := ratelimit.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for violation auditing (required)
	// Retry connection with exponential backoff to handle RabbitMQ startup delays
	const maxRetries = 10
	const initialDelay = 2 * time.Second
	var violationQueue queue.ViolationQueue
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		violationQueue, err = queue.NewRabbitMQQueue(cfg.RabbitMQURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			defer func() {
				if err := violationQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
			break
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr),
		)
	}

	// Initialize repositories
	ruleRepo := database.NewRuleRepository(db)
	violationRepo := database.NewViolationRepository(db)
	adminLimitRepo := database.NewAdminLimitRepository(db)

	// Build the admission engine: rules from Postgres, counters in Redis,
	// violations published to RabbitMQ for the worker to persist.
	counterStore := ratelimit.NewRedisCounterStore(redisClient, zapLogger)
	recorder := queue.NewRecorder(violationQueue)

	var engineOpts []ratelimit.Option
	if cfg.FailClosed {
		engineOpts = append(engineOpts, ratelimit.WithFailClosed())
	}
	engine := ratelimit.NewEngine(ruleRepo, counterStore, recorder, zapLogger, engineOpts...)

	// Initialize handlers
	statusHandler := handlers.NewStatusHandler(engine, cfg.DefaultTenant, zapLogger)
	ruleHandler := handlers.NewRuleHandler(ruleRepo, cfg.DefaultTenant, zapLogger)
	violationHandler := handlers.NewViolationHandler(violationRepo, cfg.DefaultTenant, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, redisClient, violationQueue, zapLogger)

	// Coarse self-protection for the admin surface, independent of the
	// tenant rule engine
	adminLimitMW, err := middleware.AdminRateLimit(redisClient, adminLimitRepo, cfg.AdminRate)
	if err != nil {
		zapLogger.Fatal("failed_to_create_admin_rate_limit", zap.Error(err))
	}

	// Setup router
	// Note: In gorilla/mux, middleware executes in registration order
	r := mux.NewRouter()

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("quotaguard"))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.Audit(zapLogger))

	// Health endpoints bypass admission entirely
	r.HandleFunc("/healthz", healthChecker.Health).Methods("GET")

	// Status endpoint: read-only, never records
	r.HandleFunc("/v1/ratelimit/status", statusHandler.Status).Methods("GET")

	// Admin API
	adminRouter := r.PathPrefix("/v1/admin").Subrouter()
	adminRouter.Use(adminLimitMW)
	adminRouter.HandleFunc("/ratelimit/reset", statusHandler.Reset).Methods("POST")
	adminRouter.HandleFunc("/rules", ruleHandler.List).Methods("GET")
	adminRouter.HandleFunc("/rules", ruleHandler.Create).Methods("POST")
	adminRouter.HandleFunc("/rules/{id}", ruleHandler.Get).Methods("GET")
	adminRouter.HandleFunc("/rules/{id}", ruleHandler.Update).Methods("PUT")
	adminRouter.HandleFunc("/rules/{id}/active", ruleHandler.SetActive).Methods("PATCH")
	adminRouter.HandleFunc("/rules/{id}", ruleHandler.Delete).Methods("DELETE")
	adminRouter.HandleFunc("/violations", violationHandler.List).Methods("GET")

	// Everything under /api goes through admission control
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.Admission(engine, cfg.DefaultTenant, zapLogger))
	apiRouter.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Placeholder upstream; in a real deployment this proxies to the
		// protected service
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprint(w, `{"status":"ok"}`); err != nil {
			_ = err
		}
	})

	corsHandler := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Tenant-ID", "X-User-ID", "X-API-Key-ID"},
	}).Handler(r)

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        corsHandler,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
