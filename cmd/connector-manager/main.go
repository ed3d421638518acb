package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mongodb-connector/internal/common/audit"
	"mongodb-connector/internal/common/aws"
	"mongodb-connector/internal/common/cache"
	"mongodb-connector/internal/common/camunda"
	"mongodb-connector/internal/common/config"
	"mongodb-connector/internal/common/database"
	"mongodb-connector/internal/common/dataloop"
	"mongodb-connector/internal/common/logger"
	"mongodb-connector/internal/common/observability"

	mongodbexport "mongodb-connector/internal/workers/mongodb/mongodb-export"
	mongodbimport "mongodb-connector/internal/workers/mongodb/mongodb-import"
)

// connectorWorker is what main needs from each registered handler.
type connectorWorker interface {
	Register() error
	Close()
	HealthCheck(ctx context.Context) error
	GetTaskType() string
	IsEnabled() bool
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting connector manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability, log)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Zeebe ---
	camundaClient, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFromApp(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- MongoDB and the annotation platform ---
	mongo, err := database.NewMongoProvider(cfg.MongoDB, log)
	if err != nil {
		zapLog.Fatal("mongodb provider init failed", zap.Error(err))
	}
	store := dataloop.NewClient(cfg.Dataloop.BaseURL, cfg.Dataloop.APIToken, config.GetDuration(cfg.Dataloop.Timeout))

	// --- Optional Redis dataset cache ---
	var rdb *redis.Client
	var datasetCache *cache.DatasetCache
	if cfg.Cache.Redis.Enabled() {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Cache.Redis)
			return err
		}, 5, 2*time.Second, zapLog, "Redis initialization")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		datasetCache = cache.NewDatasetCache(rdb, config.GetDuration(cfg.Cache.DatasetTTL), log)
		zapLog.Info("Dataset cache enabled", zap.String("address", cfg.Cache.Redis.Address))
	}

	// --- Optional run reporting ---
	var reporters audit.Reporters
	var pg *sql.DB
	if cfg.Audit.Postgres.Enabled() {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Audit.Postgres)
			return err
		}, 5, 2*time.Second, zapLog, "PostgreSQL initialization")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		auditStore := audit.NewStore(pg, log)
		if err := auditStore.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("audit schema setup failed", zap.Error(err))
		}
		reporters = append(reporters, auditStore)
		zapLog.Info("Run audit enabled", zap.String("host", cfg.Audit.Postgres.Host))
	}

	if sns := cfg.Notifications.SNS; sns.Enabled && sns.TopicARN != "" {
		snsClient, err := aws.NewSNSClient(ctx, sns.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		reporters = append(reporters, aws.NewSNSNotifier(snsClient, sns.TopicARN, log))
		zapLog.Info("Run notifications enabled", zap.String("topic", sns.TopicARN))
	}

	// --- Workers ---
	importHandler, err := mongodbimport.NewHandler(mongodbimport.HandlerOptions{
		AppConfig: cfg,
		Camunda:   camundaClient,
		Logger:    log,
		Dependencies: mongodbimport.ServiceDependencies{
			Mongo:         mongo,
			Store:         store,
			Cache:         optionalCache(datasetCache),
			Reporter:      reporters,
			Observability: obs,
		},
	})
	if err != nil {
		zapLog.Fatal("import handler init failed", zap.Error(err))
	}

	exportHandler, err := mongodbexport.NewHandler(mongodbexport.HandlerOptions{
		AppConfig: cfg,
		Camunda:   camundaClient,
		Logger:    log,
		Dependencies: mongodbexport.ServiceDependencies{
			Mongo:         mongo,
			Store:         store,
			Reporter:      reporters,
			Observability: obs,
		},
	})
	if err != nil {
		zapLog.Fatal("export handler init failed", zap.Error(err))
	}

	workers := []connectorWorker{importHandler, exportHandler}
	for _, w := range workers {
		if !w.IsEnabled() {
			zapLog.Info("Worker disabled", zap.String("taskType", w.GetTaskType()))
			continue
		}
		if err := w.Register(); err != nil {
			zapLog.Fatal("worker registration failed", zap.String("taskType", w.GetTaskType()), zap.Error(err))
		}
		zapLog.Info("Worker registered", zap.String("taskType", w.GetTaskType()))
	}

	// --- Health & metrics ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		checks := map[string]string{}
		for _, wk := range workers {
			if !wk.IsEnabled() {
				continue
			}
			if err := wk.HealthCheck(r.Context()); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
				checks[wk.GetTaskType()] = err.Error()
				continue
			}
			checks[wk.GetTaskType()] = "ok"
		}
		writeJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Observability.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			zapLog.Error("Error closing Redis", zap.Error(err))
		}
	}
	if pg != nil {
		if err := pg.Close(); err != nil {
			zapLog.Error("Error closing PostgreSQL", zap.Error(err))
		}
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down telemetry", zap.Error(err))
	}

	zapLog.Info("Connector manager stopped gracefully")
}

// optionalCache keeps a nil *DatasetCache from becoming a non-nil interface.
func optionalCache(c *cache.DatasetCache) mongodbimport.DatasetCache {
	if c == nil {
		return nil
	}
	return c
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
