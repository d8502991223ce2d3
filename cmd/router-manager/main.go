// cmd/router-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"expert-router/internal/advisor"
	"expert-router/internal/audit"
	"expert-router/internal/common/aws"
	"expert-router/internal/common/camunda"
	"expert-router/internal/common/config"
	"expert-router/internal/common/database"
	"expert-router/internal/common/logger"
	"expert-router/internal/common/observability"
	"expert-router/internal/memory"
	"expert-router/internal/routing"

	// Routing Workers (3)
	aq "expert-router/internal/workers/routing/analyze-query"
	ro "expert-router/internal/workers/routing/record-outcome"
	rq "expert-router/internal/workers/routing/route-query"

	// Memory Workers (5)
	cm "expert-router/internal/workers/memory/clear-memory"
	pi "expert-router/internal/workers/memory/personalization-insights"
	rf "expert-router/internal/workers/memory/record-feedback"
	rt "expert-router/internal/workers/memory/record-turn"
	up "expert-router/internal/workers/memory/update-profile"

	// Advisor Workers (1)
	ca "expert-router/internal/workers/advisor/consult-advisor"
)

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
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting router manager...", zap.String("version", cfg.App.Version))

	obs := observability.New(cfg.App.Name, cfg.App.Version)
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Zeebe ---
	zeebe, err := camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	readiness := database.NewReadiness(2 * time.Second)
	readiness.Add("zeebe", database.CheckerFunc(zeebe.HealthCheck))

	// --- Agent performance store (PostgreSQL, optional) ---
	var perfStore routing.PerformanceStore
	if cfg.Database.Postgres.Enabled() {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		store := routing.NewPostgresPerformanceStore(pg.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("agent_performance schema failed", zap.Error(err))
		}
		perfStore = store
		readiness.Add("postgres", pg)
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Analysis audit sink (Elasticsearch, optional) ---
	var sink routing.AuditSink
	sinkDone := make(chan struct{})
	if cfg.Database.Elasticsearch.Enabled() {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		index := cfg.Database.Elasticsearch.Index
		if index == "" {
			index = audit.DefaultIndex
		}
		if err := esClient.EnsureIndex(ctx, index, audit.IndexMapping); err != nil {
			zapLog.Fatal("audit index setup failed", zap.Error(err))
		}

		esSink := audit.NewElasticsearchSink(esClient.Client, index, cfg.Audit.SinkBuffer, log)
		go func() {
			defer close(sinkDone)
			esSink.Run(ctx)
		}()
		sink = esSink
		readiness.Add("elasticsearch", esClient)
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", index))
	} else {
		close(sinkDone)
	}

	// --- Personalization snapshots (Redis, optional) ---
	var snapshots memory.SnapshotStore
	if cfg.Memory.SnapshotEnabled && cfg.Database.Redis.Enabled() {
		redisClient := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()

		snapshots = memory.NewRedisSnapshotStore(redisClient.Client, cfg.Memory.GetSnapshotTTL())
		readiness.Add("redis", redisClient)
		zapLog.Info("Redis connected successfully")
	}

	// --- Routing core ---
	profiles, err := routing.LoadProfiles(cfg.Routing.ProfilesPath)
	if err != nil {
		zapLog.Fatal("agent profiles failed to load", zap.Error(err))
	}
	registry, err := routing.NewRegistry(profiles)
	if err != nil {
		zapLog.Fatal("agent registry invalid", zap.Error(err))
	}
	engine, err := routing.NewEngine(
		registry,
		routing.NewScorer(routing.WeightsFromConfig(cfg.Routing.Weights)),
		routing.NewAuditLog(cfg.Audit.LogSize, sink),
		routing.SelectionRulesFromConfig(cfg.Routing),
		log,
	)
	if err != nil {
		zapLog.Fatal("routing engine failed", zap.Error(err))
	}

	recorder := routing.NewRecorder(registry, cfg.Routing.PerformanceWindow, perfStore, log)
	restored, err := recorder.Restore(ctx)
	if err != nil {
		zapLog.Warn("agent performance restore failed, starting from declared profiles", zap.Error(err))
	} else {
		zapLog.Info("agent performance restored", zap.Int("agents", restored))
	}

	mem := memory.NewStore(memory.ConfigFrom(cfg.Memory), snapshots, log)

	// --- Advisor (optional) ---
	var service *advisor.Service
	if cfg.Integrations.Agents.Enabled() {
		var escalator advisor.Escalator
		if cfg.Integrations.AWS.SNS.Enabled {
			snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.TopicARN)
			if err != nil {
				zapLog.Fatal("sns client failed", zap.Error(err))
			}
			escalator = advisor.NewSNSEscalator(snsClient, log)
		}
		executor := advisor.NewHTTPExecutor(
			cfg.Integrations.Agents.BaseURL,
			config.GetDuration(cfg.Integrations.Agents.Timeout),
		)
		service = advisor.NewService(engine, recorder, mem, executor, escalator, obs, log)
		zapLog.Info("Advisor enabled", zap.String("agentService", cfg.Integrations.Agents.BaseURL))
	}

	// --- Register workers ---
	workers := camunda.NewWorkers(zeebe.GetClient(), log)

	if wcfg := config.GetWorkerConfig(cfg, rq.TaskType); wcfg.Enabled {
		handler, err := rq.NewHandler(rq.ConfigFrom(wcfg), engine, log)
		if err != nil {
			zapLog.Fatal("failed to create route-query handler", zap.Error(err))
		}
		workers.Start(rq.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, aq.TaskType); wcfg.Enabled {
		handler, err := aq.NewHandler(aq.ConfigFrom(wcfg), engine, log)
		if err != nil {
			zapLog.Fatal("failed to create analyze-query handler", zap.Error(err))
		}
		workers.Start(aq.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, ro.TaskType); wcfg.Enabled {
		handler, err := ro.NewHandler(ro.ConfigFrom(wcfg), recorder, log)
		if err != nil {
			zapLog.Fatal("failed to create record-outcome handler", zap.Error(err))
		}
		workers.Start(ro.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, rt.TaskType); wcfg.Enabled {
		handler, err := rt.NewHandler(rt.ConfigFrom(wcfg), mem, log)
		if err != nil {
			zapLog.Fatal("failed to create record-turn handler", zap.Error(err))
		}
		workers.Start(rt.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, rf.TaskType); wcfg.Enabled {
		handler, err := rf.NewHandler(rf.ConfigFrom(wcfg), mem, log)
		if err != nil {
			zapLog.Fatal("failed to create record-feedback handler", zap.Error(err))
		}
		workers.Start(rf.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, pi.TaskType); wcfg.Enabled {
		handler, err := pi.NewHandler(pi.ConfigFrom(wcfg), mem, log)
		if err != nil {
			zapLog.Fatal("failed to create personalization-insights handler", zap.Error(err))
		}
		workers.Start(pi.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, up.TaskType); wcfg.Enabled {
		handler, err := up.NewHandler(up.ConfigFrom(wcfg), mem, log)
		if err != nil {
			zapLog.Fatal("failed to create update-profile handler", zap.Error(err))
		}
		workers.Start(up.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, cm.TaskType); wcfg.Enabled {
		handler, err := cm.NewHandler(cm.ConfigFrom(wcfg), mem, log)
		if err != nil {
			zapLog.Fatal("failed to create clear-memory handler", zap.Error(err))
		}
		workers.Start(cm.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, ca.TaskType); wcfg.Enabled && service != nil {
		handler, err := ca.NewHandler(ca.ConfigFrom(wcfg), service, obs, log)
		if err != nil {
			zapLog.Fatal("failed to create consult-advisor handler", zap.Error(err))
		}
		workers.Start(ca.TaskType, wcfg, handler.Handle)
	} else if wcfg.Enabled {
		zapLog.Warn("consult-advisor enabled but no agent service configured, worker not started")
	}

	zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.Running()))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		backends, ok := readiness.Check(r.Context())
		if !ok {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable", backends)
			return
		}
		writeStatus(w, http.StatusOK, "ready", backends)
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := cfg.Metrics.Address
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	workers.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	// Stopping the root context makes the audit sink flush what it still holds.
	cancel()
	select {
	case <-sinkDone:
	case <-shutdownCtx.Done():
		zapLog.Warn("audit sink did not drain before shutdown deadline")
	}

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Router manager stopped gracefully")
}

// loadConfig reads CONFIG_FILE when set, otherwise the configs/ directory.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func writeStatus(w http.ResponseWriter, code int, status string, backends map[string]string) {
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if backends != nil {
		body["backends"] = backends
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
