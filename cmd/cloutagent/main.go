package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cloutagent/cloutagent/internal/adapter/anthropic"
	"github.com/cloutagent/cloutagent/internal/adapter/costfile"
	"github.com/cloutagent/cloutagent/internal/adapter/historyfile"
	cahttp "github.com/cloutagent/cloutagent/internal/adapter/http"
	camcp "github.com/cloutagent/cloutagent/internal/adapter/mcp"
	canats "github.com/cloutagent/cloutagent/internal/adapter/nats"
	"github.com/cloutagent/cloutagent/internal/adapter/otel"
	"github.com/cloutagent/cloutagent/internal/adapter/ristretto"
	"github.com/cloutagent/cloutagent/internal/adapter/ws"
	"github.com/cloutagent/cloutagent/internal/config"
	"github.com/cloutagent/cloutagent/internal/domain/execution"
	"github.com/cloutagent/cloutagent/internal/logger"
	"github.com/cloutagent/cloutagent/internal/middleware"
	"github.com/cloutagent/cloutagent/internal/resilience"
	"github.com/cloutagent/cloutagent/internal/secrets"
	"github.com/cloutagent/cloutagent/internal/service"
)

const version = "0.1.0"

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(flags); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(flags config.CLIFlags) error {
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"max_concurrent", cfg.Execution.MaxConcurrent,
	)

	ctx := context.Background()

	// --- Secrets ---
	vault, err := secrets.NewVault(secrets.EnvLoader(service.APIKeySecret))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	slog.Debug("provider credential", "key", service.APIKeySecret, "value", vault.Redacted(service.APIKeySecret))

	// --- Telemetry ---
	shutdownTelemetry, err := otel.Setup(ctx, cfg.Logging.Service, cfg.OTel.Endpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Error("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Persistence ---
	costs := costfile.NewStore(cfg.Costs.Dir)
	history := historyfile.NewStore(cfg.History.Dir)

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()

	tracker := service.NewCostTracker(cfg.Anthropic.PricingModel, costs)
	tracker.SetCache(l1)

	// --- Provider ---
	client := anthropic.NewClient(cfg.Anthropic.BaseURL, vault.Get(service.APIKeySecret))
	client.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---
	engine := service.NewExecutionService(client, tracker, cfg.Execution.MaxConcurrent)
	engine.SetDefaultTimeout(cfg.Execution.DefaultTimeout)

	hub := ws.NewHub()
	sinks := []execution.Sink{ws.NewSink(hub), otel.NewSink(metrics)}

	var queue *canats.Queue
	if cfg.NATS.URL != "" {
		queue, err = canats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Drain() }()
		sinks = append(sinks, canats.NewEventRelay(queue))
		slog.Info("nats relay enabled", "url", cfg.NATS.URL)
	}
	engine.SetSink(execution.MultiSink(sinks...))

	registry := service.NewAgentRegistry(vault)
	historySvc := service.NewHistoryService(history)

	// --- MCP ---
	if cfg.MCP.Addr != "" {
		mcpSrv := camcp.NewServer(camcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "cloutagent",
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, camcp.ServerDeps{
			Agents:   registry,
			Executor: engine,
			Costs:    tracker,
			History:  historySvc,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mcpSrv.Stop(stopCtx); err != nil {
				slog.Error("mcp shutdown", "error", err)
			}
		}()
	}

	// --- HTTP ---
	handlers := &cahttp.Handlers{
		Registry: registry,
		Engine:   engine,
		Tracker:  tracker,
		History:  historySvc,
		Hub:      hub,
	}
	if queue != nil {
		handlers.Queue = queue
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(otel.HTTPMiddleware("cloutagent"))
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cahttp.SecurityHeaders)
	r.Use(cahttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cahttp.Logger)
	r.Use(limiter.Handler)

	cahttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
