package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	hhttp "github.com/hearthhq/hearth/internal/adapter/http"
	"github.com/hearthhq/hearth/internal/adapter/memapi"
	hnats "github.com/hearthhq/hearth/internal/adapter/nats"
	hotel "github.com/hearthhq/hearth/internal/adapter/otel"
	"github.com/hearthhq/hearth/internal/adapter/postgres"
	"github.com/hearthhq/hearth/internal/adapter/ristretto"
	"github.com/hearthhq/hearth/internal/adapter/ws"
	"github.com/hearthhq/hearth/internal/config"
	"github.com/hearthhq/hearth/internal/logger"
	"github.com/hearthhq/hearth/internal/port/messagequeue"
	"github.com/hearthhq/hearth/internal/resilience"
	"github.com/hearthhq/hearth/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"nats_url", cfg.NATS.URL,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := hotel.Init(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	// Migrations. The store degrades to empty results while tables are
	// missing, so a migration failure is logged rather than fatal.
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		slog.Warn("migrations failed, continuing unprovisioned", "error", err)
	} else {
		slog.Info("migrations applied")
	}

	// NATS. Optional: without it the engine runs, only live events are lost.
	var queue messagequeue.Queue
	if q, err := hnats.Connect(ctx, cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, task events disabled", "error", err)
	} else {
		queue = q
		defer func() { _ = q.Drain() }()
	}

	// Directory cache
	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	// Memory service client, breaker-wrapped
	memories := memapi.NewClient(cfg.MemoryAPI)
	memories.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---
	retry := resilience.Policy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
	}

	store := postgres.NewStore(pool)
	dir, err := service.NewDirectory(store, cache, cfg.Cache.DirectoryTTL, retry)
	if err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	tasks := service.NewTaskService(store, queue, retry)
	crews := service.NewCrewService(store, retry)
	runner := service.NewRunner(tasks, dir, service.NewAssigner(dir), memories, queue)

	metrics, err := hotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	runner.SetMetrics(metrics)

	// --- Event bridge (NATS -> WebSocket) ---
	hub := ws.NewHub()
	if queue != nil {
		bridge := service.NewEventBridge(queue, hub)
		cancelBridge, err := bridge.Start(ctx)
		if err != nil {
			return fmt.Errorf("event bridge: %w", err)
		}
		defer cancelBridge()
	}

	// --- HTTP ---
	handlers := hhttp.NewHandlers(dir, tasks, crews, runner, hub, queue)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(hhttp.RequestID)
	r.Use(hhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(hhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(hotel.Middleware("hearth.http"))

	hhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Serve until SIGINT/SIGTERM, then drain in-flight requests.
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
