// Package internal provides the main application initialization and runtime logic.
package internal

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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/othala/internal/api"
	"github.com/starford/othala/internal/clock"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/lifecycle"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/metrics"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/recordservice"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/storage"
	pkgconfig "github.com/starford/othala/pkg/config"
)

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("store_path", cfg.Store.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker doubles as the lifecycle notifier.
	broker := sse.NewBroker(cfg.Events.AnchorThrottle)
	defer broker.Close()

	rt, err := app.openRuntime(ctx, logger, broker)
	if err != nil {
		return err
	}
	defer rt.close(logger)

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.App.Metrics.Enabled {
		r.Handle(cfg.App.Metrics.Path, metrics.Handler())
	}

	// Mount API routes under /api. SSE is served at /api/events behind auth.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("agent", string(rt.svc.AgentAddress())))

	g, gCtx := errgroup.WithContext(ctx)

	// Apply log level changes from the config file without a restart.
	if app.configPath != "" {
		g.Go(func() error {
			err := pkgconfig.Watch(gCtx, app.configPath, NewDefaultConfig, logger, func(next *Config) {
				if next.App.LogLevel != level.Level() {
					logger.Info("Log level changed",
						slog.String("from", level.Level().String()),
						slog.String("to", next.App.LogLevel.String()))
					level.Set(next.App.LogLevel)
				}
			})
			if err != nil {
				logger.Warn("config watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the record tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)

	rt, err := app.openRuntime(ctx, logger, nil)
	if err != nil {
		return err
	}
	defer rt.close(logger)

	version := app.version
	if version == "" {
		version = "dev"
	}

	logger.Info("MCP server starting", slog.String("agent", string(rt.svc.AgentAddress())))
	if err := mcpserver.New(rt.svc, version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// errShutdown stops the errgroup once the server has drained so the config
// watcher does not keep Run alive.
var errShutdown = errors.New("shutdown")

func newApplication(opts []Option) (*application, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// runtime holds the opened store, link index and the service built on them.
type runtime struct {
	store storage.Provider
	db    *index.DB
	svc   *recordservice.Service
}

func (rt *runtime) close(logger *slog.Logger) {
	if err := rt.db.Close(); err != nil {
		logger.Warn("close index", slog.String("error", err.Error()))
	}
	if err := rt.store.Close(); err != nil {
		logger.Warn("close store", slog.String("error", err.Error()))
	}
}

func (a *application) openRuntime(ctx context.Context, logger *slog.Logger, notifier lifecycle.Notifier) (*runtime, error) {
	cfg := a.config

	store, err := openStore(&cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite link index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}

	if cfg.Reconcile.OnStart {
		res, err := index.Reconcile(ctx, db, store, logger)
		if err != nil {
			logger.Warn("initial reconcile failed", slog.String("error", err.Error()))
		} else {
			logger.Info("initial reconcile done",
				slog.Int("checked", res.Checked),
				slog.Int("pruned", res.Pruned),
				slog.Int("failed", res.Failed))
		}
	}

	agentID := cfg.Agent.ID
	if agentID == "" {
		agentID = uuid.NewString()
		logger.Info("no agent id configured, generated one", slog.String("agent", agentID))
	}

	deps := lifecycle.Deps{
		Store:    store,
		Links:    db,
		Clock:    clock.New(),
		Agent:    models.Address(agentID),
		Logger:   logger,
		Notifier: notifier,
	}

	svc, err := recordservice.New(deps)
	if err != nil {
		_ = db.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init record service: %w", err)
	}

	return &runtime{store: store, db: db, svc: svc}, nil
}

// openStore builds the configured backend, optionally cached, and always
// instrumented.
func openStore(cfg *StoreConfig, logger *slog.Logger) (storage.Provider, error) {
	var base storage.Provider
	switch cfg.Backend {
	case StoreBackendBadger:
		b, err := storage.NewBadger(storage.BadgerConfig{
			Path:       cfg.Path,
			InMemory:   cfg.InMemory,
			GCInterval: cfg.GCInterval,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		base = b
	default:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Path)
		if err != nil {
			return nil, err
		}
		base = fs
	}

	if cfg.Cache.Enabled {
		cached, err := storage.NewCached(base, cfg.Cache.NumCounters, cfg.Cache.MaxCost)
		if err != nil {
			_ = base.Close()
			return nil, err
		}
		base = cached
	}

	return storage.Instrument(base, cfg.Backend), nil
}
