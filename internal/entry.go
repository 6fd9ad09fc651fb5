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
	"golang.org/x/sync/errgroup"

	"github.com/starford/holocron/internal/api"
	"github.com/starford/holocron/internal/catalog"
	"github.com/starford/holocron/internal/metrics"
	"github.com/starford/holocron/internal/patchstore"
	"github.com/starford/holocron/internal/session"
	"github.com/starford/holocron/internal/sse"
	"github.com/starford/holocron/internal/swapi"
)

// Services is the wired object graph shared by the HTTP server and the
// command line tools.
type Services struct {
	Config   *Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Store    *patchstore.Store
	Source   swapi.Source
	Locks    *session.Locks
	Broker   *sse.Broker
	Sessions *session.Registry
	Catalog  *catalog.Service

	backend patchstore.Backend
}

// Open builds every service from the given options without starting any
// background work.
func Open(opts ...Option) (*Services, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}

	backend := app.backend
	if backend == nil {
		var err error
		backend, err = openBackend(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("init patch store: %w", err)
		}
	}

	m := metrics.New()

	source := app.source
	if source == nil {
		source = swapi.New(cfg.Remote.BaseURL,
			swapi.WithTimeout(cfg.Remote.Timeout),
			swapi.WithLogger(logger),
			swapi.WithMetrics(m),
		)
	}

	store := patchstore.New(backend,
		patchstore.WithLogger(logger),
		patchstore.WithMetrics(m),
	)

	s := &Services{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Store:   store,
		Source:  source,
		Locks:   session.NewLocks(),
		Broker:  sse.NewBroker(cfg.Events.Throttle),
		backend: backend,
	}
	s.Sessions = session.NewRegistry(s.NewController, cfg.Sessions.IdleTimeout,
		session.WithRegistryLogger(logger),
		session.WithRegistryMetrics(m),
	)
	s.Catalog = catalog.NewService(source, store, cfg.Remote.PageSize, logger, catalog.WithLocks(s.Locks))

	return s, nil
}

func openBackend(cfg StoreConfig) (patchstore.Backend, error) {
	switch cfg.Driver {
	case StoreDriverSQLite:
		return patchstore.OpenSQLite(cfg.SQLite.Path)
	case StoreDriverFS:
		return patchstore.NewFS(cfg.FS.Path)
	case StoreDriverRedis:
		return patchstore.OpenRedis(patchstore.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	case StoreDriverMemory:
		return patchstore.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// NewController returns a detail controller sharing the process-wide locks.
// Saves and resets are published to SSE subscribers.
func (s *Services) NewController() *session.Controller {
	return session.NewController(s.Source, s.Store,
		session.WithLocks(s.Locks),
		session.WithLogger(s.Logger),
		session.WithMetrics(s.Metrics),
		session.WithNotifier(s.Broker.PublishPatchEvent),
	)
}

// Handler builds the full HTTP handler: health probes, metrics and the API.
func (s *Services) Handler() http.Handler {
	h := api.NewHandler(s.Catalog, s.Sessions, s.NewController)
	apiRouter := api.NewRouter(h, s.Config.Auth.AuthEnabled(), s.Config.Auth.Token, s.Broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.Metrics.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := s.Store.List(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", s.Metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	return r
}

// Close stops the broker and releases the patch store.
func (s *Services) Close() error {
	s.Broker.Close()
	return s.Store.Close()
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	s, err := Open(opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			s.Logger.Error("close services", slog.String("error", err.Error()))
		}
	}()

	cfg := s.Config
	logger := s.Logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("remote_url", cfg.Remote.BaseURL),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)

	// Evict idle edit sessions.
	g.Go(func() error {
		s.Sessions.Run(gCtx, cfg.Sessions.SweepInterval)
		return nil
	})

	// Patches written by other processes into the shared directory.
	if cfg.Store.Driver == StoreDriverFS && cfg.Store.FS.Watch {
		g.Go(func() error {
			err := patchstore.Watch(gCtx, cfg.Store.FS.Path, logger, s.Broker.PublishPatchEvent)
			if err != nil {
				logger.Warn("patch watcher disabled", slog.String("error", err.Error()))
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
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
