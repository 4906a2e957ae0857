package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/norviklabs/norvik/internal/auth/cache"
	"github.com/norviklabs/norvik/internal/auth/cache/drivers/memory"
	"github.com/norviklabs/norvik/internal/auth/cache/drivers/redis"
	"github.com/norviklabs/norvik/internal/auth/email"
	httpapi "github.com/norviklabs/norvik/internal/auth/http"
	"github.com/norviklabs/norvik/internal/auth/service"
	"github.com/norviklabs/norvik/internal/auth/store"
	"github.com/norviklabs/norvik/internal/auth/store/drivers/sqlite"
	"github.com/norviklabs/norvik/pkg/cookiex"
	"github.com/norviklabs/norvik/pkg/cryptox"
	"github.com/norviklabs/norvik/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	cache cache.Cache

	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if cfg.CookieSecret == "" {
		return nil, errors.New("AUTH_COOKIE_SECRET is required")
	}
	if cfg.TokenSecret == "" {
		return nil, errors.New("AUTH_TOKEN_SECRET is required")
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCache(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initCache selects the cache driver from config.
func (app *Application) initCache() error {
	switch app.cfg.CacheDriver {
	case "redis":
		c, err := redis.New(app.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		if err := c.Ping(context.Background()); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
		app.cache = c
	case "memory":
		app.cache = memory.New()
	default:
		return fmt.Errorf("unknown cache driver %q", app.cfg.CacheDriver)
	}

	app.logger.Info("cache initialized", "driver", app.cfg.CacheDriver)
	return nil
}

// initServices initializes the business logic services.
func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:             app.db,
		Cache:             app.cache,
		Notifier:          email.NewLogNotifier(app.logger),
		TokenSecret:       []byte(app.cfg.TokenSecret),
		TOTPIssuer:        app.cfg.TOTPIssuer,
		LoginAttemptLimit: app.cfg.LoginAttemptLimit,
		OTPAttemptLimit:   app.cfg.OTPAttemptLimit,
		SessionTTL:        app.cfg.SessionTTL,
		PermanentTTL:      app.cfg.PermanentTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP wires the router and the HTTP server.
func (app *Application) initHTTP() {
	signer := cookiex.NewSigner([]byte(app.cfg.CookieSecret), app.cfg.CookieSecure, app.cfg.CookieDomain)

	app.router = httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.cache,
		signer,
		app.authService,
		app.logger,
	)
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: app.router,
	}
}
