// Package app wires configuration, stores, services and the HTTP server into
// a runnable application.
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
	"time"

	"github.com/sajera/apikit/internal/httpapi"
	"github.com/sajera/apikit/internal/service"
	"github.com/sajera/apikit/internal/store/session"
	sessionmem "github.com/sajera/apikit/internal/store/session/drivers/memory"
	sessionredis "github.com/sajera/apikit/internal/store/session/drivers/redis"
	"github.com/sajera/apikit/internal/store/user"
	usersqlite "github.com/sajera/apikit/internal/store/user/drivers/sqlite"
	"github.com/sajera/apikit/pkg/cryptox"
	"github.com/sajera/apikit/pkg/jwtx"
	"github.com/sajera/apikit/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	// Fixed non-prod fallbacks so the service starts with zero configuration.
	// resolveSecrets refuses to run prod on these.
	devTokenSecret   = "apikit-dev-token-secret"
	devSessionSecret = "apikit-dev-session-secret"
)

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    *Config
	logger *slog.Logger

	users    user.Store
	sessions session.Store

	sessionService *service.SessionService
	userService    *service.UserService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg *Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "apikit",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.resolveSecrets(); err != nil {
		return nil, err
	}

	if err := app.initStores(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("apikit starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully stops the HTTP server and closes the stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down apikit...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.sessions.Close(); err != nil {
		app.logger.Error("error closing session store", "error", err)
	}
	if err := app.users.Close(); err != nil {
		app.logger.Error("error closing user store", "error", err)
		return err
	}

	app.logger.Info("apikit stopped")
	return nil
}

// resolveSecrets enforces the secret policy: prod refuses to start without
// explicit secrets, everything else gets a fixed fallback plus a loud warning.
func (app *Application) resolveSecrets() error {
	if app.cfg.Auth.TokenSecret == "" {
		if app.cfg.IsProd() {
			return errors.New("AUTH_TOKEN_SECRET is required in prod")
		}
		app.logger.Warn("AUTH_TOKEN_SECRET not set, using the fixed dev fallback")
		app.cfg.Auth.TokenSecret = devTokenSecret
	}
	if app.cfg.Auth.SessionSecret == "" {
		if app.cfg.IsProd() {
			return errors.New("AUTH_SESSION_SECRET is required in prod")
		}
		app.logger.Warn("AUTH_SESSION_SECRET not set, using the fixed dev fallback")
		app.cfg.Auth.SessionSecret = devSessionSecret
	}
	return nil
}

// initStores initializes the user database (with migrations) and the session
// cache driver selected by configuration.
func (app *Application) initStores() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DB.File)
	db, err := usersqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize user database: %w", err)
	}
	app.users = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied successfully")

	switch app.cfg.Session.Store {
	case "memory":
		app.sessions = sessionmem.NewStore()
	case "redis":
		rs, err := sessionredis.NewStore(app.cfg.Session.RedisURL)
		if err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to initialize redis session store: %w", err)
		}
		app.sessions = rs
	default:
		_ = db.Close()
		return fmt.Errorf("unknown session store %q", app.cfg.Session.Store)
	}

	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	secret := []byte(app.cfg.Auth.TokenSecret)

	app.sessionService = &service.SessionService{
		Store:         app.sessions,
		Access:        jwtx.NewCodec(secret, app.cfg.Auth.AccessTokenTTL, app.cfg.Auth.Issuer),
		Refresh:       jwtx.NewCodec(secret, app.cfg.Auth.RefreshTokenTTL, app.cfg.Auth.Issuer),
		SessionSecret: []byte(app.cfg.Auth.SessionSecret),
	}
	app.userService = &service.UserService{
		Store: app.users,
		HashParams: cryptox.Params{
			Memory:      app.cfg.Auth.HashMemory,
			Iterations:  app.cfg.Auth.HashIterations,
			Parallelism: app.cfg.Auth.HashParallelism,
		},
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.sessionService,
		app.userService,
		app.sessions,
		app.users,
		BuildVersion,
		app.cfg.Debug,
		app.logger,
	)
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
