// Package server wires the application together: configuration,
// storage, services, the HTTP API, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/akarpov87/idvault/internal/logging"
	"github.com/akarpov87/idvault/internal/server/avatars"
	"github.com/akarpov87/idvault/internal/server/config"
	"github.com/akarpov87/idvault/internal/server/httpapi"
	"github.com/akarpov87/idvault/internal/server/identities"
	"github.com/akarpov87/idvault/internal/server/sessions"
	"github.com/akarpov87/idvault/internal/server/shared/db"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config          *config.Config
	logger          logging.Logger
	repoManager     db.RepositoryManager
	identityService *identities.Service
	sessionService  *sessions.Service
	avatarService   *avatars.Service
}

func NewApp(cfg *config.Config) (*App, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	rm, err := db.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	is, err := identities.NewService(rm.Identities())
	if err != nil {
		return nil, fmt.Errorf("identity service init error: %w", err)
	}

	ss := sessions.NewService(rm.Revocations(), cfg)
	as := avatars.NewService(cfg)

	return &App{
		config:          cfg,
		logger:          logger,
		repoManager:     rm,
		identityService: is,
		sessionService:  ss,
		avatarService:   as,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	h := httpapi.NewHandler(app.identityService, app.sessionService, app.avatarService, app.logger)

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: httpapi.NewRouter(h),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown error", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddrHTTP)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startRevocationPruner periodically removes revocation entries whose
// tokens have expired on their own and no longer need tracking.
func (app *App) startRevocationPruner(ctx context.Context) {

	ticker := time.NewTicker(app.config.RevocationPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.sessionService.PruneExpired(ctx)
			if err != nil {
				app.logger.Error(ctx, "revocation prune error", "error", err.Error())
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "pruned expired revocations", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if err := app.repoManager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startRevocationPruner(ctx)
	}()

	wg.Wait()

	if err := app.repoManager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	return nil
}
