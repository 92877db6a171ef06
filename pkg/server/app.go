package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GridPull/internal/domain/repository"
	"GridPull/internal/store"
	"GridPull/internal/usecase"
	"GridPull/pkg/config"
	xhttp "GridPull/pkg/http"
	applogger "GridPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// App encapsulates the application lifecycle: the sync scheduler, the HTTP
// server, and orderly shutdown of both shards.
type App struct {
	cfg      *config.Config
	logger   *applogger.Logger
	ingestor *usecase.Ingestor
	handler  xhttp.Handler
	mw       []echo.MiddlewareFunc
	pub      repository.Publisher
	shards   []*store.Shard

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. pub may be nil.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	ingestor *usecase.Ingestor,
	handler xhttp.Handler,
	mw []echo.MiddlewareFunc,
	pub repository.Publisher,
	shards []*store.Shard,
) *App {
	return &App{
		cfg:      cfg,
		logger:   log,
		ingestor: ingestor,
		handler:  handler,
		mw:       mw,
		pub:      pub,
		shards:   shards,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(a.cfg.CORS.AllowedOrigins),
		xhttp.WithMiddleware(a.mw...),
		xhttp.WithLogger(a.logger),
	)

	go a.runScheduler(ctx)
	a.logger.Info("scheduler started",
		applogger.Duration("interval", a.cfg.Upstream.SyncInterval))

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// runScheduler triggers one ingestion cycle per interval. A cycle still in
// flight makes the tick a no-op rather than piling up.
func (a *App) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Upstream.SyncInterval)
	defer ticker.Stop()

	a.syncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.syncOnce(ctx)
		}
	}
}

func (a *App) syncOnce(ctx context.Context) {
	syncCtx, cancel := context.WithTimeout(ctx, a.cfg.Upstream.Timeout)
	defer cancel()

	summary, err := a.ingestor.Sync(syncCtx)
	if errors.Is(err, usecase.ErrSyncInFlight) {
		a.logger.Warn("skipping tick, sync still running")
		return
	}
	if err != nil {
		a.logger.Error("scheduled sync failed", applogger.Error(err))
		return
	}
	a.logger.Debug("scheduled sync done",
		applogger.Int("parsed", summary.Parsed),
		applogger.Int("inserted", summary.Inserted))
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.logger.Warn("publisher close error", applogger.Error(err))
		}
	}

	for _, s := range a.shards {
		if err := s.Close(); err != nil {
			a.logger.Warn("shard close error",
				applogger.String("shard", s.Name()), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
