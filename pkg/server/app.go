package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	domrepo "TrendLens/internal/domain/repository"
	domsvc "TrendLens/internal/domain/service"
	"TrendLens/internal/service/metrics"
	"TrendLens/internal/usecase"
	"TrendLens/pkg/config"
	xhttp "TrendLens/pkg/http"
	applogger "TrendLens/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	l        *applogger.Logger
	registry *usecase.Registry
	handler  xhttp.Handler
	engine   domsvc.InferenceEngine
	events   domrepo.EventPublisher
	closers  []namedCloser

	httpServer *xhttp.Server
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	registry *usecase.Registry,
	handler xhttp.Handler,
	engine domsvc.InferenceEngine,
	events domrepo.EventPublisher,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		registry: registry,
		handler:  handler,
		engine:   engine,
		events:   events,
	}
}

// OnClose registers an infrastructure client closed during shutdown, after the engine and publisher.
// Nil closers are ignored.
func (a *App) OnClose(name string, c io.Closer) {
	if c == nil {
		return
	}
	a.closers = append(a.closers, namedCloser{name: name, c: c})
}

// Run starts the application and blocks until interrupted or the listener fails.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
	}
	if a.cfg.Metrics.Enabled {
		metrics.Register()
		opts = append(opts, xhttp.WithMetrics(a.cfg.Metrics.Path, nil))
	}
	a.httpServer = xhttp.NewServer(a.handler, a.l, opts...)
	errs := a.httpServer.Start()

	if len(a.cfg.Pipeline.Warmup) > 0 {
		go func() {
			a.registry.Warmup(ctx, a.cfg.Pipeline.Warmup)
			a.l.Info("warmup complete",
				applogger.Strings("tickers", a.cfg.Pipeline.Warmup),
				applogger.Int("predictors", a.registry.Len()),
			)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case <-sigCh:
		a.l.Info("shutdown signal received")
	case err, ok := <-errs:
		if ok && err != nil {
			a.l.Error("http server failed", applogger.Error(err))
			runErr = err
		}
	}

	cancel()
	a.shutdown()
	return runErr
}

// shutdown stops the listener first so no request observes a closed engine.
func (a *App) shutdown() {
	a.l.Info("shutting down")

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.l.Warn("inference engine close error", applogger.Error(err))
		}
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.l.Warn("event publisher close error", applogger.Error(err))
		}
	}
	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("client", nc.name), applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
}
