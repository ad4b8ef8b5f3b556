package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/valyala/fasthttp"

	"github.com/BolvicBolvicovic/feather/internal/site"
	"github.com/BolvicBolvicovic/feather/pkg/banner"
	"github.com/BolvicBolvicovic/feather/pkg/config"
	"github.com/BolvicBolvicovic/feather/pkg/controller"
	"github.com/BolvicBolvicovic/feather/pkg/httpx"
	"github.com/BolvicBolvicovic/feather/pkg/logger"
	"github.com/BolvicBolvicovic/feather/pkg/metrics"
	"github.com/BolvicBolvicovic/feather/pkg/router"
	"github.com/BolvicBolvicovic/feather/pkg/session"
	"github.com/BolvicBolvicovic/feather/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg     *config.Config
	version string
	out     io.Writer

	store    *store.Store
	registry *session.Registry
	metrics  *metrics.Metrics
	router   *router.Router
	adapter  *httpx.Adapter

	srv         *http.Server
	srvFast     *fasthttp.Server
	sweepCancel context.CancelFunc
}

// New validates cfg and wires the store, registry, router and adapter. It
// does not listen; call Run for that.
func New(cfg *config.Config, version string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{cfg: cfg, version: version, out: os.Stdout}

	var backend session.Backend
	if cfg.Sessions.StorePath != "" {
		st, err := store.Open(cfg.Sessions.StorePath)
		if err != nil {
			return nil, err
		}
		a.store = st
		backend = st
		if n, err := st.Count(); err == nil {
			logger.Info("session_store_opened", "path", cfg.Sessions.StorePath, "sessions", n)
		}
	}
	a.registry = session.NewRegistry(backend)

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}
	r, err := site.Router(cfg, a.metrics)
	if err != nil {
		_ = a.store.Close()
		return nil, fmt.Errorf("build router: %w", err)
	}
	a.router = r
	a.adapter = httpx.New(r, httpx.Options{
		Registry:      a.registry,
		CookieName:    cfg.Sessions.CookieName,
		SecretKeyBase: cfg.Server.SecretKey,
		NotFound:      controller.NotFound,
		MaxBodySize:   cfg.Server.MaxBodySize.Int64(),
	})
	return a, nil
}

// Router returns the application router.
func (a *App) Router() *router.Router { return a.router }

// Run starts the sweeper and the HTTP server, and blocks until ctx is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	raiseFileLimit()
	banner.Print(a.out, a.cfg, a.router.Routes(), a.version)

	cancel, err := a.startSweeper(ctx)
	if err != nil {
		return err
	}
	a.sweepCancel = cancel

	errCh := a.startHTTP(ctx)
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the listener and the sweeper and closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	logger.Info("shutdown_requested")
	if a.srvFast != nil {
		if err := a.srvFast.Shutdown(); err != nil {
			logger.Error("fasthttp_shutdown_error", "error", err)
		}
	}
	if a.srv != nil {
		if err := a.srv.Shutdown(ctx); err != nil {
			logger.Error("http_shutdown_error", "error", err)
		}
	}
	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close session store: %w", err)
	}
	logger.Info("shutdown_complete")
	return nil
}
