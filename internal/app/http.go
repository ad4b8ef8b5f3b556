package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/valyala/fasthttp"

	"github.com/BolvicBolvicovic/feather/pkg/logger"
)

func (a *App) ready() bool {
	if a.store == nil {
		return true
	}
	_, err := a.store.Count()
	return err == nil
}

func (a *App) readyBody() (int, string) {
	if !a.ready() {
		return http.StatusServiceUnavailable, `{"status":"not ready"}`
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	return http.StatusOK, `{"status":"ok","version":"` + ver + `"}`
}

func (a *App) healthzFast(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	_, _ = ctx.WriteString(`{"status":"ok"}`)
}

func (a *App) readyzFast(ctx *fasthttp.RequestCtx) {
	code, body := a.readyBody()
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(code)
	_, _ = ctx.WriteString(body)
}

// fastHandler serves probes and metrics natively and everything else
// through the plug pipeline.
func (a *App) fastHandler() fasthttp.RequestHandler {
	var metricsHandler fasthttp.RequestHandler
	if a.metrics != nil {
		metricsHandler = a.metrics.FastHTTPHandler()
	}
	return func(ctx *fasthttp.RequestCtx) {
		switch path := string(ctx.Path()); {
		case path == "/healthz":
			a.healthzFast(ctx)
		case path == "/readyz":
			a.readyzFast(ctx)
		case metricsHandler != nil && path == a.cfg.Metrics.Path:
			metricsHandler(ctx)
		default:
			a.adapter.FastHTTP(ctx)
		}
	}
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (a *App) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	code, body := a.readyBody()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

// httpHandler is the net/http equivalent of fastHandler.
func (a *App) httpHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyzHandler).Methods(http.MethodGet)
	if a.metrics != nil {
		r.Handle(a.cfg.Metrics.Path, a.metrics.Handler()).Methods(http.MethodGet)
	}
	r.PathPrefix("/").Handler(a.adapter)
	return r
}

// startHTTP starts the configured server in a goroutine and returns a
// channel that delivers its error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	addr := a.cfg.Addr()
	errCh := make(chan error, 1)
	if a.cfg.Server.Transport == "nethttp" {
		a.srv = &http.Server{
			Addr:         addr,
			Handler:      a.httpHandler(),
			ReadTimeout:  a.cfg.Server.ReadTimeout.Duration(),
			WriteTimeout: a.cfg.Server.WriteTimeout.Duration(),
			IdleTimeout:  a.cfg.Server.IdleTimeout.Duration(),
		}
		go func() {
			logger.Info("http_listening", "addr", addr, "transport", "nethttp")
			if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
		return errCh
	}

	a.srvFast = &fasthttp.Server{
		Name:               "feather",
		Handler:            a.fastHandler(),
		MaxRequestBodySize: int(a.cfg.Server.MaxBodySize.Int64()),
		ReadTimeout:        a.cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:       a.cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:        a.cfg.Server.IdleTimeout.Duration(),
		ReadBufferSize:     64 * 1024,
	}
	go func() {
		logger.Info("http_listening", "addr", addr, "transport", "fasthttp")
		errCh <- a.srvFast.ListenAndServe(addr)
	}()
	return errCh
}
