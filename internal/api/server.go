// Package api assembles the ops HTTP server: health checks, Prometheus metrics and
// the Huma-described state and trigger endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/stock-monitor/internal/api/handlers"
	mw "github.com/donaldgifford/stock-monitor/internal/api/middleware"
)

// Monitor is the read side of the engine as seen by the ops API.
type Monitor interface {
	handlers.ReadinessChecker
	handlers.StateProvider
}

// Deps holds what the server routes to.
type Deps struct {
	Monitor Monitor
	Trigger handlers.CycleTrigger
	Links   handlers.ProductLinker
	Logger  *slog.Logger
	Version string
}

// Server is the ops HTTP server.
type Server struct {
	echo *echo.Echo
	api  huma.API
	log  *slog.Logger
}

// NewServer builds the echo instance and registers every route.
func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Recovery is innermost so the panic's 500 is what gets logged and counted.
	e.Use(mw.RequestLog(log))
	e.Use(mw.Metrics())
	e.Use(mw.Recovery(log))

	health := handlers.NewHealthHandler(d.Monitor)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	version := d.Version
	if version == "" {
		version = "dev"
	}
	api := humaecho.New(e, huma.DefaultConfig("stock-monitor", version))

	handlers.RegisterStateRoutes(api, handlers.NewStateHandler(d.Monitor, d.Links))
	handlers.RegisterCheckRoutes(api, handlers.NewCheckHandler(d.Trigger))

	return &Server{echo: e, api: api, log: log}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// OpenAPI returns the generated OpenAPI document for the Huma routes.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.api.OpenAPI()
}

// Start listens on addr and serves until Shutdown is called. It returns nil
// after a graceful shutdown.
func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) error {
	s.echo.Server.ReadTimeout = readTimeout
	s.echo.Server.ReadHeaderTimeout = readTimeout
	s.echo.Server.WriteTimeout = writeTimeout

	s.log.Info("starting ops server", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s: %w", addr, err)
	}
	return nil
}

// Addr returns the bound listen address, or "" before Start has bound it.
func (s *Server) Addr() string {
	if a := s.echo.ListenerAddr(); a != nil {
		return a.String()
	}
	return ""
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	s.log.Info("ops server stopped")
	return nil
}
