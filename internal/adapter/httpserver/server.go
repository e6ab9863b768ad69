package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/pixelgrid/internal/adapter/metrics"
	"github.com/pscheid92/pixelgrid/internal/domain"
)

type canvasReader interface {
	ReadFull(ctx context.Context) ([]byte, error)
}

type cellUpdater interface {
	UpdateCell(ctx context.Context, event domain.DrawEvent) error
}

type Config struct {
	Port           string
	AllowedOrigins []string
	DrawRate       float64
	DrawBurst      int

	// WebSocket serves /ws; nil leaves the route unregistered.
	WebSocket      echo.HandlerFunc
	MetricsHandler http.Handler
	HTTPMetrics    *metrics.HTTPMetrics
	HealthChecks   []HealthCheck
}

type Server struct {
	echo   *echo.Echo
	config Config

	canvas  canvasReader
	updater cellUpdater

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg Config, canvas canvasReader, updater cellUpdater) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		canvas:       canvas,
		updater:      updater,
		healthChecks: cfg.HealthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Run serves until Shutdown is called.
func (s *Server) Run(_ context.Context) error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
