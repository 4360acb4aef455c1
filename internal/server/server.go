// Package server exposes the dashboard over HTTP and WebSocket using echo.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cementlab/plantpulse/internal/advisor"
	"github.com/cementlab/plantpulse/internal/broadcast"
	"github.com/cementlab/plantpulse/internal/config"
	"github.com/cementlab/plantpulse/internal/datasource"
	apperrors "github.com/cementlab/plantpulse/internal/errors"
	"github.com/cementlab/plantpulse/internal/plant"
	"github.com/cementlab/plantpulse/internal/retry"
)

// advisorService is the subset of the advisor used by the handlers.
type advisorService interface {
	Ask(ctx context.Context, req advisor.ChatRequest, snap *plant.DashboardSnapshot) (advisor.Response, error)
	AnalyzeFluctuations(ctx context.Context, flucts []advisor.Fluctuation, snap *plant.DashboardSnapshot) (advisor.Response, error)
	AnalyzeTrends(ctx context.Context, trends []advisor.TrendSeries, snap *plant.DashboardSnapshot) (advisor.Response, error)
	Optimize(ctx context.Context, objective advisor.Objective, snap *plant.DashboardSnapshot) (advisor.Response, error)
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	source      *datasource.Source
	generator   *plant.Generator
	broadcaster *broadcast.Broadcaster
	advisor     advisorService
	redisClient *goredis.Client
	startTime   time.Time
}

// NewServer wires the routes. redisClient may be nil when no archive
// store is configured; the readiness check then skips it.
func NewServer(cfg *config.Config, source *datasource.Source, generator *plant.Generator, broadcaster *broadcast.Broadcaster, advisorSvc advisorService, redisClient *goredis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		source:      source,
		generator:   generator,
		broadcaster: broadcaster,
		advisor:     advisorSvc,
		redisClient: redisClient,
		startTime:   time.Now(),
	}

	srv.registerRoutes()
	return srv
}

// Start binds the listener, retrying with backoff before giving up. A
// bind failure after exhausting retries is the only fatal startup fault.
func (s *Server) Start() error {
	listener, err := retry.Do(context.Background(), retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Failed to bind listener, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}, func(error) retry.Action { return retry.Retry }, func() (net.Listener, error) {
		return net.Listen("tcp", ":"+s.config.Port)
	})
	if err != nil {
		return fmt.Errorf("bind port %s: %w", s.config.Port, err)
	}

	s.echo.Listener = listener
	return s.echo.Start("")
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
