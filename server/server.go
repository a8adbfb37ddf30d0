package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/kctmenswear/bundle-engine/internal/profile"
	apiv1 "github.com/kctmenswear/bundle-engine/server/router/api/v1"
	"github.com/kctmenswear/bundle-engine/server/scoring"
	"github.com/kctmenswear/bundle-engine/store/cache"
)

// Server wires the scoring engine and cache layer behind an HTTP listener.
type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	cache      *cache.Cache
	engine     *scoring.Engine
}

func NewServer(ctx context.Context, profile *profile.Profile, c *cache.Cache, engine *scoring.Engine) (*Server, error) {
	if profile == nil {
		return nil, errors.New("profile is required")
	}

	echoServer := echo.New()
	echoServer.Debug = true
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status))
			return nil
		},
	}))
	echoServer.Use(middleware.CORS())

	server := &Server{
		Profile:    profile,
		echoServer: echoServer,
		cache:      c,
		engine:     engine,
	}

	echoServer.GET("/healthz", server.healthz)

	apiService := apiv1.NewAPIV1Service(profile, c, engine)
	apiService.Register(echoServer)

	return server, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", slog.String("address", address), slog.String("version", s.Profile.Version))
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", slog.Any("error", err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.Any("error", err))
	}
	if err := s.cache.Close(); err != nil {
		slog.Error("failed to close cache backend", slog.Any("error", err))
	}
	slog.Info("server stopped")
}

// healthz reports liveness plus cache backend reachability. A degraded cache
// does not fail the probe because the engine keeps scoring without it.
func (s *Server) healthz(c echo.Context) error {
	info := s.cache.GetHealthInfo(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.Profile.Version,
		"cache":   info.Status,
	})
}
