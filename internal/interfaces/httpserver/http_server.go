package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-workspace/internal/configs"
	"github.com/janhq/jan-workspace/internal/infrastructure"
	middleware "github.com/janhq/jan-workspace/internal/interfaces/httpserver/middlewares"
	v1 "github.com/janhq/jan-workspace/internal/interfaces/httpserver/routes/v1"
	"github.com/janhq/jan-workspace/internal/metrics"
	"github.com/janhq/jan-workspace/internal/utils/sanitize"
)

const (
	readinessTimeout = 2 * time.Second
	shutdownTimeout  = 10 * time.Second
)

type HTTPServer struct {
	engine  *gin.Engine
	infra   *infrastructure.Infrastructure
	v1Route *v1.V1Route
	config  *configs.Config
}

func NewHttpServer(
	v1Route *v1.V1Route,
	infra *infrastructure.Infrastructure,
	cfg *configs.Config,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := HTTPServer{
		gin.New(),
		infra,
		v1Route,
		cfg,
	}
	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.TracingMiddleware(cfg.ServiceName))
	server.engine.Use(middleware.LoggingMiddleware(infra.Logger, sanitize.New(sanitize.Level(cfg.LogContentLevel), cfg.ServiceName)))
	server.engine.Use(middleware.MetricsMiddleware())

	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server.engine.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()
		if err := infra.Ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	server.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Protected routes
	protected := server.engine.Group("/")
	protected.Use(
		middleware.APIKeyMiddleware(cfg.APIKey),
		middleware.TimeoutMiddleware(cfg.RequestTimeout),
	)
	server.v1Route.RegisterRouter(protected)

	return &server
}

// Handler exposes the engine for tests.
func (httpServer *HTTPServer) Handler() http.Handler {
	return httpServer.engine
}

// Run serves until ctx is done, then drains in-flight requests.
func (httpServer *HTTPServer) Run(ctx context.Context) error {
	log := httpServer.infra.Logger
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpServer.config.HTTPPort),
		Handler:           httpServer.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("HTTP server stopped")
	return nil
}
