package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/checkoutlens/checkout-lens/internal/config"
)

// Server wraps the gin router and HTTP server lifecycle.
type Server struct {
	cfg        config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer builds the router, mounts middleware and routes, and binds the
// configured address. Call Start to begin serving.
func NewServer(cfg config.ServerConfig, handlers *Handlers, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(MetricsMiddleware())

	registerRoutes(router, handlers)

	return &Server{
		cfg:    cfg,
		router: router,
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

func registerRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analysis", h.Analyze)
		v1.POST("/classify", h.Classify)
		v1.POST("/diagnostics/parse", h.ParseDiagnostics)
		v1.GET("/rules", h.ListRules)
		v1.GET("/analyses", h.ListAnalyses)
		v1.GET("/analyses/:id", h.GetAnalysis)
		v1.POST("/analyses/:id/feedback", h.SubmitFeedback)
	}
}

// Start serves requests until Shutdown. http.ErrServerClosed is swallowed
// so a clean shutdown does not read as a failure.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// GracefulTimeout returns the configured graceful shutdown window.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
