package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/WebDesk/internal/api/http"
	"github.com/GriffinCanCode/WebDesk/internal/api/middleware"
	"github.com/GriffinCanCode/WebDesk/internal/api/ws"
	"github.com/GriffinCanCode/WebDesk/internal/domain/supervisor"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/monitoring"
)

// Server wraps the status HTTP server and its dependencies.
type Server struct {
	router *gin.Engine
	srv    *http.Server
	logger *logging.Logger
	config *config.Config
}

// New assembles the status server around a supervisor. The server only
// observes the stack; every route is read-only.
func New(cfg *config.Config, sup *supervisor.Supervisor, metrics *monitoring.Metrics, logger *logging.Logger) *Server {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(sup, metrics)
	wsHandler := ws.NewHandler(sup, metrics, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/stack", handlers.Stack)
	router.GET("/stack/:name/output", handlers.StageOutput)

	// WebSocket event stream
	router.GET("/events", wsHandler.HandleConnection)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", handlers.MetricsJSON)

	addr := cfg.Status.Host + ":" + cfg.Status.Port
	return &Server{
		router: router,
		srv:    &http.Server{Addr: addr, Handler: router},
		logger: logger,
		config: cfg,
	}
}

// Start serves in the background. A status server failure is logged and
// nothing more; the stack must keep running without it.
func (s *Server) Start() {
	s.logger.Info("starting status server", zap.String("addr", s.srv.Addr))
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server stopped", zap.Error(err))
		}
	}()
}

// Close gracefully shuts down the status server.
func (s *Server) Close() error {
	s.logger.Info("shutting down status server")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
