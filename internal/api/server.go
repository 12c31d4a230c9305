package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/challan/config"
	"example.com/backstage/services/challan/internal/metrics"
	"example.com/backstage/services/challan/internal/models"
	"example.com/backstage/services/challan/internal/service"
	"example.com/backstage/services/challan/internal/tracing"
)

// ChallanService is what the HTTP layer needs from the service
type ChallanService interface {
	CreateChallan(ctx context.Context, input service.CreateChallanInput) (*models.Challan, error)
	ListChallans(ctx context.Context, filter models.ListFilter) ([]models.ChallanSummary, error)
	GetDocument(ctx context.Context, id uint) (*models.Document, error)
	GetChallan(ctx context.Context, id uint) (*models.Challan, error)
	ExportChallans(ctx context.Context, filter models.ListFilter) ([]byte, error)
	ParseItems(text string) []models.LineItem
	Health(ctx context.Context) (service.HealthStatus, error)
}

// Server is the HTTP server for the API
type Server struct {
	cfg        config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	service    ChallanService
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
	now        func() time.Time
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, svc ChallanService, collector *metrics.Metrics, tracer tracing.Tracer) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if collector == nil {
		collector = metrics.NewMetrics()
	}
	if tracer == nil {
		tracer = &tracing.NewRelicTracer{}
	}

	server := &Server{
		cfg:     cfg,
		router:  gin.New(),
		service: svc,
		metrics: collector,
		tracer:  tracer,
		now:     time.Now,
	}

	server.setupMiddleware()
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      server.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server
}

// setupMiddleware adds middleware to the router
func (s *Server) setupMiddleware() {
	s.router.Use(RequestIDMiddleware())
	s.router.Use(CORSMiddleware(s.cfg.CorsOrigins))
	s.router.Use(gin.Recovery())
	s.router.Use(LoggingMiddleware())
	s.router.Use(MetricsMiddleware(s.metrics))
	s.router.Use(s.tracer.Middleware())
}

// setupRoutes defines the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/metrics", s.getMetrics)

	api := s.router.Group("/api")
	{
		api.POST("/generate-pdf", s.generatePDF)
		api.GET("/list-challans", s.listChallans)
		api.GET("/download-pdf/:id", s.downloadPDF)
		api.GET("/challans/:id", s.getChallan)
		api.GET("/export-challans", s.exportChallans)
		api.POST("/parse-items", s.parseItems)
		api.GET("/health", s.health)
	}
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.httpServer.Addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
