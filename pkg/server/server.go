package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/config"
	"github.com/graphweave/graphweave/pkg/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	router     *gin.Engine
	engine     *graphweave.Client
	dispatcher *graphweave.Dispatcher
	logger     *slog.Logger
	server     *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, engine *graphweave.Client, dispatcher *graphweave.Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:     cfg,
		engine:     engine,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(tenantMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// Router returns the configured router. Setup must have been called.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.engine)
	extractHandler := handlers.NewExtractHandler(s.engine, s.dispatcher, s.logger)
	queryHandler := handlers.NewQueryHandler(s.engine)

	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/extract", extractHandler.Extract)
		v1.POST("/extract/sync", extractHandler.ExtractSync)
		v1.POST("/integrate", extractHandler.Integrate)

		v1.GET("/triples", queryHandler.ListTriples)
		v1.GET("/entities", queryHandler.ListEntities)
	}
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-API-Key")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// tenantMiddleware resolves the owning tenant from the X-API-Key header.
// Requests without a key land in the default tenant.
func tenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := c.GetHeader("X-API-Key")
		if tenant == "" {
			tenant = handlers.DefaultTenant
		}
		c.Set(handlers.TenantKey, tenant)
		c.Next()
	}
}
