// Package http is the HTTP adapter over the ledger services. It translates
// requests to service calls and domain errors to status codes; no ledger
// rules live here.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/expenses"
	"github.com/perkwise/backoffice/internal/objectstore"
	"github.com/perkwise/backoffice/internal/timeoffs"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter.
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	expenses   *expenses.Service
	timeoffs   *timeoffs.Service
	files      *objectstore.Local
	logger     *zap.Logger
}

// NewServer creates a new HTTP server over the given services.
func NewServer(
	config ServerConfig,
	expenseService *expenses.Service,
	timeoffService *timeoffs.Service,
	files *objectstore.Local,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		expenses: expenseService,
		timeoffs: timeoffService,
		files:    files,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware())
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-Id, X-User-Role")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("latency", time.Since(start).String()),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.expenses, s.timeoffs, s.files, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	// The file gateway authenticates by signed URL, not by identity headers.
	s.router.PUT("/files/*key", handlers.PutFile)
	s.router.GET("/files/*key", handlers.GetFile)

	api := s.router.Group("/api", identityMiddleware())
	{
		api.POST("/invoices", handlers.CreateInvoice)
		api.GET("/invoices", handlers.GetInvoiceData)
		api.DELETE("/invoices/:id", handlers.DeleteInvoice)
		api.POST("/attachments/presign", handlers.PresignAttachment)

		api.GET("/teams/my", handlers.GetMyTeams)
		api.GET("/teams/:teamId", handlers.GetTeam)
		api.GET("/teams/:teamId/my-stats", handlers.GetUserStats)
		api.GET("/teams/:teamId/leave-requests", handlers.GetTeamLeaveRequests)
		api.POST("/teams/:teamId/leave-requests", handlers.CreateLeaveRequest)

		api.GET("/settings", handlers.GetSettings)

		admin := api.Group("/admin")
		{
			admin.GET("/categories", handlers.ListCategories)
			admin.PUT("/categories/:id/limit", handlers.UpdateCategoryLimit)
			admin.PUT("/invoices/:id/status", handlers.UpdateInvoiceStatus)
			admin.GET("/reports", handlers.GenerateReport)
			admin.POST("/teams", handlers.CreateTeam)
			admin.PUT("/leave-requests/:id", handlers.ResolveLeaveRequest)
			admin.PUT("/settings", handlers.UpdateSettings)
		}
	}
}

// Start starts the HTTP server and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing).
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
