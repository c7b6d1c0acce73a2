// Package api exposes the analysis pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/audit"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/database"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/middleware"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/service"
)

// Server is the HTTP front of the analysis pipeline. The repository, audit
// store and database handle are optional: a nil value disables the
// corresponding endpoints' persistence without affecting analysis.
type Server struct {
	config     *domain.Config
	logger     *logrus.Logger
	analyzer   *service.Analyzer
	repository domain.ResultRepository
	reviews    audit.Store
	db         *database.DB
	router     *gin.Engine
	server     *http.Server
}

// NewServer assembles the router with middleware and routes.
func NewServer(
	config *domain.Config,
	logger *logrus.Logger,
	analyzer *service.Analyzer,
	repository domain.ResultRepository,
	reviews audit.Store,
	db *database.DB,
) *Server {
	if config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestTimeout(60 * time.Second))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	server := &Server{
		config:     config,
		logger:     logger,
		analyzer:   analyzer,
		repository: repository,
		reviews:    reviews,
		db:         db,
		router:     router,
	}

	server.setupRoutes()

	return server
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving HTTP: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the engine for handler tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ready", s.handleReady)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.POST("/analyze/batch", s.handleAnalyzeBatch)
		v1.POST("/simulate", s.handleSimulate)
		v1.POST("/validate", s.handleValidate)
		v1.GET("/results/:id", s.handleGetResult)
		v1.GET("/patients/:id/results", s.handleListPatientResults)
		v1.POST("/results/:id/review", s.handleSaveReview)
		v1.GET("/reviews", s.handleListReviews)
	}
}
