// Package server exposes sync runs and the stored track metadata over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/dj-metadata-sync/config"
	"github.com/jaki95/dj-metadata-sync/internal/job"
	"github.com/jaki95/dj-metadata-sync/internal/tagstore"
)

// Server handles HTTP requests for the metadata sync service
type Server struct {
	cfg        *config.Config
	router     *gin.Engine
	jobManager *job.Manager
	backend    tagstore.Backend

	// Sync jobs share library files, so only one runs at a time.
	running chan struct{}
}

// New creates a new HTTP server instance that reads and writes track tags
// through backend.
func New(cfg *config.Config, backend tagstore.Backend) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	server := &Server{
		cfg:        cfg,
		router:     router,
		jobManager: job.NewManager(),
		backend:    backend,
		running:    make(chan struct{}, 1),
	}

	server.setupRoutes(router)
	return server
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(router *gin.Engine) {
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/health", s.health)

	api := router.Group("/api/v1")
	{
		api.POST("/sync", s.startSync)
		api.GET("/jobs/:id", s.getJobStatus)
		api.DELETE("/jobs/:id", s.cancelJob)
		api.GET("/jobs", s.listJobs)
		api.GET("/tracks", s.getTrack)
		api.GET("/locations", s.listLocations)
	}
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(port string) error {
	return s.router.Run(":" + port)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("Handled request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
