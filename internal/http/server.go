// Package http provides the HTTP server and route wiring.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogHTTP "github.com/allisson/videogate/internal/catalog/http"
	keyHTTP "github.com/allisson/videogate/internal/keydelivery/http"
)

// ServerParams holds everything the HTTP server needs to build its router.
//
// KeyHandler, AuthenticationMiddleware and RateLimitMiddleware may be nil
// when AuthEnabled is false: the public variant serves the catalog and the
// browsing UI only, with no key endpoints.
type ServerParams struct {
	Host      string
	Port      int
	StaticDir string

	AuthEnabled bool

	VideoHandler *catalogHTTP.VideoHandler
	KeyHandler   *keyHTTP.KeyHandler

	AuthenticationMiddleware gin.HandlerFunc
	RateLimitMiddleware      gin.HandlerFunc
	MetricsMiddleware        gin.HandlerFunc

	CORSEnabled      bool
	CORSAllowOrigins string

	Logger *slog.Logger
}

// Server represents the HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(params ServerParams) *Server {
	s := &Server{
		logger: params.Logger,
	}

	s.router = s.createRouter(params)
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", params.Host, params.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// createRouter builds the gin engine with middleware and routes.
func (s *Server) createRouter(params ServerParams) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if params.MetricsMiddleware != nil {
		router.Use(params.MetricsMiddleware)
	}

	if corsMiddleware := createCORSMiddleware(params.CORSEnabled, params.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	// Catalog routes. In authorized mode every catalog request carries a
	// validated bearer token; in public mode they are open.
	videos := router.Group("/videos")
	if params.AuthEnabled {
		videos.Use(params.AuthenticationMiddleware)
		if params.RateLimitMiddleware != nil {
			videos.Use(params.RateLimitMiddleware)
		}
	}
	videos.GET("", params.VideoHandler.ListVideosHandler)
	videos.GET("/:videoId", params.VideoHandler.GetVideoHandler)

	// Key delivery routes exist only in authorized mode.
	if params.AuthEnabled && params.KeyHandler != nil {
		keys := router.Group("/")
		keys.Use(params.AuthenticationMiddleware)
		if params.RateLimitMiddleware != nil {
			keys.Use(params.RateLimitMiddleware)
		}
		keys.POST("/envelopeKey", params.KeyHandler.GetEnvelopeKeyHandler)
		keys.POST("/playReadyKey", params.KeyHandler.GetPlayReadyKeyHandler)
		keys.POST("/widevineKey", params.KeyHandler.GetWidevineKeyHandler)
	}

	// Browsing UI. The static directory's browse.html is the entry page.
	if params.StaticDir != "" {
		router.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(params.StaticDir, "browse.html"))
		})
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(params.StaticDir))))
	}

	return router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readinessHandler reports readiness to serve. The catalog is loaded before
// the server starts, so a running server is always ready.
func (s *Server) readinessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"components": gin.H{
			"catalog": "ok",
		},
	})
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
