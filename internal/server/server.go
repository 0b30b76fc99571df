// Package server provides the HTTP API and event stream for the dashboard.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/zmb3/spotify/v2"

	"github.com/ayusman/cookify/internal/app"
	"github.com/ayusman/cookify/internal/artwork"
	"github.com/ayusman/cookify/internal/log"
)

// Spotify is the part of the Spotify client the API needs.
type Spotify interface {
	Authenticated() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) error
	CurrentUser(ctx context.Context) (*spotify.PrivateUser, error)
	Devices(ctx context.Context) ([]spotify.PlayerDevice, error)
	CurrentPlayback(ctx context.Context) (*spotify.PlayerState, error)
	StartPlaylist(ctx context.Context, contextURI string) (*spotify.PlayerDevice, error)
}

// Config holds the server configuration.
type Config struct {
	App *app.App
	// Spotify is nil when no client credentials are configured.
	Spotify Spotify
	Artwork *artwork.Service

	StaticDir   string
	CORSOrigins []string
	// DefaultPlaylist is started when a request names none.
	DefaultPlaylist string
	// AfterLogin is where the OAuth callback redirects. Defaults to "/".
	AfterLogin string
}

// Server is the HTTP server for the dashboard.
type Server struct {
	config Config
	engine *gin.Engine
	hub    *Hub
	states *stateStore
	start  time.Time
	logger *slog.Logger

	unsubscribe func()
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.AfterLogin == "" {
		config.AfterLogin = "/"
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config: config,
		engine: gin.New(),
		hub:    NewHub(),
		states: newStateStore(stateTTL),
		start:  time.Now(),
		logger: log.With("component", "server"),
	}
	if config.App != nil {
		s.unsubscribe = config.App.Subscribe(s.hub.Publish)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.engine
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), s.requestLogger())

	if len(s.config.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/status", s.handleStatus)
		api.PUT("/detection", s.handleDetection)
		api.GET("/playback", s.handlePlayback)
		api.GET("/queue", s.handleQueue)
		api.POST("/start_playlist", s.handleStartPlaylist)
		api.GET("/artwork", s.handleArtwork)
		api.GET("/events", s.hub.ServeWS)

		sp := api.Group("/spotify")
		{
			sp.GET("/init", s.handleSpotifyInit)
			sp.GET("/status", s.handleSpotifyStatus)
			sp.GET("/login", s.handleSpotifyLogin)
			sp.GET("/callback", s.handleSpotifyCallback)
		}
	}

	if s.config.StaticDir != "" {
		files := http.FileServer(http.Dir(s.config.StaticDir))
		r.NoRoute(func(c *gin.Context) {
			files.ServeHTTP(c.Writer, c.Request)
		})
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Hub returns the event hub behind /api/events.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("http server listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Close()
	return srv.Shutdown(shutdownCtx)
}

// Close detaches from the app and disconnects event clients.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.hub.Close()
}
