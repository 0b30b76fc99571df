package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ayusman/cookify/internal/app"
	"github.com/ayusman/cookify/internal/artwork"
	"github.com/ayusman/cookify/internal/playback"
)

const noPlayback = "No active playback"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

func (s *Server) requireApp(c *gin.Context) bool {
	if s.config.App == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "detection pipeline not running"})
		return false
	}
	return true
}

func (s *Server) handleStatus(c *gin.Context) {
	if !s.requireApp(c) {
		return
	}
	c.JSON(http.StatusOK, s.config.App.Status())
}

type detectionRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) handleDetection(c *gin.Context) {
	if !s.requireApp(c) {
		return
	}

	var req detectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"enabled\": bool}"})
		return
	}

	s.config.App.SetEnabled(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": s.config.App.IsEnabled()})
}

func (s *Server) handlePlayback(c *gin.Context) {
	if !s.requireApp(c) {
		return
	}

	np := s.config.App.NowPlaying()
	if np == nil {
		c.JSON(http.StatusOK, gin.H{"error": noPlayback})
		return
	}
	c.JSON(http.StatusOK, np)
}

func (s *Server) handleQueue(c *gin.Context) {
	if !s.requireApp(c) {
		return
	}

	if s.config.App.NowPlaying() == nil {
		c.JSON(http.StatusOK, gin.H{"error": noPlayback})
		return
	}

	q := s.config.App.Queue()
	if q.Items == nil {
		q.Items = []app.QueueItem{}
	}
	c.JSON(http.StatusOK, q)
}

type startPlaylistRequest struct {
	PlaylistURI string `json:"playlist_uri"`
}

func (s *Server) handleStartPlaylist(c *gin.Context) {
	if !s.requireSpotify(c) {
		return
	}

	// An empty body starts the default playlist.
	var req startPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PlaylistURI == "" {
		req.PlaylistURI = s.config.DefaultPlaylist
	}

	if _, err := s.config.Spotify.StartPlaylist(c.Request.Context(), req.PlaylistURI); err != nil {
		if errors.Is(err, playback.ErrNoDevice) {
			c.JSON(http.StatusOK, gin.H{"error": "No available devices"})
			return
		}
		s.logger.Warn("failed to start playlist", "uri", req.PlaylistURI, "error", err)
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	s.refreshPlayback(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Playlist started"})
}

func (s *Server) handleArtwork(c *gin.Context) {
	if !s.requireApp(c) {
		return
	}
	if s.config.Artwork == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "artwork not available"})
		return
	}

	size, err := artwork.ParseSize(c.Query("size"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	np := s.config.App.NowPlaying()
	if np == nil || np.AlbumURL == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": noPlayback})
		return
	}

	data, err := s.config.Artwork.Get(c.Request.Context(), np.AlbumURL, size)
	if err != nil {
		s.logger.Warn("failed to load artwork", "url", np.AlbumURL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "artwork unavailable"})
		return
	}

	c.Header("Cache-Control", "max-age=60")
	c.Data(http.StatusOK, "image/jpeg", data)
}

// refreshPlayback updates the now-playing cache after a change made through
// the API so the next read does not wait for the poller.
func (s *Server) refreshPlayback(c *gin.Context) {
	if s.config.App != nil {
		s.config.App.RefreshPlayback(c.Request.Context())
	}
}
