package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ayusman/cookify/internal/playback"
)

// stateTTL is how long a login attempt may take.
const stateTTL = 10 * time.Minute

// stateStore remembers OAuth state values handed out by /login.
type stateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	states map[string]time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{ttl: ttl, states: make(map[string]time.Time)}
}

func (s *stateStore) issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for st, exp := range s.states {
		if now.After(exp) {
			delete(s.states, st)
		}
	}

	state := uuid.NewString()
	s.states[state] = now.Add(s.ttl)
	return state
}

// consume reports whether state was issued and is still valid. A state is
// good for one callback only.
func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.states[state]
	delete(s.states, state)
	return ok && time.Now().Before(exp)
}

func (s *Server) requireSpotify(c *gin.Context) bool {
	if s.config.Spotify == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "Spotify is not configured",
		})
		return false
	}
	return true
}

func (s *Server) handleSpotifyLogin(c *gin.Context) {
	if !s.requireSpotify(c) {
		return
	}
	c.Redirect(http.StatusFound, s.config.Spotify.AuthURL(s.states.issue()))
}

func (s *Server) handleSpotifyCallback(c *gin.Context) {
	if !s.requireSpotify(c) {
		return
	}

	if reason := c.Query("error"); reason != "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": reason})
		return
	}
	if !s.states.consume(c.Query("state")) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid or expired state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "missing code"})
		return
	}

	if err := s.config.Spotify.Exchange(c.Request.Context(), code); err != nil {
		s.logger.Warn("spotify token exchange failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": err.Error()})
		return
	}

	s.logger.Info("spotify account linked")
	c.Redirect(http.StatusFound, s.config.AfterLogin)
}

func (s *Server) handleSpotifyInit(c *gin.Context) {
	if !s.requireSpotify(c) {
		return
	}

	if !s.config.Spotify.Authenticated() {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "Not authenticated with Spotify"})
		return
	}

	device, err := s.config.Spotify.StartPlaylist(c.Request.Context(), s.config.DefaultPlaylist)
	if err != nil {
		msg := err.Error()
		switch {
		case errors.Is(err, playback.ErrNoDevice):
			msg = "No available Spotify devices"
		case errors.Is(err, playback.ErrNotAuthenticated):
			msg = "Not authenticated with Spotify"
		}
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": msg})
		return
	}

	s.refreshPlayback(c)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Spotify initialized successfully",
		"device":  device.Name,
	})
}

func (s *Server) handleSpotifyStatus(c *gin.Context) {
	if !s.requireSpotify(c) {
		return
	}

	if !s.config.Spotify.Authenticated() {
		c.JSON(http.StatusOK, gin.H{
			"status":        "success",
			"authenticated": false,
		})
		return
	}

	ctx := c.Request.Context()
	user, err := s.config.Spotify.CurrentUser(ctx)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
		return
	}
	devices, err := s.config.Spotify.Devices(ctx)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
		return
	}
	pb, err := s.config.Spotify.CurrentPlayback(ctx)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
		return
	}

	var active *string
	for i := range devices {
		if devices[i].Active {
			active = &devices[i].Name
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"authenticated": true,
		"user":          user.DisplayName,
		"active_device": active,
		"is_playing":    pb != nil && pb.Playing,
	})
}
