package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/ayusman/cookify/internal/gesture"
	"github.com/ayusman/cookify/internal/httpc"
	"github.com/ayusman/cookify/internal/log"
)

// Spotify endpoints.
const (
	SpotifyAPIBase  = "https://api.spotify.com/v1/"
	SpotifyAuthURL  = "https://accounts.spotify.com/authorize"
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// SpotifyScopes are the permissions requested at login.
var SpotifyScopes = []string{
	"user-modify-playback-state",
	"user-read-playback-state",
	"user-read-currently-playing",
	"user-read-private",
}

var (
	// ErrNotAuthenticated is returned before a user has logged in, or when
	// the stored token can no longer be refreshed.
	ErrNotAuthenticated = errors.New("not authenticated with spotify")
	// ErrNoDevice is returned when no Spotify client is available to play on.
	ErrNoDevice = errors.New("no available spotify devices")
)

// SpotifyConfig configures a SpotifyClient.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint overrides, for tests.
	APIBase  string
	AuthURL  string
	TokenURL string

	// HTTPClient defaults to httpc.Client.
	HTTPClient *http.Client
	// Tokens defaults to an in-memory store.
	Tokens TokenStore
}

// SpotifyClient drives the Spotify Web API. It implements Sink and Reader.
type SpotifyClient struct {
	oauth   *oauth2.Config
	apiBase string
	base    *http.Client
	tokens  TokenStore
	logger  *slog.Logger

	mu     sync.RWMutex
	client *spotify.Client
}

// NewSpotifyClient creates a client and restores a stored token if there
// is one.
func NewSpotifyClient(cfg SpotifyConfig) (*SpotifyClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = SpotifyAPIBase
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = SpotifyAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = SpotifyTokenURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpc.Client
	}
	if cfg.Tokens == nil {
		cfg.Tokens = &MemoryTokenStore{}
	}

	s := &SpotifyClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		apiBase: strings.TrimRight(cfg.APIBase, "/") + "/",
		base:    cfg.HTTPClient,
		tokens:  cfg.Tokens,
		logger:  log.With("component", "spotify"),
	}

	tok, err := cfg.Tokens.Load()
	switch {
	case errors.Is(err, ErrNoToken):
		s.logger.Info("no stored spotify token, login required")
	case err != nil:
		return nil, fmt.Errorf("load spotify token: %w", err)
	default:
		s.useToken(tok)
	}

	return s, nil
}

// Authenticated reports whether a token is available.
func (s *SpotifyClient) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// AuthURL returns the consent page URL carrying state.
func (s *SpotifyClient) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and stores it.
func (s *SpotifyClient) Exchange(ctx context.Context, code string) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.base)
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := s.tokens.Save(tok); err != nil {
		s.logger.Warn("failed to save token", "error", err)
	}
	s.useToken(tok)
	s.logger.Info("spotify authenticated")
	return nil
}

// Logout forgets the token.
func (s *SpotifyClient) Logout() error {
	s.mu.Lock()
	s.client = nil
	s.mu.Unlock()
	return s.tokens.Delete()
}

func (s *SpotifyClient) useToken(tok *oauth2.Token) {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, s.base)
	src := &savingTokenSource{
		src:   s.oauth.TokenSource(ctx, tok),
		store: s.tokens,
		last:  tok.AccessToken,
		onSave: func(err error) {
			if err != nil {
				s.logger.Warn("failed to save refreshed token", "error", err)
				return
			}
			s.logger.Debug("spotify token refreshed")
		},
	}

	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = s.base.Timeout

	s.mu.Lock()
	s.client = spotify.New(httpClient, spotify.WithBaseURL(s.apiBase))
	s.mu.Unlock()
}

// Dispatch implements Sink.
func (s *SpotifyClient) Dispatch(ctx context.Context, cmd gesture.Command) error {
	switch cmd.Action {
	case gesture.Play:
		return s.Play(ctx)
	case gesture.Pause:
		return s.Pause(ctx)
	case gesture.Next:
		return s.Next(ctx)
	case gesture.Previous:
		return s.Previous(ctx)
	case gesture.SetVolume:
		return s.SetVolume(ctx, cmd.Volume)
	default:
		return fmt.Errorf("unsupported command %q", cmd.Action)
	}
}

// Play resumes playback on the active device.
func (s *SpotifyClient) Play(ctx context.Context) error {
	c, err := s.api()
	if err != nil {
		return err
	}
	return wrapError("play", c.Play(ctx))
}

// Pause pauses playback.
func (s *SpotifyClient) Pause(ctx context.Context) error {
	c, err := s.api()
	if err != nil {
		return err
	}
	return wrapError("pause", c.Pause(ctx))
}

// Next skips to the next track.
func (s *SpotifyClient) Next(ctx context.Context) error {
	c, err := s.api()
	if err != nil {
		return err
	}
	return wrapError("next", c.Next(ctx))
}

// Previous skips to the previous track.
func (s *SpotifyClient) Previous(ctx context.Context) error {
	c, err := s.api()
	if err != nil {
		return err
	}
	return wrapError("previous", c.Previous(ctx))
}

// SetVolume sets the device volume, clamped to 0-100.
func (s *SpotifyClient) SetVolume(ctx context.Context, volume int) error {
	c, err := s.api()
	if err != nil {
		return err
	}
	return wrapError("volume", c.Volume(ctx, gesture.ClampVolume(volume)))
}

// CurrentPlayback implements Reader.
func (s *SpotifyClient) CurrentPlayback(ctx context.Context) (*spotify.PlayerState, error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}
	state, err := c.PlayerState(ctx)
	if err != nil {
		return nil, wrapError("player state", err)
	}
	// The API answers 204 with no body when no device is playing.
	if state == nil || (state.Item == nil && state.Device.ID == "") {
		return nil, nil
	}
	return state, nil
}

// Queue implements Reader.
func (s *SpotifyClient) Queue(ctx context.Context) (*spotify.Queue, error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}
	q, err := c.GetQueue(ctx)
	if err != nil {
		return nil, wrapError("queue", err)
	}
	return q, nil
}

// Devices lists the available playback devices.
func (s *SpotifyClient) Devices(ctx context.Context) ([]spotify.PlayerDevice, error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}
	devices, err := c.PlayerDevices(ctx)
	if err != nil {
		return nil, wrapError("devices", err)
	}
	return devices, nil
}

// StartPlaylist starts contextURI on the first available device and
// returns that device.
func (s *SpotifyClient) StartPlaylist(ctx context.Context, contextURI string) (*spotify.PlayerDevice, error) {
	devices, err := s.Devices(ctx)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, ErrNoDevice
	}

	c, err := s.api()
	if err != nil {
		return nil, err
	}
	device := devices[0]
	uri := spotify.URI(contextURI)
	err = c.PlayOpt(ctx, &spotify.PlayOptions{
		DeviceID:        &device.ID,
		PlaybackContext: &uri,
	})
	if err != nil {
		return nil, wrapError("start playlist", err)
	}
	return &device, nil
}

// CurrentUser returns the logged in account.
func (s *SpotifyClient) CurrentUser(ctx context.Context) (*spotify.PrivateUser, error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}
	u, err := c.CurrentUser(ctx)
	if err != nil {
		return nil, wrapError("current user", err)
	}
	return u, nil
}

func (s *SpotifyClient) api() (*spotify.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, ErrNotAuthenticated
	}
	return s.client, nil
}

// APIStatus returns the HTTP status of a Web API error, or 0 for any other
// error.
func APIStatus(err error) int {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var ptr *spotify.Error
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Status
	}
	return 0
}

// wrapError maps a failed token refresh or a rejected token to
// ErrNotAuthenticated.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: token refresh failed: %v", ErrNotAuthenticated, rerr)
	}
	if APIStatus(err) == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
