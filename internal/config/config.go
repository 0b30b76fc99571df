// Package config loads Cookify's settings from a JSON file, the environment
// and command-line flags, in that order of increasing precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sink names.
const (
	SinkSpotify = "spotify"
	SinkPlugin  = "plugin"
)

// Defaults.
const (
	DefaultAddr        = ":8080"
	DefaultLeapURL     = "ws://127.0.0.1:6437/v6.json"
	DefaultRedirectURL = "http://localhost:8080/api/spotify/callback"
	DefaultCORSOrigin  = "http://localhost:3000"
	DefaultPlaylist    = "spotify:playlist:37i9dQZF1DZ06evO03FbPP"
	DefaultPlugin      = "system-control"
)

// Config is the full application configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr"`
	// DataDir holds the database and plugins. Defaults to ~/.cookify.
	DataDir string `json:"data_dir"`
	// StaticDir is an optional dashboard build to serve at /.
	StaticDir string `json:"static_dir"`
	// CORSOrigins are the browser origins allowed to call the API.
	CORSOrigins []string `json:"cors_origins"`
	LogLevel    string   `json:"log_level"`
	// Tray enables the system tray icon.
	Tray bool `json:"tray"`

	Tracking TrackingConfig `json:"tracking"`
	Gesture  GestureConfig  `json:"gesture"`
	Sink     string         `json:"sink"`
	Spotify  SpotifyConfig  `json:"spotify"`
	Plugin   PluginConfig   `json:"plugin"`
}

// TrackingConfig selects the frame source.
type TrackingConfig struct {
	// URL of the tracking service WebSocket.
	URL string `json:"url"`
	// Replay, when set, plays a recording instead of connecting.
	Replay      string   `json:"replay"`
	Loop        bool     `json:"loop"`
	PollTimeout Duration `json:"poll_timeout"`
}

// GestureConfig tunes the engine.
type GestureConfig struct {
	Cooldown Duration `json:"cooldown"`
}

// SpotifyConfig holds the Spotify application credentials.
type SpotifyConfig struct {
	ClientID        string   `json:"client_id"`
	ClientSecret    string   `json:"client_secret"`
	RedirectURL     string   `json:"redirect_url"`
	DefaultPlaylist string   `json:"default_playlist"`
	PollInterval    Duration `json:"poll_interval"`
	QueueInterval   Duration `json:"queue_interval"`
}

// PluginConfig selects the executable plugin used by the plugin sink.
type PluginConfig struct {
	// Dir is searched for plugin manifests. Defaults to <data_dir>/plugins.
	Dir  string `json:"dir"`
	Name string `json:"name"`
}

// Duration is a time.Duration that reads and writes as a string like "500ms".
type Duration struct {
	time.Duration
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:        DefaultAddr,
		CORSOrigins: []string{DefaultCORSOrigin},
		LogLevel:    "info",
		Tray:        true,
		Tracking: TrackingConfig{
			URL:         DefaultLeapURL,
			PollTimeout: Duration{time.Second},
		},
		Gesture: GestureConfig{Cooldown: Duration{500 * time.Millisecond}},
		Sink:    SinkSpotify,
		Spotify: SpotifyConfig{
			RedirectURL:     DefaultRedirectURL,
			DefaultPlaylist: DefaultPlaylist,
			PollInterval:    Duration{time.Second},
			QueueInterval:   Duration{10 * time.Second},
		},
		Plugin: PluginConfig{Name: DefaultPlugin},
	}
}

// DefaultDataDir returns ~/.cookify.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".cookify"), nil
}

// Load reads path on top of the defaults and then applies the environment.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for name, field := range map[string]*string{
		"SPOTIFY_CLIENT_ID":     &c.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &c.Spotify.ClientSecret,
		"SPOTIFY_REDIRECT_URL":  &c.Spotify.RedirectURL,
		"COOKIFY_ADDR":          &c.Addr,
		"COOKIFY_DATA_DIR":      &c.DataDir,
		"LEAP_URL":              &c.Tracking.URL,
		"COOKIFY_SINK":          &c.Sink,
		"LOG_LEVEL":             &c.LogLevel,
	} {
		if v, ok := lookup(name); ok && v != "" {
			*field = v
		}
	}

	if v, ok := lookup("COOKIFY_CORS_ORIGINS"); ok && v != "" {
		c.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.CORSOrigins = append(c.CORSOrigins, origin)
			}
		}
	}
}

// Validate fills derived defaults and checks the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	if c.Plugin.Dir == "" {
		c.Plugin.Dir = filepath.Join(c.DataDir, "plugins")
	}

	switch c.Sink {
	case SinkSpotify:
	case SinkPlugin:
		if c.Plugin.Name == "" {
			return errors.New("plugin sink requires plugin.name")
		}
	default:
		return fmt.Errorf("unknown sink %q (want %s or %s)", c.Sink, SinkSpotify, SinkPlugin)
	}

	if c.Tracking.URL == "" && c.Tracking.Replay == "" {
		return errors.New("tracking.url or tracking.replay is required")
	}
	if c.Gesture.Cooldown.Duration < 0 {
		return fmt.Errorf("gesture.cooldown must not be negative, got %s", c.Gesture.Cooldown)
	}
	return nil
}

// DBPath returns the SQLite database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "cookify.db")
}

// SpotifyConfigured reports whether Spotify credentials are present.
func (c *Config) SpotifyConfigured() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}
