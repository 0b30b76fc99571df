package tracking

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by Poll after the source has been closed.
var ErrClosed = errors.New("tracking source closed")

// Source defines the interface for hand-tracking frame producers.
type Source interface {
	// Poll blocks until the next tracking frame arrives or timeout elapses.
	// A nil frame with a nil error means no tracking event was available.
	Poll(ctx context.Context, timeout time.Duration) (*Frame, error)

	// Close releases any resources held by the source.
	Close() error
}

// Config holds configuration options for the sensor connection.
type Config struct {
	// URL is the tracking service WebSocket endpoint.
	URL string

	// PollTimeout bounds each Poll call.
	PollTimeout time.Duration

	// Buffer is the number of frames queued between the reader and Poll.
	Buffer int
}

// DefaultConfig returns a Config pointing at a local Leap Motion service.
func DefaultConfig() Config {
	return Config{
		URL:         "ws://127.0.0.1:6437/v6.json",
		PollTimeout: time.Second,
		Buffer:      32,
	}
}
