// Package playback delivers gesture commands to a music player and reads
// back what is playing.
package playback

import (
	"context"

	"github.com/zmb3/spotify/v2"

	"github.com/ayusman/cookify/internal/gesture"
)

// Sink receives the engine's commands. Dispatch may block on I/O; callers
// log a returned error and move on.
type Sink interface {
	Dispatch(ctx context.Context, cmd gesture.Command) error
}

// Reader exposes the player state shown by the dashboard and tray.
type Reader interface {
	// CurrentPlayback returns nil with no error when nothing is playing.
	CurrentPlayback(ctx context.Context) (*spotify.PlayerState, error)
	Queue(ctx context.Context) (*spotify.Queue, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, cmd gesture.Command) error

// Dispatch calls f.
func (f SinkFunc) Dispatch(ctx context.Context, cmd gesture.Command) error {
	return f(ctx, cmd)
}

type eventIDKey struct{}

// WithEventID attaches a command event ID to ctx for sinks that forward it.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey{}, id)
}

// EventID returns the command event ID carried by ctx, if any.
func EventID(ctx context.Context) string {
	id, _ := ctx.Value(eventIDKey{}).(string)
	return id
}
