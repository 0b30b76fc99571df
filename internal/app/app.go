// Package app wires a tracking source, the gesture engine and a playback
// sink into a running pipeline.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/cookify/internal/gesture"
	"github.com/ayusman/cookify/internal/log"
	"github.com/ayusman/cookify/internal/playback"
	"github.com/ayusman/cookify/internal/store"
	"github.com/ayusman/cookify/internal/tracking"
)

// Pipeline timing defaults.
const (
	// DefaultInterval is the pause between two polls of the source.
	DefaultInterval = 10 * time.Millisecond
	// DefaultPollTimeout bounds a single Poll.
	DefaultPollTimeout = time.Second
	// DefaultErrorBackoff is the wait after a failed Poll.
	DefaultErrorBackoff = time.Second
	// DefaultDispatchTimeout bounds a single command dispatch.
	DefaultDispatchTimeout = 5 * time.Second
	// DefaultPlaybackInterval is how often the player state is fetched.
	DefaultPlaybackInterval = time.Second
	// DefaultQueueInterval is how often the queue is fetched.
	DefaultQueueInterval = 10 * time.Second
)

// Config holds configuration options for the application.
type Config struct {
	Source tracking.Source
	Sink   playback.Sink
	// Reader feeds the now-playing cache. Optional.
	Reader playback.Reader
	// Store persists the volume and the detection toggle. Optional.
	Store *store.Store

	// Engine is built from Gesture when nil.
	Engine  *gesture.Engine
	Gesture gesture.Config

	Interval         time.Duration
	PollTimeout      time.Duration
	ErrorBackoff     time.Duration
	DispatchTimeout  time.Duration
	PlaybackInterval time.Duration
	QueueInterval    time.Duration
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = DefaultErrorBackoff
	}
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = DefaultDispatchTimeout
	}
	if c.PlaybackInterval <= 0 {
		c.PlaybackInterval = DefaultPlaybackInterval
	}
	if c.QueueInterval <= 0 {
		c.QueueInterval = DefaultQueueInterval
	}
}

// Status is the view of the pipeline served to the dashboard and tray.
type Status struct {
	HandStatus    gesture.ZoneStatus `json:"hand_status"`
	CurrentVolume int                `json:"current_volume"`
	IsPinching    bool               `json:"is_pinching"`
	LastHandState *string            `json:"last_hand_state"`
	Enabled       bool               `json:"enabled"`
	LastCommand   *gesture.Command   `json:"last_command"`
	LastCommandAt time.Time          `json:"last_command_at,omitzero"`
}

// App is the main application that runs gesture detection and dispatches
// playback commands.
type App struct {
	config Config
	engine *gesture.Engine
	logger *slog.Logger

	events listeners

	mu      sync.RWMutex
	enabled bool
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup

	playMu     sync.RWMutex
	nowPlaying *NowPlaying
	queue      QueueSnapshot
	// volumeSentAt is when the last volume command left for the sink.
	volumeSentAt time.Time

	now func() time.Time
}

// New creates a new App. Detection starts enabled unless the store says
// otherwise, and the last stored volume seeds the engine.
func New(config Config) *App {
	config.applyDefaults()

	engine := config.Engine
	if engine == nil {
		engine = gesture.NewEngine(config.Gesture)
	}

	a := &App{
		config:  config,
		engine:  engine,
		logger:  log.With("component", "app"),
		enabled: true,
		now:     time.Now,
	}

	if config.Store != nil {
		settings := config.Store.Settings()
		a.enabled = settings.GetBool(store.SettingDetectionEnabled, true)
		if v, err := settings.Get(store.SettingVolume); err == nil && v != "" {
			engine.SetVolume(settings.GetInt(store.SettingVolume, gesture.DefaultVolume))
		}
	}

	return a
}

// Engine returns the gesture engine.
func (a *App) Engine() *gesture.Engine {
	return a.engine
}

// Subscribe registers fn for events and returns a function that removes it.
func (a *App) Subscribe(fn Listener) func() {
	return a.events.add(fn)
}

// SetEnabled turns gesture processing on or off. Frames keep being polled
// while disabled. Re-enabling starts from a clean gesture state.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if !changed {
		return
	}
	if enabled {
		a.engine.Reset()
	}
	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetBool(store.SettingDetectionEnabled, enabled); err != nil {
			a.logger.Warn("failed to persist detection setting", "error", err)
		}
	}

	a.logger.Info("detection toggled", "enabled", enabled)
	ev := newEvent(EventDetection)
	ev.Enabled = &enabled
	a.events.publish(ev)
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Status returns a copy of the current pipeline state.
func (a *App) Status() Status {
	snap := a.engine.Snapshot()
	st := Status{
		HandStatus:    snap.Zone,
		CurrentVolume: snap.Volume,
		IsPinching:    snap.Clutch,
		Enabled:       a.IsEnabled(),
		LastCommand:   snap.LastCommand,
		LastCommandAt: snap.LastCommandAt,
	}
	if snap.Hand != gesture.HandUnknown.String() {
		hand := snap.Hand
		st.LastHandState = &hand
	}
	return st
}

// Start launches the pipeline and, when a Reader is configured, the
// playback poller. Calling Start on a running app does nothing.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer close(a.done)
		a.runPipeline(ctx)
	}()

	if a.config.Reader != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.runPoller(ctx)
		}()
	}

	a.logger.Info("detection pipeline started")
	return nil
}

// Done is closed when the pipeline stops, either through Stop or because
// the source ran out of frames. It is nil before Start.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.done
}

// Stop halts the pipeline, waits for it and closes the source.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	a.wg.Wait()

	if err := a.config.Source.Close(); err != nil {
		a.logger.Warn("error closing tracking source", "error", err)
	}
	a.logger.Info("detection pipeline stopped")
}
