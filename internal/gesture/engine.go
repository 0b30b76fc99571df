package gesture

import (
	"sync"
	"time"

	"github.com/ayusman/cookify/internal/tracking"
)

// Clock supplies the engine's notion of now. Readings must not go backwards.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock, which carries a monotonic reading.
var SystemClock Clock = ClockFunc(time.Now)

// DefaultVolume is the volume assumed before anything else is known.
const DefaultVolume = 50

// Output is the result of one engine tick.
type Output struct {
	// Zone is the zone for this tick.
	Zone ZoneStatus
	// ZoneChanged is set when Zone differs from the last reported zone.
	ZoneChanged bool
	// Command is the tick's single command, or nil.
	Command *Command
}

// State is the complete session state of the recognizer. Step is its only
// mutator; a fresh State behaves like a freshly started engine.
type State struct {
	Zone      ZoneStatus
	Volume    int
	Cooldown  Cooldown
	Swipe     SwipeDetector
	OpenClose OpenCloseDetector
	Clutch    VolumeClutch

	LastCommand   *Command
	LastCommandAt time.Time
}

// NewState returns a state with no hand seen and the given starting volume.
func NewState(volume int, cooldown time.Duration) *State {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &State{
		Zone:     Inactive,
		Volume:   ClampVolume(volume),
		Cooldown: Cooldown{Interval: cooldown},
	}
}

// Step processes one frame observed at now. A nil frame and a frame
// without hands are both "no hand".
func (s *State) Step(f *tracking.Frame, now time.Time) Output {
	hand := f.FirstHand()
	if hand == nil {
		s.Clutch.Release()
		return s.report(Inactive, nil, now)
	}

	zone := Classify(hand.Palm)

	wasEngaged := s.Clutch.Engaged()
	pinching := IsPinching(hand)
	if volume, ok := s.Clutch.Observe(pinching, hand.Palm.Y, s.Volume); ok {
		s.Volume = volume
		return s.report(zone, &Command{Action: SetVolume, Volume: volume}, now)
	}

	if pinching || wasEngaged {
		// Gestures in flight when the clutch engaged never fire.
		s.Swipe.Discard()
		return s.report(zone, nil, now)
	}

	if dir, ok := s.Swipe.Observe(hand.Velocity.X, now, &s.Cooldown); ok {
		action := Next
		if dir == SwipeLeft {
			action = Previous
		}
		return s.report(zone, &Command{Action: action}, now)
	}

	if cmd, ok := s.OpenClose.Observe(hand.ExtendedCount(), now, &s.Cooldown); ok {
		return s.report(zone, &cmd, now)
	}

	return s.report(zone, nil, now)
}

func (s *State) report(zone ZoneStatus, cmd *Command, now time.Time) Output {
	out := Output{Zone: zone, ZoneChanged: zone != s.Zone, Command: cmd}
	s.Zone = zone
	if cmd != nil {
		c := *cmd
		s.LastCommand = &c
		s.LastCommandAt = now
	}
	return out
}

// Config configures an Engine.
type Config struct {
	// Clock defaults to SystemClock.
	Clock Clock
	// Volume is the starting volume. Zero means DefaultVolume; use
	// SetVolume to start muted.
	Volume int
	// Cooldown is the minimum gap between discrete commands.
	Cooldown time.Duration
}

// Snapshot is a copy of the engine state that is safe to hand to readers.
type Snapshot struct {
	Zone          ZoneStatus `json:"zone"`
	Volume        int        `json:"volume"`
	Clutch        bool       `json:"clutch_engaged"`
	Hand          string     `json:"hand_state"`
	LastCommand   *Command   `json:"last_command,omitempty"`
	LastCommandAt time.Time  `json:"last_command_at,omitzero"`
}

// Engine serializes access to a State and stamps each frame with the
// clock. It is safe for one writer and any number of snapshot readers.
type Engine struct {
	mu     sync.Mutex
	clock  Clock
	config Config
	state  *State
}

// NewEngine creates an engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Volume == 0 {
		cfg.Volume = DefaultVolume
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Engine{
		clock:  cfg.Clock,
		config: cfg,
		state:  NewState(cfg.Volume, cfg.Cooldown),
	}
}

// ProcessFrame runs one tick.
func (e *Engine) ProcessFrame(f *tracking.Frame) Output {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Step(f, e.clock.Now())
}

// SetVolume records the volume reported by the playback service. It is
// ignored while the clutch is engaged so that a poll cannot fight the hand.
// It reports whether the value was taken.
func (e *Engine) SetVolume(v int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Clutch.Engaged() {
		return false
	}
	e.state.Volume = ClampVolume(v)
	return true
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Zone:          e.state.Zone,
		Volume:        e.state.Volume,
		Clutch:        e.state.Clutch.Engaged(),
		Hand:          e.state.OpenClose.State().String(),
		LastCommandAt: e.state.LastCommandAt,
	}
	if e.state.LastCommand != nil {
		c := *e.state.LastCommand
		snap.LastCommand = &c
	}
	return snap
}

// Reset drops all gesture state. The tracked volume and the last reported
// zone are kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := NewState(e.state.Volume, e.config.Cooldown)
	next.Zone = e.state.Zone
	e.state = next
}
