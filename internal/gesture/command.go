package gesture

import (
	"fmt"
	"time"
)

// Action is a playback command kind.
type Action string

const (
	Play      Action = "play"
	Pause     Action = "pause"
	Next      Action = "next"
	Previous  Action = "previous"
	SetVolume Action = "volume"
)

// Command is a single playback command decided by the engine.
type Command struct {
	Action Action `json:"action"`
	// Volume is the target level for SetVolume, 0-100.
	Volume int `json:"volume,omitempty"`
}

// String returns a human readable form, e.g. "next" or "volume 60%".
func (c Command) String() string {
	if c.Action == SetVolume {
		return fmt.Sprintf("%s %d%%", c.Action, c.Volume)
	}
	return string(c.Action)
}

// DefaultCooldown is the minimum gap between two discrete commands.
const DefaultCooldown = 500 * time.Millisecond

// Cooldown is the clock shared by the swipe and open/close detectors.
// The zero value has never fired, so the first command is never held back.
type Cooldown struct {
	Interval time.Duration
	last     time.Time
}

// Ready reports whether a discrete command may fire at now.
func (c *Cooldown) Ready(now time.Time) bool {
	return c.last.IsZero() || now.Sub(c.last) >= c.Interval
}

// Mark records that a command fired at now.
func (c *Cooldown) Mark(now time.Time) {
	c.last = now
}

// Last returns when the last discrete command fired.
func (c *Cooldown) Last() time.Time {
	return c.last
}
