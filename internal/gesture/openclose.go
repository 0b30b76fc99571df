package gesture

import "time"

// ClosedMaxExtended is the most extended digits a closed hand may show.
const ClosedMaxExtended = 2

// HandState is the last recorded open/closed state.
type HandState int

const (
	HandUnknown HandState = iota
	HandOpen
	HandClosed
)

// String returns "unknown", "open" or "closed".
func (h HandState) String() string {
	switch h {
	case HandOpen:
		return "open"
	case HandClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// OpenCloseDetector maps open/closed hand transitions to Play and Pause.
type OpenCloseDetector struct {
	state HandState
}

// Observe records the hand state for the given extended-digit count.
// A transition fires Pause (to closed) or Play (to open) when the cooldown
// allows it. A transition seen during cooldown is not recorded, so it is
// picked up again once the cooldown lifts.
func (d *OpenCloseDetector) Observe(extended int, now time.Time, cd *Cooldown) (Command, bool) {
	next := HandOpen
	if extended <= ClosedMaxExtended {
		next = HandClosed
	}

	if d.state == HandUnknown {
		d.state = next
		return Command{}, false
	}

	if next == d.state || !cd.Ready(now) {
		return Command{}, false
	}

	d.state = next
	cd.Mark(now)
	if next == HandClosed {
		return Command{Action: Pause}, true
	}
	return Command{Action: Play}, true
}

// State returns the last recorded hand state.
func (d *OpenCloseDetector) State() HandState {
	return d.state
}
