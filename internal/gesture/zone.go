// Package gesture turns hand-tracking frames into playback commands.
//
// The engine looks at one frame at a time. It classifies where the hand is
// relative to the sensor, runs the pinch-to-adjust volume clutch, and,
// while no clutch is held, watches for lateral swipes (next/previous) and
// open/closed hand transitions (play/pause). At most one command comes out
// of any frame.
package gesture

import (
	"fmt"
	"math"

	"github.com/ayusman/cookify/internal/tracking"
)

// ZoneStatus describes how usable the hand position is.
type ZoneStatus int

const (
	// Inactive means no hand, or a hand outside the usable volume.
	Inactive ZoneStatus = iota
	// Warning means the hand is near the edge of the usable volume.
	Warning
	// Active means the hand is inside the optimal volume.
	Active
)

// Optimal interaction box half-extents, in millimeters from the sensor.
const (
	OptimalX = 150.0
	OptimalY = 200.0
	OptimalZ = 200.0

	// WarningRatio is how far past the optimal box a hand may go before it
	// is considered out of range.
	WarningRatio = 1.5
)

// String returns the lowercase zone name.
func (z ZoneStatus) String() string {
	switch z {
	case Active:
		return "active"
	case Warning:
		return "warning"
	default:
		return "inactive"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (z ZoneStatus) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (z *ZoneStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "active":
		*z = Active
	case "warning":
		*z = Warning
	case "inactive":
		*z = Inactive
	default:
		return fmt.Errorf("unknown zone %q", b)
	}
	return nil
}

// Classify maps a palm position to a zone. It keeps no state.
func Classify(p tracking.Vec3) ZoneStatus {
	ratio := max(
		math.Abs(p.X)/OptimalX,
		math.Abs(p.Y)/OptimalY,
		math.Abs(p.Z)/OptimalZ,
	)

	switch {
	case ratio <= 1.0:
		return Active
	case ratio <= WarningRatio:
		return Warning
	default:
		return Inactive
	}
}
