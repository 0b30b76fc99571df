package gesture

import "math"

// Volume clutch parameters.
const (
	// VolumeStep is the quantization of clutch volume changes.
	VolumeStep = 10
	// ClutchTravel is the palm travel, in millimeters, for a full 100 point
	// volume change.
	ClutchTravel = 200.0
	// MaxVolume is the upper volume bound.
	MaxVolume = 100
)

// clutchSession lives while the pinch is held.
type clutchSession struct {
	refHeight float64
	refVolume int
	// anchored is false until a finite palm height has been seen.
	anchored bool
}

// VolumeClutch implements pinch-and-hold volume control. Engaging captures
// the palm height and current volume; moving the hand up or down while
// pinching changes the volume relative to that reference, in steps of 10.
type VolumeClutch struct {
	session *clutchSession
}

// Observe advances the clutch by one frame. It returns a new volume only
// when it is at least one step away from current.
func (v *VolumeClutch) Observe(pinching bool, palmHeight float64, current int) (int, bool) {
	if !pinching {
		v.session = nil
		return 0, false
	}

	finite := !math.IsNaN(palmHeight) && !math.IsInf(palmHeight, 0)

	if v.session == nil {
		v.session = &clutchSession{
			refHeight: palmHeight,
			refVolume: ClampVolume(current),
			anchored:  finite,
		}
		return 0, false
	}

	if !finite {
		return 0, false
	}
	if !v.session.anchored {
		v.session.refHeight = palmHeight
		v.session.anchored = true
		return 0, false
	}

	delta := (palmHeight - v.session.refHeight) / ClutchTravel * MaxVolume
	steps := math.RoundToEven((float64(v.session.refVolume) + delta) / VolumeStep)
	candidate := ClampVolume(int(max(min(steps, MaxVolume/VolumeStep), 0)) * VolumeStep)

	if abs(candidate-current) < VolumeStep {
		return 0, false
	}
	return candidate, true
}

// Engaged reports whether a clutch session is open.
func (v *VolumeClutch) Engaged() bool {
	return v.session != nil
}

// Release ends any open session.
func (v *VolumeClutch) Release() {
	v.session = nil
}

// ClampVolume limits v to [0, MaxVolume].
func ClampVolume(v int) int {
	return max(0, min(v, MaxVolume))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
