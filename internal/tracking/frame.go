// Package tracking provides hand-tracking frame types and the sources that
// produce them.
package tracking

import (
	"math"
	"time"
)

// DigitType identifies a finger, following the Leap Motion convention.
type DigitType int

// Digit indices.
const (
	Thumb DigitType = iota
	Index
	Middle
	Ring
	Pinky
	NumDigits
)

var digitNames = [NumDigits]string{"thumb", "index", "middle", "ring", "pinky"}

// String returns the lowercase finger name.
func (d DigitType) String() string {
	if d < 0 || d >= NumDigits {
		return "unknown"
	}
	return digitNames[d]
}

// Vec3 is a point or vector in sensor space, in millimeters (or mm/s for
// velocities). The origin is the center of the sensor, Y points up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the Euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Digit is one tracked finger.
type Digit struct {
	Type     DigitType `json:"type"`
	Extended bool      `json:"extended"`
	// Tip is the end of the distal bone.
	Tip Vec3 `json:"tip"`
}

// Hand is a single tracked hand.
type Hand struct {
	ID       int              `json:"id"`
	Side     string           `json:"side"` // "left" or "right"
	Palm     Vec3             `json:"palm"`
	Velocity Vec3             `json:"velocity"`
	Digits   [NumDigits]Digit `json:"digits"`
}

// ExtendedCount returns how many digits are reported extended.
func (h *Hand) ExtendedCount() int {
	n := 0
	for _, d := range h.Digits {
		if d.Extended {
			n++
		}
	}
	return n
}

// Frame is one sensor sample.
type Frame struct {
	ID int64 `json:"id"`
	// Timestamp is the sensor clock, not wall time.
	Timestamp time.Duration `json:"timestamp"`
	Hands     []Hand        `json:"hands"`
}

// FirstHand returns the first tracked hand, or nil for a nil frame or a
// frame without hands.
func (f *Frame) FirstHand() *Hand {
	if f == nil || len(f.Hands) == 0 {
		return nil
	}
	return &f.Hands[0]
}
