package gesture

import (
	"math"
	"time"
)

// Swipe detection parameters.
const (
	// SwipeWindow is the number of velocity samples averaged.
	SwipeWindow = 5
	// SwipeVelocity is the averaged lateral speed, in mm/s, a swipe must exceed.
	SwipeVelocity = 800.0
	// MinSwipeDuration is how long the speed must be held for a swipe to count.
	MinSwipeDuration = 100 * time.Millisecond
)

// Direction is the sign of a lateral swipe.
type Direction int

const (
	SwipeLeft  Direction = -1
	SwipeRight Direction = 1
)

// swipeCandidate is an in-flight swipe: the averaged speed is above threshold
// and has been since start.
type swipeCandidate struct {
	start     time.Time
	direction Direction
}

// SwipeDetector smooths lateral palm velocity over a short window and fires
// once a fast movement ends, provided it lasted long enough.
type SwipeDetector struct {
	window    []float64
	candidate *swipeCandidate
}

// Observe adds one velocity sample. It returns a direction when a swipe
// completes on this sample and the shared cooldown allows it.
func (s *SwipeDetector) Observe(velocity float64, now time.Time, cd *Cooldown) (Direction, bool) {
	if math.IsNaN(velocity) || math.IsInf(velocity, 0) {
		velocity = 0
	}

	if len(s.window) >= SwipeWindow {
		copy(s.window, s.window[1:])
		s.window = s.window[:SwipeWindow-1]
	}
	s.window = append(s.window, velocity)

	mean := s.Mean()
	if math.Abs(mean) > SwipeVelocity {
		if s.candidate == nil {
			dir := SwipeRight
			if mean < 0 {
				dir = SwipeLeft
			}
			s.candidate = &swipeCandidate{start: now, direction: dir}
		}
		return 0, false
	}

	if s.candidate == nil {
		return 0, false
	}

	c := s.candidate
	s.candidate = nil
	if now.Sub(c.start) < MinSwipeDuration || !cd.Ready(now) {
		return 0, false
	}

	cd.Mark(now)
	return c.direction, true
}

// Mean returns the average of the samples in the window.
func (s *SwipeDetector) Mean() float64 {
	if len(s.window) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.window {
		sum += v
	}
	return sum / float64(len(s.window))
}

// Len returns the number of samples currently in the window.
func (s *SwipeDetector) Len() int {
	return len(s.window)
}

// Pending reports whether a swipe candidate is open.
func (s *SwipeDetector) Pending() bool {
	return s.candidate != nil
}

// Discard drops an open candidate without firing.
func (s *SwipeDetector) Discard() {
	s.candidate = nil
}
