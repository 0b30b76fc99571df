package tracking

import (
	"context"
	"sync"
	"time"
)

// MockSource is a test implementation of the Source interface.
// It returns the queued frames in order, then nil frames.
type MockSource struct {
	mu     sync.Mutex
	frames []*Frame
	err    error
	polls  int
	closed bool
}

// NewMockSource creates a MockSource that will return the given frames.
func NewMockSource(frames ...*Frame) *MockSource {
	return &MockSource{frames: frames}
}

// Push appends frames to the queue. A nil entry is a "no tracking" tick.
func (m *MockSource) Push(frames ...*Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frames...)
}

// SetError sets the error that will be returned by Poll.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Polls returns how many times Poll has been called.
func (m *MockSource) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// Poll returns the next queued frame or error.
func (m *MockSource) Poll(ctx context.Context, timeout time.Duration) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.polls++
	if m.closed {
		return nil, ErrClosed
	}
	if m.err != nil {
		return nil, m.err
	}
	if len(m.frames) == 0 {
		return nil, nil
	}
	f := m.frames[0]
	m.frames = m.frames[1:]
	return f, nil
}

// Close marks the source closed.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FrameOf wraps hands into a frame.
func FrameOf(hands ...Hand) *Frame {
	return &Frame{Hands: hands}
}

// baseHand returns a right hand hovering in the middle of the sensor's
// optimal volume with all digits curled.
func baseHand() Hand {
	h := Hand{
		ID:   1,
		Side: "right",
		Palm: Vec3{X: 0, Y: 150, Z: 0},
	}
	for i := range h.Digits {
		h.Digits[i].Type = DigitType(i)
	}
	// Curled fingertips sit just above the palm.
	h.Digits[Thumb].Tip = Vec3{X: -30, Y: 160, Z: -10}
	h.Digits[Index].Tip = Vec3{X: -15, Y: 165, Z: -20}
	h.Digits[Middle].Tip = Vec3{X: 0, Y: 165, Z: -22}
	h.Digits[Ring].Tip = Vec3{X: 15, Y: 165, Z: -20}
	h.Digits[Pinky].Tip = Vec3{X: 30, Y: 160, Z: -15}
	return h
}

// OpenHand returns a preset hand with all five digits extended.
func OpenHand() Hand {
	h := baseHand()
	h.Digits[Thumb].Tip = Vec3{X: -85, Y: 170, Z: -30}
	h.Digits[Index].Tip = Vec3{X: -35, Y: 175, Z: -95}
	h.Digits[Middle].Tip = Vec3{X: 0, Y: 175, Z: -105}
	h.Digits[Ring].Tip = Vec3{X: 25, Y: 172, Z: -95}
	h.Digits[Pinky].Tip = Vec3{X: 50, Y: 168, Z: -75}
	for i := range h.Digits {
		h.Digits[i].Extended = true
	}
	return h
}

// ClosedFist returns a preset hand with no digits extended.
func ClosedFist() Hand {
	return baseHand()
}

// PinchHand returns a preset hand with thumb and index tips touching while
// the remaining three digits are extended.
func PinchHand() Hand {
	h := OpenHand()
	h.Digits[Thumb].Tip = Vec3{X: -40, Y: 168, Z: -60}
	h.Digits[Index].Tip = Vec3{X: -35, Y: 170, Z: -70}
	h.Digits[Thumb].Extended = false
	h.Digits[Index].Extended = false
	return h
}
