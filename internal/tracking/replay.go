package tracking

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// maxReplayGap caps the pause between two paced frames.
const maxReplayGap = 500 * time.Millisecond

// ReplaySource plays back a recording of tracking service messages, one JSON
// message per line. Non-frame lines replay as "no tracking" ticks.
type ReplaySource struct {
	frames []*Frame
	index  int
	loop   bool
	pace   bool
	last   time.Duration
	paced  bool
	mu     sync.Mutex
	closed bool
}

// NewReplaySource decodes every line of r. When pace is true Poll sleeps for
// the sensor-clock gap between consecutive frames.
func NewReplaySource(r io.Reader, loop, pace bool) (*ReplaySource, error) {
	var frames []*Frame

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		f, err := DecodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	return &ReplaySource{frames: frames, loop: loop, pace: pace}, nil
}

// OpenReplay loads a recording from disk.
func OpenReplay(path string, loop, pace bool) (*ReplaySource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer file.Close()

	return NewReplaySource(file, loop, pace)
}

// Len returns the number of recorded messages.
func (r *ReplaySource) Len() int {
	return len(r.frames)
}

// Poll returns the next recorded frame. io.EOF is returned once a
// non-looping recording is exhausted.
func (r *ReplaySource) Poll(ctx context.Context, timeout time.Duration) (*Frame, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if len(r.frames) == 0 {
		r.mu.Unlock()
		return nil, io.EOF
	}
	if r.index >= len(r.frames) {
		if !r.loop {
			r.mu.Unlock()
			return nil, io.EOF
		}
		r.index = 0
		r.paced = false
	}

	f := r.frames[r.index]
	r.index++

	var wait time.Duration
	if r.pace && f != nil {
		if r.paced && f.Timestamp > r.last {
			wait = min(f.Timestamp-r.last, maxReplayGap)
		}
		r.last = f.Timestamp
		r.paced = true
	}
	r.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return f, nil
}

// Reset restarts playback from the beginning.
func (r *ReplaySource) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = 0
	r.paced = false
}

// Close stops playback.
func (r *ReplaySource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
