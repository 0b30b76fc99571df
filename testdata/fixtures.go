// Package testdata holds recorded tracking sessions for tests and demos.
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/ayusman/cookify/internal/tracking"
)

//go:embed recordings/*.jsonl
var recordingsFS embed.FS

// Recording names.
const (
	// SwipePause is an open hand that swipes right, rests, closes into a
	// fist and leaves. It yields Next then Pause.
	SwipePause = "swipe_pause"
	// PinchVolume is a pinch raised by 40 mm from volume 50. It yields
	// volume 60 then 70.
	PinchVolume = "pinch_volume"
)

// LoadRecording returns the raw JSON lines of a recording.
func LoadRecording(name string) ([]byte, error) {
	data, err := recordingsFS.ReadFile(path.Join("recordings", name+".jsonl"))
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	return data, nil
}

// OpenRecording returns a replay source for a recording.
func OpenRecording(name string, loop, pace bool) (*tracking.ReplaySource, error) {
	data, err := LoadRecording(name)
	if err != nil {
		return nil, err
	}
	return tracking.NewReplaySource(bytes.NewReader(data), loop, pace)
}

// Recordings lists the available recording names.
func Recordings() ([]string, error) {
	entries, err := recordingsFS.ReadDir("recordings")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".jsonl"))
	}
	return names, nil
}
