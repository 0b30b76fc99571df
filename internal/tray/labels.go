package tray

import (
	"fmt"

	"github.com/ayusman/cookify/internal/app"
	"github.com/ayusman/cookify/internal/gesture"
)

// ZoneLabel is the menu text for a zone.
func ZoneLabel(z gesture.ZoneStatus) string {
	switch z {
	case gesture.Active:
		return "● Hand Detected"
	case gesture.Warning:
		return "◐ Hand at Edge"
	default:
		return "○ No Hand"
	}
}

// ToggleLabel is the menu text for the detection toggle.
func ToggleLabel(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

// CommandLabel is the menu text for the last command.
func CommandLabel(cmd *gesture.Command) string {
	if cmd == nil {
		return "Last: none"
	}
	return "Last: " + cmd.String()
}

// VolumeLabel is the menu text for the tracked volume.
func VolumeLabel(v int) string {
	return fmt.Sprintf("Volume: %d%%", v)
}

// NowPlayingLabel is the menu text for the current track.
func NowPlayingLabel(np *app.NowPlaying) string {
	if np == nil {
		return "Not playing"
	}
	prefix := "▶"
	if !np.IsPlaying {
		prefix = "❚❚"
	}
	return fmt.Sprintf("%s %s – %s", prefix, np.Track, np.Artist)
}
