package app

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/cookify/internal/playback"
)

// NowPlaying is the cached player state.
type NowPlaying struct {
	TrackID    string    `json:"track_id"`
	Track      string    `json:"track"`
	Artist     string    `json:"artist"`
	AlbumURL   string    `json:"album_url,omitempty"`
	ThumbURL   string    `json:"thumb_url,omitempty"`
	IsPlaying  bool      `json:"is_playing"`
	ProgressMS int       `json:"progress_ms"`
	DurationMS int       `json:"duration_ms"`
	Device     string    `json:"device,omitempty"`
	Volume     *int      `json:"volume,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// QueueItem is one upcoming track.
type QueueItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	DurationMS int    `json:"duration_ms"`
	AlbumArt   string `json:"album_art,omitempty"`
}

// QueueSnapshot is the cached queue.
type QueueSnapshot struct {
	Items          []QueueItem `json:"queue"`
	CurrentTrackID string      `json:"current_track_id,omitempty"`
	UpdatedAt      time.Time   `json:"-"`
}

// NowPlaying returns the last fetched player state, or nil when nothing is
// playing or nothing has been fetched yet.
func (a *App) NowPlaying() *NowPlaying {
	a.playMu.RLock()
	defer a.playMu.RUnlock()
	if a.nowPlaying == nil {
		return nil
	}
	np := *a.nowPlaying
	return &np
}

// Queue returns the last fetched queue.
func (a *App) Queue() QueueSnapshot {
	a.playMu.RLock()
	defer a.playMu.RUnlock()
	q := a.queue
	q.Items = append([]QueueItem(nil), a.queue.Items...)
	return q
}

// runPoller keeps the now-playing cache fresh. The queue changes rarely
// and is fetched less often.
func (a *App) runPoller(ctx context.Context) {
	a.RefreshPlayback(ctx)
	a.RefreshQueue(ctx)

	playTicker := time.NewTicker(a.config.PlaybackInterval)
	defer playTicker.Stop()
	queueTicker := time.NewTicker(a.config.QueueInterval)
	defer queueTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-playTicker.C:
			a.RefreshPlayback(ctx)
		case <-queueTicker.C:
			a.RefreshQueue(ctx)
		}
	}
}

// RefreshPlayback fetches the player state now. The device volume becomes
// the engine's reference volume unless the clutch is held or a volume
// command went out less than one playback interval ago. The player may
// still report the old level in that window.
func (a *App) RefreshPlayback(ctx context.Context) {
	if a.config.Reader == nil {
		return
	}

	pb, err := a.config.Reader.CurrentPlayback(ctx)
	if err != nil {
		a.logPollError("playback", err)
		return
	}

	var np *NowPlaying
	if pb != nil && pb.Item != nil {
		np = &NowPlaying{
			TrackID:    string(pb.Item.ID),
			Track:      pb.Item.Name,
			Artist:     playback.ArtistName(pb.Item),
			AlbumURL:   playback.LargestImage(pb.Item),
			ThumbURL:   playback.SmallestImage(pb.Item),
			IsPlaying:  pb.Playing,
			ProgressMS: int(pb.Progress),
			DurationMS: int(pb.Item.Duration),
			Device:     pb.Device.Name,
			UpdatedAt:  time.Now(),
		}
		if pb.Device.ID != "" {
			vol := int(pb.Device.Volume)
			np.Volume = &vol
		}
	}

	a.playMu.Lock()
	prev := a.nowPlaying
	a.nowPlaying = np
	settling := a.now().Sub(a.volumeSentAt) < a.config.PlaybackInterval
	a.playMu.Unlock()

	if np != nil && np.Volume != nil {
		if settling {
			a.logger.Debug("skipping volume sync after volume command", "device_volume", *np.Volume)
		} else {
			a.engine.SetVolume(*np.Volume)
		}
	}

	if playbackChanged(prev, np) {
		ev := newEvent(EventPlayback)
		if np != nil {
			c := *np
			ev.NowPlaying = &c
		}
		a.events.publish(ev)
	}
}

// RefreshQueue fetches the queue now.
func (a *App) RefreshQueue(ctx context.Context) {
	if a.config.Reader == nil {
		return
	}

	q, err := a.config.Reader.Queue(ctx)
	if err != nil {
		a.logPollError("queue", err)
		return
	}

	snap := QueueSnapshot{UpdatedAt: time.Now()}
	if q != nil {
		snap.CurrentTrackID = string(q.CurrentlyPlaying.ID)
		for i := range q.Items {
			t := &q.Items[i]
			snap.Items = append(snap.Items, QueueItem{
				ID:         string(t.ID),
				Name:       t.Name,
				Artist:     playback.ArtistName(t),
				DurationMS: int(t.Duration),
				AlbumArt:   playback.SmallestImage(t),
			})
		}
	}

	a.playMu.Lock()
	a.queue = snap
	a.playMu.Unlock()
}

func (a *App) logPollError(what string, err error) {
	if errors.Is(err, playback.ErrNotAuthenticated) || errors.Is(err, context.Canceled) {
		a.logger.Debug("skipping player poll", "what", what, "reason", err)
		return
	}
	a.logger.Warn("error polling player", "what", what, "error", err)
}

func playbackChanged(prev, next *NowPlaying) bool {
	if prev == nil || next == nil {
		return prev != next
	}
	return prev.TrackID != next.TrackID || prev.IsPlaying != next.IsPlaying
}
