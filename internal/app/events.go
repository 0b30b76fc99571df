package app

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/cookify/internal/gesture"
)

// EventType names what an Event reports.
type EventType string

const (
	EventZone      EventType = "zone"
	EventCommand   EventType = "command"
	EventPlayback  EventType = "playback"
	EventDetection EventType = "detection"
)

// Event is pushed to subscribers as things change.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`
	Time time.Time `json:"time"`

	Zone       *gesture.ZoneStatus `json:"zone,omitempty"`
	Command    *gesture.Command    `json:"command,omitempty"`
	Error      string              `json:"error,omitempty"`
	NowPlaying *NowPlaying         `json:"now_playing,omitempty"`
	Enabled    *bool               `json:"enabled,omitempty"`
}

func newEvent(t EventType) Event {
	return Event{ID: uuid.NewString(), Type: t, Time: time.Now()}
}

// Listener receives events on the pipeline goroutine. It must not block.
type Listener func(Event)

type listeners struct {
	mu   sync.RWMutex
	next int
	fns  map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) publish(ev Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, fn := range l.fns {
		fn(ev)
	}
}
