// Package tray provides a system tray status menu for cookify.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/cookify/internal/app"
	"github.com/ayusman/cookify/internal/gesture"
)

// view holds the menu texts. It is kept even before the menu exists so
// that updates arriving early are shown once the tray is ready.
type view struct {
	enabled    bool
	zone       string
	last       string
	volume     string
	nowPlaying string
}

// Tray represents the system tray application.
type Tray struct {
	onToggle        func(enabled bool)
	onOpenDashboard func()
	onQuit          func()
	mu              sync.RWMutex
	view            view

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuZone       *systray.MenuItem
	menuLast       *systray.MenuItem
	menuVolume     *systray.MenuItem
	menuNowPlaying *systray.MenuItem
}

// New creates a new Tray showing st.
func New(st app.Status) *Tray {
	return &Tray{
		view: view{
			enabled:    st.Enabled,
			zone:       ZoneLabel(st.HandStatus),
			last:       CommandLabel(st.LastCommand),
			volume:     VolumeLabel(st.CurrentVolume),
			nowPlaying: NowPlayingLabel(nil),
		},
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenDashboard sets the callback for the "Open Dashboard…" item.
func (t *Tray) OnOpenDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Cookify")
	systray.SetTooltip("Cookify gesture control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(ToggleLabel(t.view.enabled), "Toggle gesture detection")
	systray.AddSeparator()

	t.menuZone = systray.AddMenuItem(t.view.zone, "Hand position")
	t.menuZone.Disable()
	t.menuLast = systray.AddMenuItem(t.view.last, "Last command")
	t.menuLast.Disable()
	t.menuVolume = systray.AddMenuItem(t.view.volume, "Volume")
	t.menuVolume.Disable()
	t.menuNowPlaying = systray.AddMenuItem(t.view.nowPlaying, "Now playing")
	t.menuNowPlaying.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard…", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Cookify")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuDashboard.ClickedCh:
				t.handleOpenDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	enabled := !t.view.enabled
	callback := t.onToggle
	t.mu.Unlock()

	t.SetEnabled(enabled)

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpenDashboard() {
	t.mu.RLock()
	callback := t.onOpenDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// HandleEvent updates the menu from an app event. It is an app.Listener.
func (t *Tray) HandleEvent(ev app.Event) {
	switch ev.Type {
	case app.EventZone:
		if ev.Zone != nil {
			t.set(&t.view.zone, ZoneLabel(*ev.Zone))
		}
	case app.EventCommand:
		if ev.Command != nil {
			t.set(&t.view.last, CommandLabel(ev.Command))
			if ev.Command.Action == gesture.SetVolume {
				t.set(&t.view.volume, VolumeLabel(ev.Command.Volume))
			}
		}
	case app.EventPlayback:
		t.set(&t.view.nowPlaying, NowPlayingLabel(ev.NowPlaying))
		if ev.NowPlaying != nil && ev.NowPlaying.Volume != nil {
			t.set(&t.view.volume, VolumeLabel(*ev.NowPlaying.Volume))
		}
	case app.EventDetection:
		if ev.Enabled != nil {
			t.SetEnabled(*ev.Enabled)
		}
	}
}

// SetEnabled updates the toggle item.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(ToggleLabel(enabled))
	}
}

// set stores a label and shows it if the menu exists.
func (t *Tray) set(field *string, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	*field = label
	t.apply()
}

// apply pushes the view to the menu items that exist. Callers hold mu.
func (t *Tray) apply() {
	if t.menuZone != nil {
		t.menuZone.SetTitle(t.view.zone)
	}
	if t.menuLast != nil {
		t.menuLast.SetTitle(t.view.last)
	}
	if t.menuVolume != nil {
		t.menuVolume.SetTitle(t.view.volume)
	}
	if t.menuNowPlaying != nil {
		t.menuNowPlaying.SetTitle(t.view.nowPlaying)
	}
}

// labels returns a copy of the current view.
func (t *Tray) labels() view {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view
}
