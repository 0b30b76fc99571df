package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ayusman/cookify/internal/app"
	"github.com/ayusman/cookify/internal/playback"
	"github.com/ayusman/cookify/internal/server"
	"github.com/ayusman/cookify/internal/store"
	"github.com/ayusman/cookify/testdata"
)

// fakePlayer is a minimal Spotify Web API that records player commands.
type fakePlayer struct {
	mu    sync.Mutex
	calls []string
}

func (p *fakePlayer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/me/player":
		w.WriteHeader(http.StatusNoContent)
	case "/me/player/queue":
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"currently_playing": null, "queue": []}`))
	default:
		call := r.Method + " " + r.URL.Path
		if v := r.URL.Query().Get("volume_percent"); v != "" {
			call += " " + v
		}
		p.mu.Lock()
		p.calls = append(p.calls, call)
		p.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (p *fakePlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type stack struct {
	player *fakePlayer
	store  *store.Store
	app    *app.App
	ts     *httptest.Server
}

func newStack(t *testing.T, recording string) *stack {
	t.Helper()

	player := &fakePlayer{}
	api := httptest.NewServer(player)
	t.Cleanup(api.Close)

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tokens := playback.NewDBTokenStore(s.Tokens(), "spotify")
	require.NoError(t, tokens.Save(&oauth2.Token{
		AccessToken: "e2e-token",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	spotify, err := playback.NewSpotifyClient(playback.SpotifyConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		APIBase:      api.URL,
		HTTPClient:   api.Client(),
		Tokens:       tokens,
	})
	require.NoError(t, err)

	src, err := testdata.OpenRecording(recording, false, true)
	require.NoError(t, err)

	application := app.New(app.Config{
		Source: src,
		Sink:   spotify,
		Reader: spotify,
		Store:  s,
	})
	t.Cleanup(application.Stop)

	srv := server.New(server.Config{App: application, Spotify: spotify})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Close)

	return &stack{player: player, store: s, app: application, ts: ts}
}

func (s *stack) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-s.app.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("replay did not finish")
	}
}

func TestE2E_SwipeThenPause(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st := newStack(t, testdata.SwipePause)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(st.ts.URL, "http")+"/api/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	var mu sync.Mutex
	var events []app.Event
	go func() {
		for {
			var ev app.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}
	}()

	require.NoError(t, st.app.Start(context.Background()))
	st.waitDone(t)

	assert.Equal(t, []string{"POST /me/player/next", "PUT /me/player/pause"}, st.player.Calls())

	t.Run("StatusReflectsReplay", func(t *testing.T) {
		resp, err := st.ts.Client().Get(st.ts.URL + "/api/status")
		require.NoError(t, err)
		defer resp.Body.Close()

		var status struct {
			HandStatus    string `json:"hand_status"`
			LastHandState string `json:"last_hand_state"`
			LastCommand   struct {
				Action string `json:"action"`
			} `json:"last_command"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.Equal(t, "inactive", status.HandStatus)
		assert.Equal(t, "closed", status.LastHandState)
		assert.Equal(t, "pause", status.LastCommand.Action)
	})

	t.Run("EventsStreamed", func(t *testing.T) {
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			var commands []string
			for _, ev := range events {
				if ev.Type == app.EventCommand && ev.Command != nil {
					commands = append(commands, string(ev.Command.Action))
				}
			}
			return len(commands) == 2 && commands[0] == "next" && commands[1] == "pause"
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("NoPlayback", func(t *testing.T) {
		resp, err := st.ts.Client().Get(st.ts.URL + "/api/playback")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "No active playback", body["error"])
	})
}

func TestE2E_PinchVolume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st := newStack(t, testdata.PinchVolume)

	require.NoError(t, st.app.Start(context.Background()))
	st.waitDone(t)

	assert.Equal(t, []string{"PUT /me/player/volume 60", "PUT /me/player/volume 70"}, st.player.Calls())
	assert.Equal(t, 70, st.app.Status().CurrentVolume)
	assert.Equal(t, 70, st.store.Settings().GetInt(store.SettingVolume, 0), "volume is remembered across restarts")
}

func TestE2E_DetectionToggle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st := newStack(t, testdata.SwipePause)

	req, err := http.NewRequest(http.MethodPut, st.ts.URL+"/api/detection", strings.NewReader(`{"enabled": false}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := st.ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, st.app.Start(context.Background()))
	st.waitDone(t)

	assert.Empty(t, st.player.Calls(), "no commands while detection is off")
}
