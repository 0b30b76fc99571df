package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/ayusman/cookify/internal/gesture"
	"github.com/ayusman/cookify/internal/store"
)

// fakeSpotify records API calls and serves canned responses.
type fakeSpotify struct {
	mu       sync.Mutex
	calls    []string
	bodies   []string
	auth     []string
	handlers map[string]http.HandlerFunc

	tokenCalls int
	tokenForm  url.Values
}

func newFakeSpotify(t *testing.T) (*fakeSpotify, *httptest.Server) {
	t.Helper()
	f := &fakeSpotify{handlers: map[string]http.HandlerFunc{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		f.mu.Lock()
		f.tokenCalls++
		f.tokenForm = r.PostForm
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600,"refresh_token":"refresh-2"}`)
	})
	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		key := r.Method + " " + r.URL.Path

		f.mu.Lock()
		call := key
		if r.URL.RawQuery != "" {
			call += "?" + r.URL.RawQuery
		}
		f.calls = append(f.calls, call)
		f.bodies = append(f.bodies, string(body))
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		h := f.handlers[key]
		f.mu.Unlock()

		if h == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeSpotify) handle(key string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[key] = h
}

func (f *fakeSpotify) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSpotify) LastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.auth) == 0 {
		return ""
	}
	return f.auth[len(f.auth)-1]
}

func (f *fakeSpotify) LastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[len(f.bodies)-1]
}

func (f *fakeSpotify) TokenRequests() (int, url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls, f.tokenForm
}

func jsonResponse(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, tokens TokenStore) *SpotifyClient {
	t.Helper()
	c, err := NewSpotifyClient(SpotifyConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/api/spotify/callback",
		APIBase:      srv.URL + "/v1",
		AuthURL:      srv.URL + "/authorize",
		TokenURL:     srv.URL + "/api/token",
		HTTPClient:   srv.Client(),
		Tokens:       tokens,
	})
	require.NoError(t, err)
	return c
}

func validTokens() *MemoryTokenStore {
	m := &MemoryTokenStore{}
	m.Save(&oauth2.Token{
		AccessToken:  "stored",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	})
	return m
}

func TestNewSpotifyClient_RequiresCredentials(t *testing.T) {
	_, err := NewSpotifyClient(SpotifyConfig{ClientID: "only-id"})
	assert.Error(t, err)
}

func TestSpotifyClient_NotAuthenticated(t *testing.T) {
	_, srv := newFakeSpotify(t)
	c := newTestClient(t, srv, nil)

	assert.False(t, c.Authenticated())
	err := c.Dispatch(context.Background(), gesture.Command{Action: gesture.Play})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSpotifyClient_Dispatch(t *testing.T) {
	fake, srv := newFakeSpotify(t)
	c := newTestClient(t, srv, validTokens())
	require.True(t, c.Authenticated())

	ctx := context.Background()
	for _, cmd := range []gesture.Command{
		{Action: gesture.Play},
		{Action: gesture.Pause},
		{Action: gesture.Next},
		{Action: gesture.Previous},
		{Action: gesture.SetVolume, Volume: 60},
	} {
		require.NoError(t, c.Dispatch(ctx, cmd), "dispatch %s", cmd)
	}

	assert.Equal(t, []string{
		"PUT /v1/me/player/play",
		"PUT /v1/me/player/pause",
		"POST /v1/me/player/next",
		"POST /v1/me/player/previous",
		"PUT /v1/me/player/volume?volume_percent=60",
	}, fake.Calls())

	assert.Equal(t, "Bearer stored", fake.LastAuth())
}

func TestSpotifyClient_DispatchUnknown(t *testing.T) {
	_, srv := newFakeSpotify(t)
	c := newTestClient(t, srv, validTokens())

	assert.Error(t, c.Dispatch(context.Background(), gesture.Command{Action: "rewind"}))
}

func TestSpotifyClient_APIError(t *testing.T) {
	fake, srv := newFakeSpotify(t)
	fake.handle("PUT /v1/me/player/pause", jsonResponse(http.StatusNotFound,
		`{"error":{"status":404,"message":"Player command failed: No active device found","reason":"NO_ACTIVE_DEVICE"}}`))
	c := newTestClient(t, srv, validTokens())

	err := c.Pause(context.Background())

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, APIStatus(err))
	assert.Contains(t, err.Error(), "No active device found")
	assert.NotErrorIs(t, err, ErrNotAuthenticated)
}

func TestSpotifyClient_APIErrorWithoutBody(t *testing.T) {
	fake, srv := newFakeSpotify(t)
	fake.handle("POST /v1/me/player/next", jsonResponse(http.StatusBadGateway, ``))
	c := newTestClient(t, srv, validTokens())

	assert.Error(t, c.Next(context.Background()))
}

func TestSpotifyClient_RejectedToken(t *testing.T) {
	fake, srv := newFakeSpotify(t)
	fake.handle("PUT /v1/me/player/volume", jsonResponse(http.StatusUnauthorized,
		`{"error":{"status":401,"message":"The access token expired"}}`))
	c := newTestClient(t, srv, validTokens())

	err := c.SetVolume(context.Background(), 30)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAPIStatus(t *testing.T) {
	assert.Equal(t, 0, APIStatus(nil))
	assert.Equal(t, 0, APIStatus(errors.New("boom")))
	assert.Equal(t, 429, APIStatus(fmt.Errorf("queue: %w", spotify.Error{Status: 429, Message: "slow down"})))
}

func TestSpotifyClient_CurrentPlayback(t *testing.T) {
	fake, srv := newFakeSpotify(t)
	c := newTestClient(t, srv, validTokens())
	ctx := context.Background()

	// 204 means nothing is playing.
	pb, err := c.CurrentPlayback(ctx)
	require.NoError(t, err)
	assert.Nil(t, pb)

	fake.handle("GET /v1/me/player", jsonResponse(http.StatusOK, `{
		"is_playing": true,
		"progress_ms": 42000,
		"device": {"id": "d1", "name": "Kitchen", "is_active": true, "volume_percent": 35},
		"item": {
			"id": "t1", "name": "Feeling Good", "duration_ms": 176000,
			"artists": [{"name": "Nina Simone"}],
			"album": {"name": "I Put a Spell on You", "images": [{"url": "https://i.scdn.co/large", "width": 640}]}
		}
	}`))

	pb, err = c.CurrentPlayback(ctx)
	require.NoError(t, err)
	require.NotNil(t, pb)
	require.NotNil(t, pb.Item)
	assert.True(t, pb.Playing)
	assert.EqualValues(t, 42000, pb.Progress)
	assert.Equal(t, "Feeling Good", pb.Item.Name)
	assert.Equal(t, "Nina Simone", ArtistName(pb.Item))
	assert.Equal(t, "https://i.scdn.co/large", LargestImage(pb.Item))
	assert.EqualValues(t, 35, pb.Device.Volume)
}

func TestSpotifyClient_Queue(t *testing.T) {
	fake, srv := newFakeSpotify(t)
	fake.handle("GET /v1/me/player/queue", jsonResponse(http.StatusOK, `{
		"currently_playing": {"id": "t1", "name": "Now"},
		"queue": [{"id": "t2", "name": "Next up", "duration_ms": 1000}, {"id": "t3", "name": "Later"}]
	}`))
	c := newTestClient(t, srv, validTokens())

	q, err := c.Queue(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, "t1", q.CurrentlyPlaying.ID)
	require.Len(t, q.Items, 2)
	assert.Equal(t, "Next up", q.Items[0].Name)
}

func TestSpotifyClient_StartPlaylist(t *testing.T) {
	fake, srv := newFakeSpotify(t)
	c := newTestClient(t, srv, validTokens())
	ctx := context.Background()

	fake.handle("GET /v1/me/player/devices", jsonResponse(http.StatusOK, `{"devices": []}`))
	_, err := c.StartPlaylist(ctx, "spotify:playlist:abc")
	assert.ErrorIs(t, err, ErrNoDevice)

	fake.handle("GET /v1/me/player/devices", jsonResponse(http.StatusOK,
		`{"devices": [{"id": "d1", "name": "Laptop"}, {"id": "d2", "name": "Phone"}]}`))
	device, err := c.StartPlaylist(ctx, "spotify:playlist:abc")
	require.NoError(t, err)
	assert.Equal(t, "Laptop", device.Name)

	calls := fake.Calls()
	assert.Equal(t, "PUT /v1/me/player/play?device_id=d1", calls[len(calls)-1])

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(fake.LastBody()), &sent))
	assert.Equal(t, "spotify:playlist:abc", sent["context_uri"])
}

func TestSpotifyClient_CurrentUser(t *testing.T) {
	fake, srv := newFakeSpotify(t)
	fake.handle("GET /v1/me", jsonResponse(http.StatusOK, `{"id": "u1", "display_name": "Cook"}`))
	c := newTestClient(t, srv, validTokens())

	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cook", u.DisplayName)
}

func TestSpotifyClient_AuthURL(t *testing.T) {
	_, srv := newFakeSpotify(t)
	c := newTestClient(t, srv, nil)

	u, err := url.Parse(c.AuthURL("state-123"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "user-modify-playback-state")
}

func TestSpotifyClient_Exchange(t *testing.T) {
	fake, srv := newFakeSpotify(t)
	tokens := &MemoryTokenStore{}
	c := newTestClient(t, srv, tokens)

	require.NoError(t, c.Exchange(context.Background(), "auth-code"))
	assert.True(t, c.Authenticated())
	_, form := fake.TokenRequests()
	assert.Equal(t, "auth-code", form.Get("code"))

	saved, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)

	require.NoError(t, c.Play(context.Background()))
	assert.Equal(t, "Bearer fresh", fake.LastAuth())
}

func TestSpotifyClient_RefreshesAndSavesToken(t *testing.T) {
	fake, srv := newFakeSpotify(t)
	tokens := &MemoryTokenStore{}
	tokens.Save(&oauth2.Token{
		AccessToken:  "expired",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Hour),
	})
	c := newTestClient(t, srv, tokens)

	require.NoError(t, c.Next(context.Background()))
	calls, form := fake.TokenRequests()
	assert.Equal(t, 1, calls)
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "Bearer fresh", fake.LastAuth())

	saved, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "refresh-2", saved.RefreshToken)
}

func TestSpotifyClient_Logout(t *testing.T) {
	_, srv := newFakeSpotify(t)
	tokens := validTokens()
	c := newTestClient(t, srv, tokens)

	require.NoError(t, c.Logout())
	assert.False(t, c.Authenticated())
	_, err := tokens.Load()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestDBTokenStore(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	tokens := NewDBTokenStore(st.Tokens(), "spotify")

	_, err = tokens.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	expiry := time.Date(2031, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, tokens.Save(&oauth2.Token{
		AccessToken:  "a",
		RefreshToken: "r",
		TokenType:    "Bearer",
		Expiry:       expiry,
	}))

	tok, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "r", tok.RefreshToken)
	assert.True(t, tok.Expiry.Equal(expiry))

	require.NoError(t, tokens.Delete())
	require.NoError(t, tokens.Delete(), "deleting twice is fine")
}
