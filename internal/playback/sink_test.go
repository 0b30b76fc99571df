package playback

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"

	"github.com/ayusman/cookify/internal/gesture"
)

func TestEventID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, EventID(ctx))
	assert.Equal(t, "evt-7", EventID(WithEventID(ctx, "evt-7")))
}

func TestSinkFunc(t *testing.T) {
	var got gesture.Command
	var sink Sink = SinkFunc(func(_ context.Context, cmd gesture.Command) error {
		got = cmd
		return nil
	})

	require.NoError(t, sink.Dispatch(context.Background(), gesture.Command{Action: gesture.Next}))
	assert.Equal(t, gesture.Next, got.Action)
}

func TestTrackHelpers(t *testing.T) {
	var tr spotify.FullTrack
	require.NoError(t, json.Unmarshal([]byte(`{
		"album": {"images": [
			{"url": "large", "width": 640},
			{"url": "medium", "width": 300},
			{"url": "small", "width": 64}
		]}
	}`), &tr))

	assert.Equal(t, "large", LargestImage(&tr))
	assert.Equal(t, "small", SmallestImage(&tr))
	assert.Equal(t, "Unknown Artist", ArtistName(&tr))

	tr.Artists = []spotify.SimpleArtist{{Name: "Nina Simone"}, {Name: "Other"}}
	assert.Equal(t, "Nina Simone", ArtistName(&tr))

	assert.Empty(t, LargestImage(&spotify.FullTrack{}))
	assert.Empty(t, SmallestImage(nil))
	assert.Equal(t, "Unknown Artist", ArtistName(nil))
}
