package testdata

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordings(t *testing.T) {
	names, err := Recordings()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{SwipePause, PinchVolume}, names)
}

func TestOpenRecording_Decodes(t *testing.T) {
	for _, name := range []string{SwipePause, PinchVolume} {
		t.Run(name, func(t *testing.T) {
			src, err := OpenRecording(name, false, false)
			require.NoError(t, err)

			frames, status := 0, 0
			for {
				f, err := src.Poll(context.Background(), 0)
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				if f == nil {
					status++
					continue
				}
				frames++
			}
			assert.Equal(t, 2, status, "service and device messages replay as empty ticks")
			assert.Equal(t, src.Len()-2, frames)
		})
	}
}

func TestLoadRecording_Unknown(t *testing.T) {
	_, err := LoadRecording("nope")
	assert.Error(t, err)
}
