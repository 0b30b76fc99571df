package gesture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeClutch_EngageEmitsNothing(t *testing.T) {
	var c VolumeClutch

	_, ok := c.Observe(true, 100, 40)
	assert.False(t, ok)
	assert.True(t, c.Engaged())
}

func TestVolumeClutch_RaiseVolume(t *testing.T) {
	var c VolumeClutch

	c.Observe(true, 100, 40)
	v, ok := c.Observe(true, 140, 40)
	require.True(t, ok)
	assert.Equal(t, 60, v)
}

func TestVolumeClutch_Release(t *testing.T) {
	var c VolumeClutch

	c.Observe(true, 100, 40)
	_, ok := c.Observe(false, 300, 40)
	assert.False(t, ok)
	assert.False(t, c.Engaged())

	// Re-engaging at a new height does not jump.
	c.Observe(true, 300, 40)
	_, ok = c.Observe(true, 305, 40)
	assert.False(t, ok)
}

func TestVolumeClutch_Quantization(t *testing.T) {
	var (
		c       VolumeClutch
		current = 50
		emitted []int
	)

	c.Observe(true, 0, current)
	for h := 0.0; h <= 60; h += 2 {
		if v, ok := c.Observe(true, h, current); ok {
			emitted = append(emitted, v)
			current = v
		}
	}

	// 2 mm is one volume point. Steps land at 10, 32 and 50 mm since a
	// half step rounds to even.
	assert.Equal(t, []int{60, 70, 80}, emitted)
	for _, v := range emitted {
		assert.Zero(t, v%VolumeStep, "volume %d is not a multiple of %d", v, VolumeStep)
	}
}

func TestVolumeClutch_SmallMovesEmitNothing(t *testing.T) {
	var c VolumeClutch

	c.Observe(true, 100, 50)
	for _, h := range []float64{101, 104, 96, 109.9, 90.1} {
		_, ok := c.Observe(true, h, 50)
		assert.False(t, ok, "height %v emitted", h)
	}
}

func TestVolumeClutch_Clamps(t *testing.T) {
	var c VolumeClutch

	c.Observe(true, 100, 90)
	v, ok := c.Observe(true, 400, 90)
	require.True(t, ok)
	assert.Equal(t, 100, v)

	c.Release()
	c.Observe(true, 100, 10)
	v, ok = c.Observe(true, -300, 10)
	require.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestVolumeClutch_NonFiniteHeight(t *testing.T) {
	var c VolumeClutch

	c.Observe(true, math.NaN(), 50)
	_, ok := c.Observe(true, math.Inf(1), 50)
	assert.False(t, ok)

	// First finite height becomes the reference.
	_, ok = c.Observe(true, 120, 50)
	assert.False(t, ok)
	v, ok := c.Observe(true, 160, 50)
	require.True(t, ok)
	assert.Equal(t, 70, v)
}

func TestClampVolume(t *testing.T) {
	assert.Equal(t, 0, ClampVolume(-5))
	assert.Equal(t, 55, ClampVolume(55))
	assert.Equal(t, 100, ClampVolume(180))
}
