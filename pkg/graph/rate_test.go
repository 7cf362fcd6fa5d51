package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateBuffer(t *testing.T) {
	b := newRateBuffer(4)
	assert.Equal(t, UnknownRate, b.fps())

	for i := 0; i < 3; i++ {
		b.push(10 * time.Millisecond)
	}
	assert.Equal(t, 3, b.len())
	assert.InDelta(t, 100.0, b.fps(), 1e-9)

	// Wrap around: only the last four samples count.
	for i := 0; i < 4; i++ {
		b.push(20 * time.Millisecond)
	}
	assert.Equal(t, 4, b.len())
	assert.InDelta(t, 50.0, b.fps(), 1e-9)

	b.resize(8)
	assert.Equal(t, 0, b.len())
	assert.Equal(t, UnknownRate, b.fps())
}

func TestRateBuffer_ZeroDurations(t *testing.T) {
	b := newRateBuffer(0)
	b.push(0)
	assert.Equal(t, UnknownRate, b.fps())
	assert.Len(t, b.samples, DefaultRateBufferSize)
}

func TestUnit_CurrentRate(t *testing.T) {
	root := New(newCounter("value", 10), testCtx())
	assert.Equal(t, UnknownRate, root.CurrentRate())
	assert.Equal(t, UnknownRate, root.UnitRate())

	require.NoError(t, root.PrepareProcessing())
	const spacing = 20 * time.Millisecond
	for i := 0; i < 5; i++ {
		if i > 0 {
			time.Sleep(spacing)
		}
		more, err := root.NextFrame()
		require.NoError(t, err)
		require.True(t, more)
	}

	// Four gaps of about 20ms.
	assert.Equal(t, 4, root.currentRate.len())
	assert.InDelta(t, 50.0, root.CurrentRate(), 10.0)
	assert.Equal(t, 5, root.unitRate.len())
}

func TestUnit_SetRateBufferSize(t *testing.T) {
	u := New(newCounter("value", 0), testCtx(), WithRateBufferSize(2))
	assert.Len(t, u.unitRate.samples, 2)

	u.SetRateBufferSize(16)
	assert.Len(t, u.currentRate.samples, 16)
}
