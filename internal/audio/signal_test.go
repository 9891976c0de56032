package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipSignal_Window(t *testing.T) {
	clip := &Clip{Samples: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}, SampleRate: 10}
	base := time.Unix(0, 0)
	now := base
	sig := NewClipSignal(clip, func() time.Time { return now })
	dst := make([]float64, 4)

	_, err := sig.Window(dst)
	assert.ErrorIs(t, err, ErrNotStarted)

	sig.Start(base)
	now = base.Add(200 * time.Millisecond)
	rate, err := sig.Window(dst)
	require.NoError(t, err)
	assert.Equal(t, 10, rate)
	assert.Equal(t, []float64{0, 0, 0.1, 0.2}, dst)

	now = base.Add(600 * time.Millisecond)
	_, err = sig.Window(dst)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.4, 0.5, 0.6}, dst)
	assert.Equal(t, 600*time.Millisecond, sig.Position())

	now = base.Add(time.Second)
	_, err = sig.Window(dst)
	assert.ErrorIs(t, err, ErrEndOfStream)
	assert.Equal(t, time.Second, sig.Duration())
}
