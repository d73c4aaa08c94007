package processors

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioviz/internal/audiocore"
)

func TestNewSensitivityController(t *testing.T) {
	t.Parallel()

	sc, err := NewSensitivityController(0.5, 3)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sc.Value(), 0)
	assert.InDelta(t, 3, sc.Gain(), 0)

	_, err = NewSensitivityController(1.5, 3)
	require.ErrorIs(t, err, audiocore.ErrInvalidSensitivity)

	_, err = NewSensitivityController(0.5, -1)
	require.ErrorIs(t, err, audiocore.ErrInvalidConfig)
}

func TestSetRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	sc, err := NewSensitivityController(0.5, 3)
	require.NoError(t, err)

	for _, v := range []float64{-0.01, 1.01, 2, math.NaN(), math.Inf(1)} {
		err := sc.Set(v)
		require.ErrorIs(t, err, audiocore.ErrInvalidSensitivity, "value %v", v)
		assert.InDelta(t, 0.5, sc.Value(), 0, "rejected value must not change state")
	}

	require.NoError(t, sc.Set(0))
	require.NoError(t, sc.Set(1))
	assert.InDelta(t, 1, sc.Value(), 0)
}

func TestApplyKeepsLengthAndRange(t *testing.T) {
	t.Parallel()

	sc, err := NewSensitivityController(0, 3)
	require.NoError(t, err)

	frame := []float64{0, 0.01, 0.1, 0.25, 0.5, 0.75, 0.99, 1, -0.2, 1.5, math.NaN()}
	for i := 0; i <= 20; i++ {
		s := float64(i) / 20
		out := sc.ApplyWith(frame, s)
		require.Len(t, out, len(frame))
		for j, v := range out {
			assert.GreaterOrEqual(t, v, 0.0, "s=%v index %d", s, j)
			assert.LessOrEqual(t, v, 1.0, "s=%v index %d", s, j)
		}
	}
}

func TestApplyScaling(t *testing.T) {
	t.Parallel()

	sc, err := NewSensitivityController(0.5, 3)
	require.NoError(t, err)

	in := []float64{0.1, 0.2, 0.5}
	out := sc.Apply(in)
	assert.InDeltaSlice(t, []float64{0.25, 0.5, 1}, out, 1e-12)
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 0.5}, in, 0, "input is not modified")

	assert.InDeltaSlice(t, in, sc.ApplyWith(in, 0), 1e-12, "zero sensitivity is identity")
	assert.InDeltaSlice(t, []float64{0.4, 0.8, 1}, sc.ApplyWith(in, 1), 1e-12)
}

func TestApplyMonotoneInSensitivity(t *testing.T) {
	t.Parallel()

	sc, err := NewSensitivityController(0, 3)
	require.NoError(t, err)

	frame := []float64{0.05, 0.2, 0.6}
	prev := sc.ApplyWith(frame, 0)
	for i := 1; i <= 10; i++ {
		cur := sc.ApplyWith(frame, float64(i)/10)
		for j := range cur {
			assert.GreaterOrEqual(t, cur[j], prev[j])
		}
		prev = cur
	}
}

func TestConcurrentSetAndApply(t *testing.T) {
	t.Parallel()

	sc, err := NewSensitivityController(0.5, 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Go(func() {
		for i := range 1000 {
			_ = sc.Set(float64(i%11) / 10)
		}
	})
	wg.Go(func() {
		for range 1000 {
			out := sc.Apply([]float64{0.3})
			assert.LessOrEqual(t, out[0], 1.0)
		}
	})
	wg.Wait()
}
