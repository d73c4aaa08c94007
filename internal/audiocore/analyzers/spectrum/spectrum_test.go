package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/audiocore/analyzers"
)

func sine(n int, freq, sampleRate, amplitude float64) audiocore.AnalysisWindow {
	w := make(audiocore.AnalysisWindow, n)
	for i := range w {
		w[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return w
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	base := DefaultConfig(44100)
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"window not power of two", func(c *Config) { c.WindowSize = 1000 }},
		{"too many bands", func(c *Config) { c.Bands = 513 }},
		{"zero bands", func(c *Config) { c.Bands = 0 }},
		{"inverted frequencies", func(c *Config) { c.MaxFrequency = 40 }},
		{"minimum above nyquist", func(c *Config) { c.SampleRate = 8000; c.MinFrequency = 5000; c.MaxFrequency = 6000 }},
		{"unknown aggregation", func(c *Config) { c.Aggregation = "mean" }},
		{"zero decay", func(c *Config) { c.Decay = 0 }},
		{"zero floor", func(c *Config) { c.Floor = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			_, err := New(cfg)
			require.ErrorIs(t, err, audiocore.ErrInvalidConfig)
		})
	}

	a, err := New(base)
	require.NoError(t, err)
	assert.Equal(t, 1024, a.WindowSize())
	assert.Equal(t, 32, a.Bands())
	assert.Equal(t, Name, a.Name())
}

func TestBandRangesCoverSpectrum(t *testing.T) {
	t.Parallel()

	for _, bands := range []int{1, 8, 32, 64, 512} {
		a, err := New(Config{
			SampleRate: 44100, WindowSize: 1024, Bands: bands,
			MinFrequency: 50, MaxFrequency: 16000,
			Decay: 0.99, Floor: 0.01,
		})
		require.NoError(t, err, "bands=%d", bands)

		ranges := a.BandRanges()
		require.Len(t, ranges, bands)
		assert.GreaterOrEqual(t, ranges[0].Lo, 1, "DC excluded")
		assert.LessOrEqual(t, ranges[bands-1].Hi, 513)
		for i, r := range ranges {
			assert.Greater(t, r.Hi, r.Lo, "band %d must hold a bin", i)
			if i > 0 {
				assert.Equal(t, ranges[i-1].Hi, r.Lo, "bands are contiguous")
				assert.InDelta(t, ranges[i-1].HighHz, r.LowHz, 1e-9, "band edges are contiguous")
			}
			for k := r.Lo; k < r.Hi; k++ {
				f := a.BinFrequency(k)
				assert.True(t, f >= r.LowHz && f < r.HighHz || k == 512,
					"bin %d at %.1f Hz outside band %d [%.1f, %.1f)", k, f, i, r.LowHz, r.HighHz)
			}
		}
	}
}

func TestBandEdgesAreBinEdges(t *testing.T) {
	t.Parallel()

	a, err := New(Config{
		SampleRate: 8000, WindowSize: 256, Bands: 16,
		MinFrequency: 50, MaxFrequency: 4000,
		Decay: 0.99, Floor: 0.01,
	})
	require.NoError(t, err)

	binHz := 8000.0 / 256
	ranges := a.BandRanges()
	for _, r := range ranges {
		assert.InDelta(t, a.BinFrequency(r.Lo)-binHz/2, r.LowHz, 1e-9)
	}
	assert.InDelta(t, 4000, ranges[len(ranges)-1].HighHz, 1e-9, "top edge stops at Nyquist")
}

func TestMaxFrequencyCappedAtNyquist(t *testing.T) {
	t.Parallel()

	a, err := New(Config{
		SampleRate: 8000, WindowSize: 256, Bands: 16,
		MinFrequency: 50, MaxFrequency: 20000,
		Decay: 0.99, Floor: 0.01,
	})
	require.NoError(t, err)

	ranges := a.BandRanges()
	assert.Equal(t, 129, ranges[len(ranges)-1].Hi)
}

func TestSilenceYieldsZeros(t *testing.T) {
	t.Parallel()

	a, err := New(DefaultConfig(44100))
	require.NoError(t, err)

	out, state, err := a.Analyze(make(audiocore.AnalysisWindow, 1024), audiocore.NormState{})
	require.NoError(t, err)
	require.Len(t, out, 32)
	for _, v := range out {
		assert.Zero(t, v)
	}
	assert.Equal(t, uint64(1), state.Version)
}

func TestMalformedWindow(t *testing.T) {
	t.Parallel()

	a, err := New(DefaultConfig(44100))
	require.NoError(t, err)

	prior := audiocore.NormState{Peak: 0.3, Version: 7}
	_, state, err := a.Analyze(make(audiocore.AnalysisWindow, 1000), prior)
	require.ErrorIs(t, err, audiocore.ErrMalformedWindow)
	assert.Equal(t, prior, state)
}

// A tone at the centre bin of a band must put the band maximum there, for
// every band wide enough to contain the Hann main lobe.
func TestToneSweepConcentratesEnergy(t *testing.T) {
	t.Parallel()

	for _, agg := range []analyzers.Aggregation{analyzers.AggregationRMS, analyzers.AggregationPeak} {
		cfg := DefaultConfig(44100)
		cfg.Aggregation = agg
		a, err := New(cfg)
		require.NoError(t, err)

		tested := 0
		for i, r := range a.BandRanges() {
			if r.Hi-r.Lo < 3 {
				continue
			}
			tested++
			freq := a.BinFrequency((r.Lo + r.Hi) / 2)
			out, _, err := a.Analyze(sine(1024, freq, 44100, 0.5), audiocore.NormState{})
			require.NoError(t, err)

			assert.Equal(t, i, argmax(out), "%s: tone %.1f Hz", agg, freq)
			assert.InDelta(t, 1, out[i], 1e-9, "loudest band normalizes to 1")
			for _, v := range out {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		}
		assert.Greater(t, tested, 10)
	}
}

func TestPeakAggregationRecoversAmplitude(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig(44100)
	cfg.Aggregation = analyzers.AggregationPeak
	cfg.Floor = 1 // fixed scale: output equals band magnitude
	cfg.Decay = 1
	a, err := New(cfg)
	require.NoError(t, err)

	r := a.BandRanges()[24]
	require.GreaterOrEqual(t, r.Hi-r.Lo, 3)
	out, _, err := a.Analyze(sine(1024, a.BinFrequency((r.Lo+r.Hi)/2), 44100, 0.5), audiocore.NormState{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out[24], 0.02)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	t.Parallel()

	a, err := New(DefaultConfig(44100))
	require.NoError(t, err)

	w := sine(1024, 1000, 44100, 0.3)
	for i := range w {
		w[i] += 0.05 * math.Sin(float64(i)*0.37)
	}
	snapshot := append(audiocore.AnalysisWindow(nil), w...)
	state := audiocore.NormState{Peak: 0.2, Version: 3}

	out1, s1, err := a.Analyze(w, state)
	require.NoError(t, err)
	out2, s2, err := a.Analyze(w, state)
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
	assert.Equal(t, s1, s2)
	assert.Equal(t, snapshot, w, "input window is not modified")
}
