package analysis

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/audiocore/sources/wavfile"
	"github.com/tphakala/audioviz/internal/conf"
	"github.com/tphakala/audioviz/internal/events"
)

// syncBuffer is written by subscriber goroutines and read by the test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) lines() []string {
	s := strings.TrimSpace(b.String())
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func testSettings() *conf.Settings {
	return &conf.Settings{
		Audio: conf.AudioSettings{
			Source:       conf.SourceTone,
			SampleRate:   8000,
			Channels:     1,
			BufferFrames: 128,
			ReadTimeout:  time.Second,
			Realtime:     true,
			Tone:         conf.ToneSettings{Frequency: 440, Amplitude: 0.5},
			Retry:        conf.RetrySettings{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
		},
		Analysis: conf.AnalysisSettings{
			Mode:         conf.ModeSpectrum,
			WindowSize:   256,
			Bands:        8,
			Overlap:      0.5,
			MinFrequency: 50,
			MaxFrequency: 4000,
			Aggregation:  "rms",
			Decay:        0.99,
			Floor:        0.01,
		},
		Sensitivity: conf.SensitivitySettings{Value: 0.5, Gain: 3},
		Dispatch:    conf.DispatchSettings{MaxRate: 100},
	}
}

func TestBarRune(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ' ', barRune(-0.5))
	assert.Equal(t, ' ', barRune(0))
	assert.Equal(t, '█', barRune(1))
	assert.Equal(t, '█', barRune(3))
	assert.Equal(t, '▄', barRune(0.5))
}

func TestFramePrinterFormats(t *testing.T) {
	t.Parallel()

	frame := audiocore.VisualizationFrame{Values: []float64{0, 0.5, 1}, Sequence: 7}

	var bars bytes.Buffer
	p, err := newFramePrinter(&bars, "")
	require.NoError(t, err)
	p.render(frame)
	assert.Equal(t, "| ▄█|\n", bars.String())

	var values bytes.Buffer
	p, err = newFramePrinter(&values, FormatValues)
	require.NoError(t, err)
	p.render(frame)
	assert.Equal(t, "7,0.000,0.500,1.000\n", values.String())

	_, err = newFramePrinter(io.Discard, "waterfall")
	require.ErrorIs(t, err, audiocore.ErrInvalidConfig)
}

type failingWriter struct{ calls int }

func (w *failingWriter) Write([]byte) (int, error) {
	w.calls++
	return 0, io.ErrClosedPipe
}

func TestFramePrinterStopsAfterWriteFailure(t *testing.T) {
	t.Parallel()

	w := &failingWriter{}
	p, err := newFramePrinter(w, FormatBars)
	require.NoError(t, err)

	frame := audiocore.VisualizationFrame{Values: []float64{0.2}}
	p.render(frame)
	p.render(frame)
	assert.Equal(t, 1, w.calls)
}

func TestRunReplaysFileToEnd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, wavfile.WriteTone(path, 8000, 1000, 0.5, 500*time.Millisecond, 1))

	settings := testSettings()
	settings.Audio.Source = conf.SourceWAV
	settings.Audio.File = path
	settings.Audio.Realtime = false
	settings.Dispatch.MaxRate = 10000

	out := &syncBuffer{}
	err := Run(settings, Options{Print: true, Format: FormatValues, Out: out}, make(chan struct{}))
	require.NoError(t, err)

	lines := out.lines()
	require.NotEmpty(t, lines)
	for _, line := range lines {
		// sequence plus one value per band
		assert.Len(t, strings.Split(line, ","), 9, line)
	}

	// 4000 samples in 256-sample windows with a 128-sample hop
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "30,"), lines[len(lines)-1])
}

func TestRunReplaysFileAtLowRate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, wavfile.WriteTone(path, 8000, 1000, 0.5, 500*time.Millisecond, 1))

	settings := testSettings()
	settings.Audio.Source = conf.SourceWAV
	settings.Audio.File = path
	settings.Audio.Realtime = false
	settings.Dispatch.MaxRate = 10

	for range 5 {
		out := &syncBuffer{}
		require.NoError(t, Run(settings, Options{Print: true, Format: FormatValues, Out: out}, make(chan struct{})))

		lines := out.lines()
		require.NotEmpty(t, lines)
		assert.True(t, strings.HasPrefix(lines[len(lines)-1], "30,"), lines[len(lines)-1])
	}
}

func TestRunStopsOnQuit(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	quit := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		result <- Run(testSettings(), Options{Print: true, Out: out}, quit)
	}()

	require.Eventually(t, func() bool { return len(out.lines()) >= 3 }, 5*time.Second, 5*time.Millisecond)
	close(quit)

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after quit")
	}
}

func TestRunQuitFromControlInput(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	control := strings.NewReader("sensitivity 0.8\nquit\n")

	result := make(chan error, 1)
	go func() {
		result <- Run(testSettings(), Options{Out: out, Control: control}, make(chan struct{}))
	}()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop on quit command")
	}
	assert.Contains(t, out.String(), "sensitivity=0.80")
}

func TestRunInvalidSettings(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.Audio.Source = conf.SourceWAV
	settings.Audio.File = filepath.Join(t.TempDir(), "missing.wav")

	err := Run(settings, Options{Out: io.Discard}, make(chan struct{}))
	require.Error(t, err)

	settings = testSettings()
	err = Run(settings, Options{Print: true, Format: "waterfall", Out: io.Discard}, make(chan struct{}))
	require.ErrorIs(t, err, audiocore.ErrInvalidConfig)

	err = Run(testSettings(), Options{Out: io.Discard, Events: []string{"volume_changed"}}, make(chan struct{}))
	require.ErrorIs(t, err, events.ErrInvalidEvent)
}
