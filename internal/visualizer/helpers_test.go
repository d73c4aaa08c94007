package visualizer

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/audiocore/analyzers/amplitude"
	"github.com/tphakala/audioviz/internal/errors"
	"github.com/tphakala/audioviz/internal/logger"
)

const (
	testWindow = 64
	testBands  = 8
)

// fakeSource produces square-wave frames and can be scripted to disconnect,
// fail to reopen or end.
type fakeSource struct {
	mu              sync.Mutex
	frameLen        int
	pace            time.Duration
	openErr         error // returned by every Open
	closeErr        error // returned by every Close
	reopenErr       error // returned by every Open after the first
	disconnectAfter int   // reads before one ErrDeviceDisconnected, 0 never
	eofAfter        int   // reads before io.EOF, 0 never
	reads           int
	disconnected    bool

	opens  atomic.Int32
	closes atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{frameLen: 32, pace: 200 * time.Microsecond}
}

func (f *fakeSource) ID() string { return "fake" }

func (f *fakeSource) Format() audiocore.AudioFormat {
	return audiocore.AudioFormat{SampleRate: 8000, Channels: 1, BitDepth: 16, Encoding: audiocore.EncodingPCM16LE}
}

func (f *fakeSource) Open(ctx context.Context) error {
	n := f.opens.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	if n > 1 && f.reopenErr != nil {
		return f.reopenErr
	}
	return ctx.Err()
}

func (f *fakeSource) Read(ctx context.Context) (audiocore.AudioFrame, error) {
	if f.pace > 0 {
		timer := time.NewTimer(f.pace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return audiocore.AudioFrame{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++

	if f.eofAfter > 0 && f.reads > f.eofAfter {
		return audiocore.AudioFrame{}, io.EOF
	}
	if f.disconnectAfter > 0 && f.reads > f.disconnectAfter && !f.disconnected {
		f.disconnected = true
		return audiocore.AudioFrame{}, errors.New(audiocore.ErrDeviceDisconnected).
			Component("fake").
			Category(errors.CategoryAudioDevice).
			Build()
	}

	samples := make([]int16, f.frameLen)
	for i := range samples {
		if (f.reads+i)%2 == 0 {
			samples[i] = 8000
		} else {
			samples[i] = -8000
		}
	}
	return audiocore.AudioFrame{Samples: samples, Format: f.Format(), Timestamp: time.Now()}, nil
}

func (f *fakeSource) Close() error {
	f.closes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeErr
}

// stubAnalyzer returns fixed values or a fixed error
type stubAnalyzer struct {
	values []float64
	err    error
}

func (a *stubAnalyzer) Analyze(w audiocore.AnalysisWindow, state audiocore.NormState) ([]float64, audiocore.NormState, error) {
	if a.err != nil {
		return nil, state, a.err
	}
	state.Version++
	return append([]float64(nil), a.values...), state, nil
}

func (a *stubAnalyzer) WindowSize() int { return testWindow }
func (a *stubAnalyzer) Bands() int      { return len(a.values) }

func testAnalyzer(t *testing.T) audiocore.Analyzer {
	t.Helper()
	a, err := amplitude.New(amplitude.Config{WindowSize: testWindow, Bands: testBands, Decay: 0.99, Floor: 0.01})
	require.NoError(t, err)
	return a
}

// newTestEngine builds an engine that emits fast and reconnects quickly.
func newTestEngine(t *testing.T, src audiocore.AudioSource, mutate func(*Config)) *Engine {
	t.Helper()

	cfg := Config{
		Source:      src,
		Analyzer:    testAnalyzer(t),
		Sensitivity: 0.5,
		MaxRate:     1000,
		Overlap:     0.5,
		ReadSize:    32,
		Retry:       RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
		Logger:      logger.NewSlogLogger(io.Discard, logger.LogLevelDebug, time.UTC),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

// lockedBuffer collects log output written from session goroutines
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// frameRecorder is a subscriber callback that keeps every frame
type frameRecorder struct {
	mu     sync.Mutex
	frames []audiocore.VisualizationFrame
	count  atomic.Int64
}

func (r *frameRecorder) record(f audiocore.VisualizationFrame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
	r.count.Add(1)
}

func (r *frameRecorder) snapshot() []audiocore.VisualizationFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audiocore.VisualizationFrame(nil), r.frames...)
}

func waitForFrames(t *testing.T, r *frameRecorder, n int64) {
	t.Helper()
	require.Eventually(t, func() bool { return r.count.Load() >= n }, 3*time.Second, 2*time.Millisecond,
		"expected at least %d frames", n)
}
