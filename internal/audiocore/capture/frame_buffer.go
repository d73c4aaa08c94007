// Package capture buffers captured audio between the capture and analysis stages.
package capture

import (
	"encoding/binary"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/audioviz/internal/audiocore"
)

const bytesPerSample = 2

// FrameBuffer is a fixed-capacity mono sample ring between one producer and
// one consumer. Push never blocks: when the ring is full the oldest samples
// are discarded. TryTakeWindow yields overlapping analysis windows.
type FrameBuffer struct {
	mu         sync.Mutex
	ring       *ringbuffer.RingBuffer
	windowSize int
	hop        int
	capacity   int // samples

	prev     []float64 // last window, its tail starts the next one
	havePrev bool

	mono    []int16
	scratch []byte
	dropped atomic.Uint64
}

// NewFrameBuffer creates a buffer holding windowSize+readSize mono samples.
// readSize is the largest frame the producer pushes at once and overlap is
// the fraction of each window repeated in the next.
func NewFrameBuffer(windowSize, readSize int, overlap float64) (*FrameBuffer, error) {
	if windowSize <= 0 || bits.OnesCount(uint(windowSize)) != 1 {
		return nil, audiocore.InvalidConfig("capture", "window size must be a positive power of two")
	}
	if readSize <= 0 {
		return nil, audiocore.InvalidConfig("capture", "read size must be positive")
	}
	if overlap < 0 || overlap >= 1 {
		return nil, audiocore.InvalidConfig("capture", "overlap must be in [0, 1)")
	}

	hop := max(1, int(float64(windowSize)*(1-overlap)))
	capacity := windowSize + readSize

	return &FrameBuffer{
		ring:       ringbuffer.New(capacity * bytesPerSample),
		windowSize: windowSize,
		hop:        hop,
		capacity:   capacity,
		prev:       make([]float64, windowSize),
	}, nil
}

// Push downmixes frame to mono and appends it. It returns the number of
// samples discarded to make room.
func (fb *FrameBuffer) Push(frame audiocore.AudioFrame) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	fb.mono = frame.AppendMono(fb.mono[:0])
	samples := fb.mono

	dropped := 0
	if len(samples) > fb.capacity {
		dropped += len(samples) - fb.capacity
		samples = samples[len(samples)-fb.capacity:]
	}
	if len(samples) == 0 {
		return 0
	}

	need := len(samples) * bytesPerSample
	if short := need - fb.ring.Free(); short > 0 {
		dropped += fb.discardLocked(short)
	}

	fb.scratch = encodeSamples(fb.scratch[:0], samples)
	if _, err := fb.ring.Write(fb.scratch); err != nil {
		// Free space was ensured above; a failure here loses the whole frame
		dropped += len(samples)
	}

	if dropped > 0 {
		fb.dropped.Add(uint64(dropped))
		// Samples are no longer contiguous with the previous window
		fb.havePrev = false
	}
	return dropped
}

// discardLocked removes at least n bytes of whole samples from the head of the ring.
func (fb *FrameBuffer) discardLocked(n int) int {
	n = (n + bytesPerSample - 1) / bytesPerSample * bytesPerSample
	n = min(n, fb.ring.Length())
	if n == 0 {
		return 0
	}
	if cap(fb.scratch) < n {
		fb.scratch = make([]byte, n)
	}
	read, _ := fb.ring.Read(fb.scratch[:n])
	return read / bytesPerSample
}

// TryTakeWindow returns the next analysis window when enough new samples are
// buffered. The returned window is a fresh slice owned by the caller.
func (fb *FrameBuffer) TryTakeWindow() (audiocore.AnalysisWindow, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	need := fb.windowSize
	if fb.havePrev {
		need = fb.hop
	}
	if fb.ring.Length() < need*bytesPerSample {
		return nil, false
	}

	if cap(fb.scratch) < need*bytesPerSample {
		fb.scratch = make([]byte, need*bytesPerSample)
	}
	buf := fb.scratch[:need*bytesPerSample]
	read, err := fb.ring.Read(buf)
	if err != nil || read != len(buf) {
		return nil, false
	}

	window := make(audiocore.AnalysisWindow, fb.windowSize)
	keep := fb.windowSize - need
	copy(window, fb.prev[fb.windowSize-keep:])
	for i := range need {
		s := int16(binary.LittleEndian.Uint16(buf[i*bytesPerSample:]))
		window[keep+i] = float64(s) / audiocore.Int16Scale
	}

	copy(fb.prev, window)
	fb.havePrev = true
	return window, true
}

// Len returns the number of buffered samples not yet consumed.
func (fb *FrameBuffer) Len() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.ring.Length() / bytesPerSample
}

// Free returns the number of samples that can be pushed without discarding.
func (fb *FrameBuffer) Free() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.ring.Free() / bytesPerSample
}

// Capacity returns the maximum number of buffered samples.
func (fb *FrameBuffer) Capacity() int {
	return fb.capacity
}

// WindowSize returns the length of windows produced by TryTakeWindow.
func (fb *FrameBuffer) WindowSize() int {
	return fb.windowSize
}

// Hop returns the number of new samples between consecutive windows.
func (fb *FrameBuffer) Hop() int {
	return fb.hop
}

// Dropped returns the total number of samples discarded since creation or the last Reset.
func (fb *FrameBuffer) Dropped() uint64 {
	return fb.dropped.Load()
}

// Reset discards all buffered samples and the overlap history.
func (fb *FrameBuffer) Reset() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.ring.Reset()
	fb.havePrev = false
	clear(fb.prev)
	fb.dropped.Store(0)
}

func encodeSamples(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}
