package visualizer

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/tphakala/audioviz/internal/audiocore"
)

// emitter caps the notification rate. Frames offered faster than the cap
// replace the pending one, so subscribers always get the newest frame.
type emitter struct {
	limiter *rate.Limiter
	mailbox chan audiocore.VisualizationFrame
	out     func(audiocore.VisualizationFrame)

	flush     chan struct{}
	flushOnce sync.Once

	emitted   *atomic.Uint64
	coalesced *atomic.Uint64
}

func newEmitter(maxRate float64, out func(audiocore.VisualizationFrame), emitted, coalesced *atomic.Uint64) *emitter {
	return &emitter{
		limiter:   rate.NewLimiter(rate.Limit(maxRate), 1),
		mailbox:   make(chan audiocore.VisualizationFrame, 1),
		out:       out,
		flush:     make(chan struct{}),
		emitted:   emitted,
		coalesced: coalesced,
	}
}

// offer never blocks. The processing stage is the only caller.
func (e *emitter) offer(frame audiocore.VisualizationFrame) {
	select {
	case e.mailbox <- frame:
		return
	default:
	}

	select {
	case <-e.mailbox:
		e.coalesced.Add(1)
		audiocore.GetMetrics().RecordFrameCoalesced()
	default:
	}
	select {
	case e.mailbox <- frame:
	default:
	}
}

// finish asks run to emit the pending frame, if any, and return
// errEndOfInput. The processing stage calls it after its last offer.
func (e *emitter) finish() {
	e.flushOnce.Do(func() { close(e.flush) })
}

func (e *emitter) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-e.mailbox:
			if !e.emit(ctx, frame) {
				return nil
			}
		case <-e.flush:
			select {
			case frame := <-e.mailbox:
				if !e.emit(ctx, frame) {
					return nil
				}
			default:
			}
			return errEndOfInput
		}
	}
}

// emit waits for a rate token and delivers frame, or a newer one that
// arrived meanwhile. It returns false when ctx ended the wait.
func (e *emitter) emit(ctx context.Context, frame audiocore.VisualizationFrame) bool {
	if err := e.limiter.Wait(ctx); err != nil {
		return false
	}
	select {
	case newer := <-e.mailbox:
		frame = newer
		e.coalesced.Add(1)
		audiocore.GetMetrics().RecordFrameCoalesced()
	default:
	}
	e.out(frame)
	e.emitted.Add(1)
	audiocore.GetMetrics().RecordFrameEmitted()
	return true
}
