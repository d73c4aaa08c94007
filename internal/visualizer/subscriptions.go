package visualizer

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/logger"
)

// SubscriptionHandle identifies a subscription for Unsubscribe.
type SubscriptionHandle string

type subscription struct {
	handle  SubscriptionHandle
	fn      func(audiocore.VisualizationFrame)
	removed atomic.Bool
}

// registry holds subscriptions across sessions. While a session runs, live
// points at its fanout so new subscriptions get a worker immediately.
type registry struct {
	mu    sync.Mutex
	subs  map[SubscriptionHandle]*subscription
	order []SubscriptionHandle
	live  *fanout
}

func newRegistry() *registry {
	return &registry{subs: make(map[SubscriptionHandle]*subscription)}
}

func (r *registry) add(fn func(audiocore.VisualizationFrame)) (SubscriptionHandle, int) {
	sub := &subscription{
		handle: SubscriptionHandle(uuid.NewString()),
		fn:     fn,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.handle] = sub
	r.order = append(r.order, sub.handle)
	if r.live != nil {
		r.live.add(sub)
	}
	return sub.handle, len(r.subs)
}

func (r *registry) remove(handle SubscriptionHandle) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[handle]
	if !ok {
		return false, len(r.subs)
	}
	sub.removed.Store(true)
	delete(r.subs, handle)
	for i, h := range r.order {
		if h == handle {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.live != nil {
		r.live.remove(handle)
	}
	return true, len(r.subs)
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// attach starts workers for every subscription on f and routes later
// subscriptions to it.
func (r *registry) attach(f *fanout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.order {
		f.add(r.subs[h])
	}
	r.live = f
}

func (r *registry) detach(f *fanout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live == f {
		r.live = nil
	}
}

// worker delivers frames to one subscription for one session
type worker struct {
	sub     *subscription
	mailbox chan audiocore.VisualizationFrame
	quit    chan struct{}
	flush   chan struct{}
	once    sync.Once
	fonce   sync.Once
}

func (w *worker) stop() {
	w.once.Do(func() { close(w.quit) })
}

// finish lets the worker deliver its pending frame before exiting
func (w *worker) finish() {
	w.fonce.Do(func() { close(w.flush) })
}

// fanout owns the subscriber workers of one session
type fanout struct {
	mu      sync.Mutex
	workers map[SubscriptionHandle]*worker
	closed  bool
	wg      sync.WaitGroup

	coalesced *atomic.Uint64
	panics    *atomic.Uint64
	log       logger.Logger
}

func newFanout(coalesced, panics *atomic.Uint64, log logger.Logger) *fanout {
	return &fanout{
		workers:   make(map[SubscriptionHandle]*worker),
		coalesced: coalesced,
		panics:    panics,
		log:       log,
	}
}

func (f *fanout) add(sub *subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || sub == nil {
		return
	}
	if _, ok := f.workers[sub.handle]; ok {
		return
	}

	w := &worker{
		sub:     sub,
		mailbox: make(chan audiocore.VisualizationFrame, 1),
		quit:    make(chan struct{}),
		flush:   make(chan struct{}),
	}
	f.workers[sub.handle] = w
	f.wg.Go(func() { f.run(w) })
}

func (f *fanout) remove(handle SubscriptionHandle) {
	f.mu.Lock()
	w, ok := f.workers[handle]
	delete(f.workers, handle)
	f.mu.Unlock()
	if ok {
		w.stop()
	}
}

// deliver hands every worker its own copy of frame. Only the emitter calls
// it, so a drained mailbox always accepts the replacement.
func (f *fanout) deliver(frame audiocore.VisualizationFrame) {
	f.mu.Lock()
	targets := make([]*worker, 0, len(f.workers))
	for _, w := range f.workers {
		targets = append(targets, w)
	}
	f.mu.Unlock()

	for _, w := range targets {
		copyFrame := frame.Clone()
		select {
		case w.mailbox <- copyFrame:
			continue
		default:
		}

		select {
		case <-w.mailbox:
			f.coalesced.Add(1)
			audiocore.GetMetrics().RecordFrameCoalesced()
			f.log.Trace("subscriber behind, frame replaced",
				logger.String("subscription", string(w.sub.handle)),
				logger.Uint64("sequence", frame.Sequence))
		default:
		}
		select {
		case w.mailbox <- copyFrame:
		default:
		}
	}
}

// close stops every worker and waits for in-flight callbacks to return
func (f *fanout) close() {
	for _, w := range f.seal() {
		w.stop()
	}
	f.wg.Wait()
}

// drain is close for a session that ran out of input: each worker first
// delivers the frame waiting in its mailbox.
func (f *fanout) drain() {
	for _, w := range f.seal() {
		w.finish()
	}
	f.wg.Wait()
}

func (f *fanout) seal() map[SubscriptionHandle]*worker {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	workers := f.workers
	f.workers = make(map[SubscriptionHandle]*worker)
	return workers
}

func (f *fanout) run(w *worker) {
	for {
		select {
		case <-w.quit:
			return
		case frame := <-w.mailbox:
			// quit wins over a frame that arrived at the same time
			select {
			case <-w.quit:
				return
			default:
			}
			if w.sub.removed.Load() {
				return
			}
			f.invoke(w.sub, frame)
		case <-w.flush:
			select {
			case frame := <-w.mailbox:
				if !w.sub.removed.Load() {
					f.invoke(w.sub, frame)
				}
			default:
			}
			return
		}
	}
}

func (f *fanout) invoke(sub *subscription, frame audiocore.VisualizationFrame) {
	defer func() {
		if r := recover(); r != nil {
			f.panics.Add(1)
			audiocore.GetMetrics().RecordCallbackPanic()
			f.log.Error("subscriber callback panicked",
				logger.String("subscription", string(sub.handle)),
				logger.Any("panic", r))
		}
	}()
	sub.fn(frame)
}
