package visualizer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/audiocore/capture"
	"github.com/tphakala/audioviz/internal/audiocore/processors"
	"github.com/tphakala/audioviz/internal/errors"
	"github.com/tphakala/audioviz/internal/events"
	"github.com/tphakala/audioviz/internal/logger"
)

// Config wires an Engine. Source and Analyzer are required.
type Config struct {
	Source   audiocore.AudioSource
	Analyzer audiocore.Analyzer

	Sensitivity float64 // initial value in [0, 1]
	Gain        float64 // sensitivity gain k, DefaultSensitivityGain when zero
	MaxRate     float64 // frames per second, DefaultMaxRate when <= 0
	Overlap     float64 // window overlap in [0, 1)
	ReadSize    int     // expected samples per source read, sizes buffer slack

	Retry      RetryConfig
	Permission PermissionChecker // StaticPermission(true) when nil
	Events     *events.Bus       // optional lifecycle event sink
	Logger     logger.Logger
}

// Engine runs visualization sessions. The zero value is not usable; create
// one with New.
type Engine struct {
	source      audiocore.AudioSource
	analyzer    audiocore.Analyzer
	buffer      *capture.FrameBuffer
	readSize    int
	sensitivity *processors.SensitivityController
	maxRate     float64
	retry       RetryConfig
	permission  PermissionChecker
	bus         *events.Bus
	log         logger.Logger
	mode        string

	subs *registry

	mu      sync.Mutex
	state   State
	session *session // current session, or the last one once Idle

	sessions   atomic.Uint64
	analyzed   atomic.Uint64
	emitted    atomic.Uint64
	coalesced  atomic.Uint64
	dropped    atomic.Uint64
	reconnects atomic.Uint64
	panics     atomic.Uint64
}

// New validates cfg and returns an idle engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, audiocore.InvalidConfig(componentVisualizer, "audio source is required")
	}
	if cfg.Analyzer == nil {
		return nil, audiocore.InvalidConfig(componentVisualizer, "analyzer is required")
	}

	gain := cfg.Gain
	if gain == 0 {
		gain = audiocore.DefaultSensitivityGain
	}
	sensitivity, err := processors.NewSensitivityController(cfg.Sensitivity, gain)
	if err != nil {
		return nil, err
	}

	maxRate := cfg.MaxRate
	if maxRate <= 0 {
		maxRate = audiocore.DefaultMaxRate
	}

	readSize := cfg.ReadSize
	if readSize <= 0 {
		readSize = audiocore.DefaultBufferFrames
	}
	buffer, err := capture.NewFrameBuffer(cfg.Analyzer.WindowSize(), readSize, cfg.Overlap)
	if err != nil {
		return nil, err
	}

	permission := cfg.Permission
	if permission == nil {
		permission = StaticPermission(true)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Global().Module(componentVisualizer)
	}

	mode := "custom"
	if n, ok := cfg.Analyzer.(audiocore.Namer); ok {
		mode = n.Name()
	}

	return &Engine{
		source:      cfg.Source,
		analyzer:    cfg.Analyzer,
		buffer:      buffer,
		readSize:    readSize,
		sensitivity: sensitivity,
		maxRate:     maxRate,
		retry:       cfg.Retry.withDefaults(),
		permission:  permission,
		bus:         cfg.Events,
		log:         log,
		mode:        mode,
		subs:        newRegistry(),
	}, nil
}

// Start opens the source and begins a session. It returns once capture is
// active.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Listening {
		return errors.New(audiocore.ErrAlreadyListening).
			Component(componentVisualizer).
			Category(errors.CategoryState).
			Context("session_id", e.session.id).
			Build()
	}

	if !e.permission.HasPermission() {
		audiocore.GetMetrics().RecordSessionStart(false)
		return errors.New(audiocore.ErrPermissionDenied).
			Component(componentVisualizer).
			Category(errors.CategoryPermission).
			Context("source_id", e.source.ID()).
			Build()
	}

	if err := e.source.Open(ctx); err != nil {
		audiocore.GetMetrics().RecordSessionStart(false)
		return e.openError(err)
	}

	id := uuid.NewString()
	log := e.log.With(logger.String("session_id", id))
	s := &session{
		engine:    e,
		id:        id,
		startedAt: time.Now(),
		mode:      e.mode,
		log:       log,
		wake:      make(chan struct{}, 1),
		space:     make(chan struct{}, 1),
		inputDone: make(chan struct{}),
		done:      make(chan struct{}),
	}
	if od, ok := e.source.(audiocore.OnDemandSource); ok {
		s.onDemand = od.OnDemand()
	}
	s.fan = newFanout(&e.coalesced, &e.panics, log)
	s.emit = newEmitter(e.maxRate, s.fan.deliver, &e.emitted, &e.coalesced)

	e.buffer.Reset()
	e.subs.attach(s.fan)
	e.session = s
	e.state = Listening
	e.sessions.Add(1)

	s.start()

	audiocore.GetMetrics().RecordSessionStart(true)
	audiocore.GetMetrics().UpdateSensitivity(e.sensitivity.Value())
	log.Info("session started",
		logger.String("source_id", e.source.ID()),
		logger.String("mode", e.mode),
		logger.Int("window_size", e.analyzer.WindowSize()),
		logger.Int("bands", e.analyzer.Bands()),
		logger.Float64("max_rate", e.maxRate))

	e.publish(events.Event{Kind: events.KindAudioStarted, SessionID: id})
	return nil
}

// openError maps a source open failure to ErrDeviceUnavailable unless it is
// already a permission or cancellation error.
func (e *Engine) openError(err error) error {
	switch {
	case errors.Is(err, audiocore.ErrDeviceUnavailable),
		errors.Is(err, audiocore.ErrPermissionDenied),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return errors.New(errors.Join(audiocore.ErrDeviceUnavailable, err)).
		Component(componentVisualizer).
		Category(errors.CategoryAudioDevice).
		Context("source_id", e.source.ID()).
		Context("operation", "open_source").
		Build()
}

// Stop ends the session and waits until every stage and subscriber goroutine
// has exited. No callback starts after Stop returns. Stop while Idle returns
// ErrNotListening. Callbacks must not call Stop synchronously.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != Listening {
		e.mu.Unlock()
		return errors.New(audiocore.ErrNotListening).
			Component(componentVisualizer).
			Category(errors.CategoryState).
			Build()
	}
	s := e.session
	e.mu.Unlock()

	s.cancel()
	<-s.done
	return nil
}

// Wait blocks until the current session ends and returns its terminal error,
// nil for Stop or end of input. It returns nil at once if no session ran.
func (e *Engine) Wait() error {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()

	if s == nil {
		return nil
	}
	<-s.done
	return s.err
}

// endSession is called by the session supervisor after teardown
func (e *Engine) endSession(s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == s {
		e.state = Idle
	}
	audiocore.GetMetrics().RecordSessionStop()
}

// SetSensitivity changes the sensitivity from the next processing cycle.
func (e *Engine) SetSensitivity(v float64) error {
	if err := e.sensitivity.Set(v); err != nil {
		return err
	}
	audiocore.GetMetrics().UpdateSensitivity(v)
	return nil
}

// Sensitivity returns the current sensitivity.
func (e *Engine) Sensitivity() float64 {
	return e.sensitivity.Value()
}

// Subscribe registers fn for every emitted frame. fn runs on a goroutine
// owned by the subscription and receives its own copy of the values.
func (e *Engine) Subscribe(fn func(audiocore.VisualizationFrame)) SubscriptionHandle {
	handle, n := e.subs.add(fn)
	audiocore.GetMetrics().UpdateSubscribers(n)
	return handle
}

// Unsubscribe removes a subscription. It reports whether handle was known.
// A callback already running completes; no further callback is started.
func (e *Engine) Unsubscribe(handle SubscriptionHandle) bool {
	ok, n := e.subs.remove(handle)
	if ok {
		audiocore.GetMetrics().UpdateSubscribers(n)
	}
	return ok
}

// HasPermission reports whether capture is currently allowed.
func (e *Engine) HasPermission() bool {
	return e.permission.HasPermission()
}

// State returns a snapshot of the session state.
func (e *Engine) State() SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := SessionState{State: e.state, Sensitivity: e.sensitivity.Value()}
	if e.state == Listening {
		st.ID = e.session.id
		st.StartedAt = e.session.startedAt
	}
	return st
}

// Stats returns cumulative counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Sessions:        e.sessions.Load(),
		FramesAnalyzed:  e.analyzed.Load(),
		FramesEmitted:   e.emitted.Load(),
		FramesCoalesced: e.coalesced.Load(),
		SamplesDropped:  e.dropped.Load(),
		Reconnects:      e.reconnects.Load(),
		CallbackPanics:  e.panics.Load(),
		Subscribers:     e.subs.count(),
	}
}

// Bands returns the length of every emitted frame.
func (e *Engine) Bands() int {
	return e.analyzer.Bands()
}

func (e *Engine) publish(event events.Event) {
	if e.bus == nil {
		return
	}
	if !e.bus.TryPublish(event) {
		e.log.Debug("lifecycle event not delivered", logger.String("kind", string(event.Kind)))
	}
}
