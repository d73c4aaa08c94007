package visualizer

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/errors"
	"github.com/tphakala/audioviz/internal/events"
	"github.com/tphakala/audioviz/internal/logger"
)

// errEndOfInput ends a session whose source ran out of audio
var errEndOfInput = errors.NewStd("end of input")

// session is one Start..Stop cycle. Stage goroutines communicate only
// through the frame buffer and the wake and space channels.
type session struct {
	engine    *Engine
	id        string
	startedAt time.Time
	mode      string
	log       logger.Logger

	cancel    context.CancelFunc
	wake      chan struct{} // capture -> process: samples pushed
	space     chan struct{} // process -> capture: windows taken
	inputDone chan struct{}
	onDemand  bool
	fan       *fanout
	emit      *emitter

	norm     audiocore.NormState
	sequence uint64

	done chan struct{} // closed once the session is fully torn down
	err  error         // terminal error, readable after done is closed
}

func (s *session) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.capture(gctx) })
	g.Go(func() error { return s.process(gctx) })
	g.Go(func() error { return s.emit.run(gctx) })

	go s.supervise(g)
}

// supervise waits for the stages, tears the session down and records the
// terminal error.
func (s *session) supervise(g *errgroup.Group) {
	err := g.Wait()
	s.cancel()

	// At end of input subscribers still get the frames already queued for them
	if errors.Is(err, errEndOfInput) {
		s.fan.drain()
	} else {
		s.fan.close()
	}
	s.engine.subs.detach(s.fan)

	if cerr := s.engine.source.Close(); cerr != nil {
		s.log.Warn("failed to close audio source", logger.Error(cerr))
	}
	s.engine.buffer.Reset()

	if errors.Is(err, errEndOfInput) || errors.Is(err, context.Canceled) {
		err = nil
	}
	s.err = err

	if err != nil {
		s.log.Error("session ended with error", logger.Error(err))
	} else {
		s.log.Info("session stopped", logger.Duration("duration", time.Since(s.startedAt)))
	}

	s.engine.publish(events.Event{
		Kind:      events.KindAudioStopped,
		SessionID: s.id,
		Err:       err,
	})

	s.engine.endSession(s)
	close(s.done)
}

// capture reads the source into the frame buffer. A disconnect triggers a
// reconnect with the same configuration; end of input ends the session.
func (s *session) capture(ctx context.Context) error {
	src := s.engine.source
	buffer := s.engine.buffer

	for {
		if s.onDemand {
			if err := s.waitForSpace(ctx); err != nil {
				return nil
			}
		}

		frame, err := src.Read(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, io.EOF):
				s.log.Debug("audio source reached end of input")
				close(s.inputDone)
				return nil
			case errors.Is(err, audiocore.ErrDeviceDisconnected):
				audiocore.GetMetrics().RecordSourceError(src.ID(), "disconnected")
				if rerr := s.reconnect(ctx, err); rerr != nil {
					return rerr
				}
				continue
			default:
				audiocore.GetMetrics().RecordSourceError(src.ID(), "read")
				return err
			}
		}

		if dropped := buffer.Push(frame); dropped > 0 {
			s.engine.dropped.Add(uint64(dropped))
			audiocore.GetMetrics().RecordSamplesDropped(src.ID(), "buffer", uint64(dropped))
		}

		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// waitForSpace holds capture back until a full read fits in the buffer.
// Capacity is one window plus one read, so processing can always take a
// window while capture waits.
func (s *session) waitForSpace(ctx context.Context) error {
	for s.engine.buffer.Free() < s.engine.readSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.space:
		}
	}
	return nil
}

// process turns every available window into a visualization frame. At end
// of input it hands the last frames to the emitter, which ends the session.
func (s *session) process(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
			if err := s.drain(); err != nil {
				return err
			}
		case <-s.inputDone:
			if err := s.drain(); err != nil {
				return err
			}
			s.emit.finish()
			return nil
		}
	}
}

func (s *session) drain() error {
	defer func() {
		select {
		case s.space <- struct{}{}:
		default:
		}
	}()

	for {
		window, ok := s.engine.buffer.TryTakeWindow()
		if !ok {
			return nil
		}
		if err := s.analyze(window); err != nil {
			return err
		}
	}
}

// analyze runs one processing cycle. Sensitivity is read once per cycle.
func (s *session) analyze(window audiocore.AnalysisWindow) error {
	sensitivity := s.engine.sensitivity.Value()

	start := time.Now()
	values, next, err := s.engine.analyzer.Analyze(window, s.norm)
	if err != nil {
		audiocore.GetMetrics().RecordAnalysisError(s.mode)
		return err
	}
	audiocore.GetMetrics().RecordAnalysis(s.mode, time.Since(start))
	s.engine.analyzed.Add(1)
	s.norm = next

	s.sequence++
	s.emit.offer(audiocore.VisualizationFrame{
		Values:    s.engine.sensitivity.ApplyWith(values, sensitivity),
		Sequence:  s.sequence,
		Timestamp: time.Now(),
		SessionID: s.id,
	})
	return nil
}
