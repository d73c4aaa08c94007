package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/audioviz/internal/errors"
	"github.com/tphakala/audioviz/internal/logger"
)

// Config holds event bus configuration
type Config struct {
	BufferSize int
	Workers    int
}

// DefaultConfig returns the default event bus configuration
func DefaultConfig() Config {
	return Config{
		BufferSize: 64,
		Workers:    1,
	}
}

// Bus delivers events to registered consumers asynchronously.
type Bus struct {
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	consumers []Consumer
	running   atomic.Bool

	received  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	errs      atomic.Uint64

	log logger.Logger
}

// NewBus creates and starts a bus. A nil log uses the global logger.
func NewBus(cfg Config, log logger.Logger) *Bus {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if log == nil {
		log = logger.Global().Module("events")
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		events: make(chan Event, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
	b.running.Store(true)

	for i := range cfg.Workers {
		b.wg.Go(func() { b.worker(i) })
	}

	log.Debug("event bus started",
		logger.Int("buffer_size", cfg.BufferSize),
		logger.Int("workers", cfg.Workers))

	return b
}

// Register adds a consumer. Names must be unique.
func (b *Bus) Register(consumer Consumer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.consumers {
		if existing.Name() == consumer.Name() {
			return errors.Newf("consumer %s already registered", consumer.Name()).
				Component("events").
				Category(errors.CategoryEvent).
				Build()
		}
	}
	b.consumers = append(b.consumers, consumer)
	return nil
}

// TryPublish queues an event without blocking. It returns false when the
// event was dropped because the bus is stopped, has no consumers or is full.
func (b *Bus) TryPublish(event Event) bool {
	if b == nil || !b.running.Load() {
		return false
	}

	b.mu.Lock()
	hasConsumers := len(b.consumers) > 0
	b.mu.Unlock()
	if !hasConsumers {
		return false
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.events <- event:
		b.received.Add(1)
		return true
	default:
		b.dropped.Add(1)
		b.log.Debug("event dropped due to full buffer", logger.String("kind", string(event.Kind)))
		return false
	}
}

func (b *Bus) worker(id int) {
	log := b.log.With(logger.Int("worker_id", id))
	for {
		select {
		case <-b.ctx.Done():
			return
		case event := <-b.events:
			b.dispatch(event, log)
		}
	}
}

// dispatch hands the event to every consumer, isolating panics
func (b *Bus) dispatch(event Event, log logger.Logger) {
	b.mu.Lock()
	consumers := make([]Consumer, len(b.consumers))
	copy(consumers, b.consumers)
	b.mu.Unlock()

	for _, consumer := range consumers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.errs.Add(1)
					log.Error("consumer panicked",
						logger.String("consumer", consumer.Name()),
						logger.String("kind", string(event.Kind)),
						logger.Any("panic", r))
				}
			}()

			if err := consumer.Consume(event); err != nil {
				b.errs.Add(1)
				log.Warn("consumer error",
					logger.String("consumer", consumer.Name()),
					logger.String("kind", string(event.Kind)),
					logger.Error(err))
				return
			}
			b.processed.Add(1)
		}()
	}
}

// Shutdown stops the workers. Queued events not yet picked up are discarded.
func (b *Bus) Shutdown(timeout time.Duration) error {
	if b == nil || !b.running.Swap(false) {
		return nil
	}
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return errors.Newf("event bus shutdown timeout exceeded").
			Component("events").
			Category(errors.CategoryTimeout).
			Context("operation", "shutdown").
			Context("timeout", timeout.String()).
			Build()
	}
}

// Stats returns current counters
func (b *Bus) Stats() Stats {
	if b == nil {
		return Stats{}
	}
	return Stats{
		EventsReceived:  b.received.Load(),
		EventsProcessed: b.processed.Load(),
		EventsDropped:   b.dropped.Load(),
		ConsumerErrors:  b.errs.Load(),
	}
}
