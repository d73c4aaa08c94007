// Package events provides a non-blocking bus for session lifecycle events.
// Publishers never wait on consumers; a slow or failing consumer only loses
// its own events.
package events

import (
	"fmt"
	"time"

	"github.com/tphakala/audioviz/internal/errors"
)

// Kind names a lifecycle event.
type Kind string

const (
	// KindAudioStarted is published once capture is active
	KindAudioStarted Kind = "audio_started"
	// KindAudioStopped is published when a session ends for any reason
	KindAudioStopped Kind = "audio_stopped"
)

// ErrInvalidEvent is returned for unknown event names
var ErrInvalidEvent = errors.NewStd("invalid event")

// ParseKind validates an event name.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(name); k {
	case KindAudioStarted, KindAudioStopped:
		return k, nil
	}
	return "", errors.New(fmt.Errorf("%w: %q", ErrInvalidEvent, name)).
		Component("events").
		Category(errors.CategoryEvent).
		Context("event_name", name).
		Build()
}

// Event is one lifecycle notification.
type Event struct {
	Kind      Kind
	SessionID string
	Timestamp time.Time
	Err       error // terminal session error for KindAudioStopped, nil on a clean stop
}

// Consumer receives events on a bus worker goroutine.
type Consumer interface {
	// Name identifies the consumer in logs
	Name() string

	// Consume handles one event. Errors are counted and logged.
	Consume(event Event) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc struct {
	ID string
	Fn func(Event) error
}

func (c ConsumerFunc) Name() string { return c.ID }

func (c ConsumerFunc) Consume(event Event) error { return c.Fn(event) }

// Filter returns a consumer that passes only the named kinds to c. Names are
// checked with ParseKind. With no names c is returned unchanged.
func Filter(c Consumer, names ...string) (Consumer, error) {
	if len(names) == 0 {
		return c, nil
	}
	kinds := make(map[Kind]struct{}, len(names))
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds[k] = struct{}{}
	}
	return &kindFilter{next: c, kinds: kinds}, nil
}

type kindFilter struct {
	next  Consumer
	kinds map[Kind]struct{}
}

func (f *kindFilter) Name() string { return f.next.Name() }

func (f *kindFilter) Consume(event Event) error {
	if _, ok := f.kinds[event.Kind]; !ok {
		return nil
	}
	return f.next.Consume(event)
}

// Stats contains runtime counters for monitoring
type Stats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
}
