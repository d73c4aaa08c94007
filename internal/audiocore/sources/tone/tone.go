// Package tone provides a synthetic sine wave audio source. It never fails,
// which makes it useful for demos and for exercising the pipeline without
// hardware.
package tone

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/tphakala/audioviz/internal/audiocore"
)

// Config describes the generated signal.
type Config struct {
	SampleRate   int
	Frequency    float64       // Hz
	Amplitude    float64       // 0..1 of full scale
	BufferFrames int           // samples per Read
	Pace         time.Duration // wait between reads, zero reads as fast as possible
}

// Source generates a continuous mono sine wave.
type Source struct {
	id     string
	config Config

	mu    sync.Mutex
	phase float64
	next  time.Time
}

// NewSource creates a tone source. Zero fields take package defaults.
func NewSource(id string, config Config) *Source {
	if config.SampleRate <= 0 {
		config.SampleRate = audiocore.DefaultSampleRate
	}
	if config.BufferFrames <= 0 {
		config.BufferFrames = audiocore.DefaultBufferFrames
	}
	config.Amplitude = math.Max(0, math.Min(1, config.Amplitude))

	return &Source{id: id, config: config}
}

func (s *Source) ID() string { return s.id }

// OnDemand reports whether reads are unpaced.
func (s *Source) OnDemand() bool { return s.config.Pace <= 0 }

func (s *Source) Format() audiocore.AudioFormat {
	return audiocore.AudioFormat{
		SampleRate: s.config.SampleRate,
		Channels:   1,
		BitDepth:   audiocore.DefaultBitDepth,
		Encoding:   audiocore.EncodingPCM16LE,
	}
}

// Open resets the pacing clock. Phase carries over so a reopened tone
// continues without a discontinuity.
func (s *Source) Open(ctx context.Context) error {
	s.mu.Lock()
	s.next = time.Time{}
	s.mu.Unlock()
	return ctx.Err()
}

// Read returns the next BufferFrames samples of the tone.
func (s *Source) Read(ctx context.Context) (audiocore.AudioFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Pace > 0 {
		now := time.Now()
		if s.next.IsZero() {
			s.next = now
		}
		if wait := s.next.Sub(now); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return audiocore.AudioFrame{}, ctx.Err()
			}
		}
		s.next = s.next.Add(s.config.Pace)
	} else if err := ctx.Err(); err != nil {
		return audiocore.AudioFrame{}, err
	}

	step := 2 * math.Pi * s.config.Frequency / float64(s.config.SampleRate)
	samples := make([]int16, s.config.BufferFrames)
	scale := s.config.Amplitude * 32767
	for i := range samples {
		samples[i] = int16(math.Round(scale * math.Sin(s.phase)))
		s.phase = math.Mod(s.phase+step, 2*math.Pi)
	}

	return audiocore.AudioFrame{
		Samples:   samples,
		Format:    s.Format(),
		Timestamp: time.Now(),
	}, nil
}

func (s *Source) Close() error { return nil }
