// Package wavfile reads PCM WAV files as an audio source and writes test
// tones to WAV.
package wavfile

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/errors"
	"github.com/tphakala/audioviz/internal/logger"
)

const componentWAV = "audiocore.wavfile"

var log = logger.Global().Module("audiocore").Module("wavfile")

// Config describes how the file is read.
type Config struct {
	Path         string
	BufferFrames int  // sample frames per Read
	Realtime     bool // pace reads at the file's playback speed
}

// Source decodes a WAV file frame by frame. Read returns io.EOF at the end of
// the file; Open rewinds to the beginning.
type Source struct {
	id     string
	config Config

	mu      sync.Mutex
	file    *os.File
	decoder *wav.Decoder
	buf     *audio.IntBuffer
	format  audiocore.AudioFormat
	next    time.Time
}

// NewSource creates a WAV source for path.
func NewSource(id string, config Config) *Source {
	if config.BufferFrames <= 0 {
		config.BufferFrames = audiocore.DefaultBufferFrames
	}
	return &Source{id: id, config: config}
}

func (s *Source) ID() string { return s.id }

// OnDemand reports true: a file can always wait for the reader.
func (s *Source) OnDemand() bool { return true }

// Format returns the decoded file format. It is zero until Open succeeds.
func (s *Source) Format() audiocore.AudioFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// Open opens and validates the file. A missing or unreadable file reports
// ErrDeviceUnavailable.
func (s *Source) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()

	file, err := os.Open(s.config.Path)
	if err != nil {
		return s.unavailable(err, "open_file")
	}

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		_ = file.Close()
		return s.unavailable(errors.NewStd("invalid WAV file format"), "validate_file")
	}

	switch decoder.BitDepth {
	case 8, 16, 24, 32:
	default:
		_ = file.Close()
		return s.unavailable(errors.NewStd("unsupported bit depth"), "validate_file")
	}

	channels := int(decoder.NumChans)
	format := audiocore.AudioFormat{
		SampleRate: int(decoder.SampleRate),
		Channels:   channels,
		BitDepth:   audiocore.DefaultBitDepth,
		Encoding:   audiocore.EncodingPCM16LE,
	}
	if err := format.Validate(); err != nil {
		_ = file.Close()
		return s.unavailable(err, "validate_format")
	}

	s.file = file
	s.decoder = decoder
	s.format = format
	s.next = time.Time{}
	s.buf = &audio.IntBuffer{
		Data: make([]int, s.config.BufferFrames*channels),
		Format: &audio.Format{
			SampleRate:  format.SampleRate,
			NumChannels: channels,
		},
	}

	log.Info("wav file opened",
		logger.String("source_id", s.id),
		logger.String("path", s.config.Path),
		logger.Int("sample_rate", format.SampleRate),
		logger.Int("channels", channels),
		logger.Int("bit_depth", int(decoder.BitDepth)))

	return nil
}

// Read decodes the next block of samples.
func (s *Source) Read(ctx context.Context) (audiocore.AudioFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.decoder == nil {
		return audiocore.AudioFrame{}, errors.New(audiocore.ErrDeviceDisconnected).
			Component(componentWAV).
			Category(errors.CategoryState).
			Context("source_id", s.id).
			Context("reason", "source not open").
			Build()
	}

	if err := s.pace(ctx); err != nil {
		return audiocore.AudioFrame{}, err
	}

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		audiocore.GetMetrics().RecordSourceError(s.id, "decode")
		return audiocore.AudioFrame{}, errors.New(errors.Join(audiocore.ErrDeviceDisconnected, err)).
			Component(componentWAV).
			Category(errors.CategoryFileIO).
			Context("source_id", s.id).
			Context("operation", "decode_pcm").
			Build()
	}
	if n == 0 {
		return audiocore.AudioFrame{}, io.EOF
	}

	samples := make([]int16, n)
	shift := int(s.decoder.BitDepth)
	for i, v := range s.buf.Data[:n] {
		samples[i] = toInt16(v, shift)
	}

	return audiocore.AudioFrame{
		Samples:   samples,
		Format:    s.format,
		Timestamp: time.Now(),
	}, nil
}

// pace sleeps until the next block is due when realtime playback is on
func (s *Source) pace(ctx context.Context) error {
	if !s.config.Realtime {
		return ctx.Err()
	}

	now := time.Now()
	if s.next.IsZero() {
		s.next = now
	}
	if wait := s.next.Sub(now); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.next = s.next.Add(time.Duration(s.config.BufferFrames) * time.Second / time.Duration(s.format.SampleRate))
	return nil
}

// Close closes the file. It is safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Source) closeLocked() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.decoder = nil
	return err
}

func (s *Source) unavailable(err error, operation string) error {
	return errors.New(errors.Join(audiocore.ErrDeviceUnavailable, err)).
		Component(componentWAV).
		Category(errors.CategoryFileIO).
		FileContext(s.config.Path, 0).
		Context("source_id", s.id).
		Context("operation", operation).
		Build()
}

// toInt16 rescales a decoded sample of the given bit depth to 16 bits.
// 8-bit WAV data is unsigned.
func toInt16(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

// Probe reads the header of a WAV file and returns the format Read will
// deliver.
func Probe(path string) (audiocore.AudioFormat, error) {
	s := NewSource("probe", Config{Path: path})
	if err := s.Open(context.Background()); err != nil {
		return audiocore.AudioFormat{}, err
	}
	defer s.Close()
	return s.Format(), nil
}
