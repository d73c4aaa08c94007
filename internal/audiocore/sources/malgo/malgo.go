// Package malgo provides a malgo-based soundcard audio source implementation
package malgo

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/errors"
	"github.com/tphakala/audioviz/internal/logger"
)

const componentMalgo = "audiocore.malgo"

var log = logger.Global().Module("audiocore").Module("malgo")

// Config contains configuration for the malgo audio source
type Config struct {
	DeviceName   string
	SampleRate   uint32
	Channels     uint8
	BufferFrames uint32
	ReadTimeout  time.Duration // no frame for this long reports a disconnect
	QueueSize    int           // frames held between the device callback and Read
}

// capture is the state of one Open..Close cycle
type capture struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	frames   chan audiocore.AudioFrame
	stopped  chan struct{} // closed when the backend stops the device
	stopOnce sync.Once
	done     chan struct{} // closed by Close
	closing  atomic.Bool

	formatType malgo.FormatType
	format     audiocore.AudioFormat
}

// Source implements audiocore.AudioSource using malgo for cross-platform audio capture
type Source struct {
	id     string
	config Config

	mu  sync.Mutex
	cur *capture

	dropped atomic.Uint64
}

// NewSource creates a new malgo-based audio source
func NewSource(id string, config Config) *Source {
	if config.SampleRate == 0 {
		config.SampleRate = audiocore.DefaultSampleRate
	}
	if config.Channels == 0 {
		config.Channels = audiocore.DefaultChannels
	}
	if config.BufferFrames == 0 {
		config.BufferFrames = audiocore.DefaultBufferFrames
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = audiocore.DefaultReadTimeout
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 16
	}

	return &Source{id: id, config: config}
}

// ID returns a unique identifier for this source
func (s *Source) ID() string {
	return s.id
}

// Format returns the format of frames delivered by Read. Before Open it
// reports the requested format.
func (s *Source) Format() audiocore.AudioFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		return s.cur.format
	}
	return audiocore.AudioFormat{
		SampleRate: int(s.config.SampleRate),
		Channels:   int(s.config.Channels),
		BitDepth:   audiocore.DefaultBitDepth,
		Encoding:   audiocore.EncodingPCM16LE,
	}
}

// Dropped returns the number of frames discarded because Read fell behind.
func (s *Source) Dropped() uint64 {
	return s.dropped.Load()
}

// Open initializes the backend context and starts the capture device.
// Calling Open on an open source reopens it.
func (s *Source) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur != nil {
		s.closeLocked()
	}

	allocated, err := initContext()
	if err != nil {
		return err
	}

	infos, err := allocated.Devices(malgo.Capture)
	if err != nil {
		releaseContext(allocated)
		return errors.New(errors.Join(audiocore.ErrDeviceUnavailable, err)).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("source_id", s.id).
			Context("operation", "enumerate_devices").
			Build()
	}
	if len(infos) == 0 {
		// Backends that withhold microphone access report no capture devices
		releaseContext(allocated)
		return errors.New(audiocore.ErrPermissionDenied).
			Component(componentMalgo).
			Category(errors.CategoryPermission).
			Context("source_id", s.id).
			Build()
	}

	idx, err := selectDevice(toDeviceInfos(infos), s.config.DeviceName)
	if err != nil {
		releaseContext(allocated)
		return err
	}

	c := &capture{
		ctx:     allocated,
		frames:  make(chan audiocore.AudioFrame, s.config.QueueSize),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(s.config.Channels)
	deviceConfig.Capture.DeviceID = infos[idx].ID.Pointer()
	deviceConfig.SampleRate = s.config.SampleRate
	deviceConfig.PeriodSizeInFrames = s.config.BufferFrames
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, framecount uint32) {
			s.onAudioData(c, input, framecount)
		},
		Stop: func() {
			s.onDeviceStop(c)
		},
	}

	device, err := malgo.InitDevice(allocated.Context, deviceConfig, callbacks)
	if err != nil {
		releaseContext(allocated)
		return errors.New(errors.Join(audiocore.ErrDeviceUnavailable, err)).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("source_id", s.id).
			Context("device_name", infos[idx].Name()).
			Context("operation", "init_device").
			Build()
	}
	c.device = device
	c.formatType = device.CaptureFormat()
	c.format = audiocore.AudioFormat{
		SampleRate: int(device.SampleRate()),
		Channels:   int(s.config.Channels),
		BitDepth:   audiocore.DefaultBitDepth,
		Encoding:   audiocore.EncodingPCM16LE,
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		releaseContext(allocated)
		return errors.New(errors.Join(audiocore.ErrDeviceUnavailable, err)).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("source_id", s.id).
			Context("operation", "start_device").
			Build()
	}

	s.cur = c

	_, formatName := GetFormatInfo(c.formatType)
	log.Info("capture device started",
		logger.String("source_id", s.id),
		logger.String("device", infos[idx].Name()),
		logger.Int("sample_rate", c.format.SampleRate),
		logger.Int("channels", c.format.Channels),
		logger.String("native_format", formatName))

	return nil
}

// Read returns the next captured frame.
func (s *Source) Read(ctx context.Context) (audiocore.AudioFrame, error) {
	s.mu.Lock()
	c := s.cur
	timeout := s.config.ReadTimeout
	s.mu.Unlock()

	if c == nil {
		return audiocore.AudioFrame{}, errors.New(audiocore.ErrDeviceDisconnected).
			Component(componentMalgo).
			Category(errors.CategoryState).
			Context("source_id", s.id).
			Context("reason", "source not open").
			Build()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// Frames already queued are delivered before a stop is reported
	select {
	case frame := <-c.frames:
		return frame, nil
	default:
	}

	select {
	case frame := <-c.frames:
		return frame, nil
	case <-c.stopped:
		return audiocore.AudioFrame{}, s.disconnected("device stopped")
	case <-timer.C:
		return audiocore.AudioFrame{}, s.disconnected("read timeout")
	case <-c.done:
		return audiocore.AudioFrame{}, s.disconnected("source closed")
	case <-ctx.Done():
		return audiocore.AudioFrame{}, ctx.Err()
	}
}

// Close stops and releases the device. It is safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *Source) closeLocked() {
	c := s.cur
	if c == nil {
		return
	}
	s.cur = nil

	c.closing.Store(true)
	close(c.done)

	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
	}
	releaseContext(c.ctx)

	log.Debug("capture device closed", logger.String("source_id", s.id))
}

func (s *Source) disconnected(reason string) error {
	audiocore.GetMetrics().RecordSourceError(s.id, "disconnected")
	return errors.New(audiocore.ErrDeviceDisconnected).
		Component(componentMalgo).
		Category(errors.CategoryAudioDevice).
		Context("source_id", s.id).
		Context("reason", reason).
		Build()
}

// onAudioData is called by malgo on the backend thread when audio is available
func (s *Source) onAudioData(c *capture, input []byte, framecount uint32) {
	if c.closing.Load() || framecount == 0 {
		return
	}

	samples, err := ConvertToS16(input, c.formatType, make([]int16, 0, int(framecount)*c.format.Channels))
	if err != nil {
		log.Warn("audio conversion failed",
			logger.String("source_id", s.id),
			logger.Error(err))
		return
	}

	frame := audiocore.AudioFrame{
		Samples:   samples,
		Format:    c.format,
		Timestamp: time.Now(),
	}

	// The backend thread must never block
	select {
	case c.frames <- frame:
	default:
		s.dropped.Add(1)
		audiocore.GetMetrics().RecordSamplesDropped(s.id, "source", uint64(len(samples)))
	}
}

// onDeviceStop is called when the device stops, including after Close
func (s *Source) onDeviceStop(c *capture) {
	c.stopOnce.Do(func() { close(c.stopped) })
	if !c.closing.Load() {
		log.Warn("audio device stopped unexpectedly", logger.String("source_id", s.id))
	}
}
