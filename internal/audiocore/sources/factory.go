// Package sources builds the configured audio source.
package sources

import (
	"time"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/audiocore/sources/malgo"
	"github.com/tphakala/audioviz/internal/audiocore/sources/tone"
	"github.com/tphakala/audioviz/internal/audiocore/sources/wavfile"
	"github.com/tphakala/audioviz/internal/conf"
)

// New creates the audio source selected by settings.Audio.Source.
func New(settings *conf.Settings) (audiocore.AudioSource, error) {
	if settings == nil {
		return nil, audiocore.InvalidConfig(audiocore.ComponentAudioCore, "settings are nil")
	}
	a := settings.Audio

	switch a.Source {
	case conf.SourceMalgo, "":
		return malgo.NewSource("malgo:"+a.Device, malgo.Config{
			DeviceName:   a.Device,
			SampleRate:   uint32(a.SampleRate),
			Channels:     uint8(a.Channels),
			BufferFrames: uint32(a.BufferFrames),
			ReadTimeout:  a.ReadTimeout,
		}), nil

	case conf.SourceWAV:
		if a.File == "" {
			return nil, audiocore.InvalidConfig(audiocore.ComponentAudioCore, "wav source requires audio.file")
		}
		return wavfile.NewSource("wav:"+a.File, wavfile.Config{
			Path:         a.File,
			BufferFrames: a.BufferFrames,
			Realtime:     a.Realtime,
		}), nil

	case conf.SourceTone:
		var pace time.Duration
		if a.Realtime && a.SampleRate > 0 {
			pace = time.Duration(a.BufferFrames) * time.Second / time.Duration(a.SampleRate)
		}
		return tone.NewSource("tone", tone.Config{
			SampleRate:   a.SampleRate,
			Frequency:    a.Tone.Frequency,
			Amplitude:    a.Tone.Amplitude,
			BufferFrames: a.BufferFrames,
			Pace:         pace,
		}), nil

	default:
		return nil, audiocore.InvalidConfig(audiocore.ComponentAudioCore, "unknown audio source: "+a.Source)
	}
}

// ListDevices returns the capture devices known to the platform backend.
func ListDevices() ([]malgo.DeviceInfo, error) {
	return malgo.EnumerateDevices()
}
