package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/audiocore/sources/malgo"
	"github.com/tphakala/audioviz/internal/audiocore/sources/tone"
	"github.com/tphakala/audioviz/internal/audiocore/sources/wavfile"
	"github.com/tphakala/audioviz/internal/conf"
)

func audioSettings(source string) *conf.Settings {
	return &conf.Settings{Audio: conf.AudioSettings{
		Source:       source,
		Device:       "default",
		SampleRate:   8000,
		Channels:     1,
		BufferFrames: 80,
		ReadTimeout:  time.Second,
		File:         "input.wav",
		Realtime:     true,
		Tone:         conf.ToneSettings{Frequency: 440, Amplitude: 0.5},
	}}
}

func TestNewSelectsSource(t *testing.T) {
	t.Parallel()

	src, err := New(audioSettings(conf.SourceMalgo))
	require.NoError(t, err)
	assert.IsType(t, &malgo.Source{}, src)
	assert.Equal(t, "malgo:default", src.ID())

	src, err = New(audioSettings(conf.SourceWAV))
	require.NoError(t, err)
	assert.IsType(t, &wavfile.Source{}, src)

	src, err = New(audioSettings(conf.SourceTone))
	require.NoError(t, err)
	assert.IsType(t, &tone.Source{}, src)
	assert.Equal(t, 8000, src.Format().SampleRate)
}

func TestNewRejectsBadSettings(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, audiocore.ErrInvalidConfig)

	s := audioSettings("rtsp")
	_, err = New(s)
	require.ErrorIs(t, err, audiocore.ErrInvalidConfig)

	s = audioSettings(conf.SourceWAV)
	s.Audio.File = ""
	_, err = New(s)
	require.ErrorIs(t, err, audiocore.ErrInvalidConfig)
}
