package malgo

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gen2brain/malgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/errors"
)

func TestConvertToS16(t *testing.T) {
	t.Parallel()

	f32 := make([]byte, 8)
	binary.LittleEndian.PutUint32(f32, math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(f32[4:], math.Float32bits(-2))

	highWord := int32(-65536)
	s32 := make([]byte, 4)
	binary.LittleEndian.PutUint32(s32, uint32(highWord))

	tests := []struct {
		name   string
		format malgo.FormatType
		input  []byte
		want   []int16
	}{
		{"s16 passthrough", malgo.FormatS16, []byte{0x01, 0x00, 0xff, 0xff}, []int16{1, -1}},
		{"u8 centre and extremes", malgo.FormatU8, []byte{128, 0, 255}, []int16{0, -32768, 32512}},
		{"s24 negative sign extends", malgo.FormatS24, []byte{0x00, 0x00, 0x80}, []int16{-32768}},
		{"s24 positive", malgo.FormatS24, []byte{0x00, 0x01, 0x00}, []int16{1}},
		{"s32 keeps high word", malgo.FormatS32, s32, []int16{-1}},
		{"f32 scales and clamps", malgo.FormatF32, f32, []int16{16383, -32768}},
		{"partial trailing sample ignored", malgo.FormatS16, []byte{0x02, 0x00, 0x07}, []int16{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ConvertToS16(tt.input, tt.format, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertToS16UnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := ConvertToS16([]byte{1, 2}, malgo.FormatUnknown, nil)
	require.Error(t, err)
}

func TestGetFormatInfo(t *testing.T) {
	t.Parallel()

	size, name := GetFormatInfo(malgo.FormatS24)
	assert.Equal(t, 3, size)
	assert.Equal(t, "S24", name)

	size, name = GetFormatInfo(malgo.FormatUnknown)
	assert.Zero(t, size)
	assert.Equal(t, "Unknown", name)
}

func TestSelectDevice(t *testing.T) {
	t.Parallel()

	devices := []DeviceInfo{
		{Index: 0, Name: "HDA Intel PCH: ALC892 Analog", ID: ":0,0"},
		{Index: 2, Name: "USB Audio Device", ID: ":1,0", IsDefault: true},
		{Index: 3, Name: "Loopback", ID: ":2,0"},
	}

	tests := []struct {
		name string
		want string
		idx  int
	}{
		{"default alias", "default", 2},
		{"empty means default", "", 2},
		{"exact name", "Loopback", 3},
		{"decoded id", ":0,0", 0},
		{"partial name", "USB", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			idx, err := selectDevice(devices, tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.idx, idx)
		})
	}
}

func TestSelectDeviceFallsBackToFirst(t *testing.T) {
	t.Parallel()

	idx, err := selectDevice([]DeviceInfo{{Index: 4, Name: "only"}}, "default")
	require.NoError(t, err)
	assert.Equal(t, 4, idx)
}

func TestSelectDeviceNoMatch(t *testing.T) {
	t.Parallel()

	_, err := selectDevice([]DeviceInfo{{Index: 0, Name: "mic"}}, "webcam")
	require.Error(t, err)
	assert.ErrorIs(t, err, audiocore.ErrDeviceUnavailable)

	_, err = selectDevice(nil, "default")
	assert.ErrorIs(t, err, audiocore.ErrDeviceUnavailable)
}

func TestDecodeDeviceID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ":1,0", decodeDeviceID("3a312c30000000"))
	assert.Equal(t, "not-hex", decodeDeviceID("not-hex"))
}

func TestReadBeforeOpenReportsDisconnect(t *testing.T) {
	t.Parallel()

	s := NewSource("mic", Config{})
	_, err := s.Read(t.Context())
	require.Error(t, err)
	assert.True(t, errors.Is(err, audiocore.ErrDeviceDisconnected))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestNewSourceDefaults(t *testing.T) {
	t.Parallel()

	s := NewSource("mic", Config{})
	f := s.Format()
	assert.Equal(t, audiocore.DefaultSampleRate, f.SampleRate)
	assert.Equal(t, audiocore.DefaultChannels, f.Channels)
	assert.Equal(t, audiocore.DefaultReadTimeout, s.config.ReadTimeout)
	assert.Equal(t, "mic", s.ID())
}

func TestOnAudioDataDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	s := NewSource("mic", Config{QueueSize: 1})
	c := &capture{
		frames:     make(chan audiocore.AudioFrame, 1),
		stopped:    make(chan struct{}),
		done:       make(chan struct{}),
		formatType: malgo.FormatS16,
		format:     audiocore.DefaultFormat(),
	}

	s.onAudioData(c, []byte{1, 0, 2, 0}, 2)
	s.onAudioData(c, []byte{3, 0, 4, 0}, 2)

	assert.Equal(t, uint64(1), s.Dropped())
	frame := <-c.frames
	assert.Equal(t, []int16{1, 2}, frame.Samples)

	s.onDeviceStop(c)
	s.onDeviceStop(c)
	select {
	case <-c.stopped:
	default:
		t.Fatal("stop callback did not close the stopped channel")
	}
}
