package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Log: LogSettings{Level: "info", Console: true},
		Audio: AudioSettings{
			Source:       SourceTone,
			SampleRate:   44100,
			Channels:     1,
			BufferFrames: 512,
			ReadTimeout:  time.Second,
			Tone:         ToneSettings{Frequency: 440, Amplitude: 0.5},
			Retry:        RetrySettings{MaxAttempts: 3, InitialInterval: 10 * time.Millisecond, MaxInterval: time.Second},
		},
		Analysis: AnalysisSettings{
			Mode:         ModeSpectrum,
			WindowSize:   1024,
			Bands:        32,
			Overlap:      0.5,
			MinFrequency: 50,
			MaxFrequency: 16000,
			Aggregation:  AggregationRMS,
			Decay:        0.99,
			Floor:        0.01,
		},
		Sensitivity: SensitivitySettings{Value: 0.5, Gain: 3},
		Dispatch:    DispatchSettings{MaxRate: 30},
		Telemetry:   TelemetrySettings{Listen: "localhost:8090"},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"sensitivity above one", func(s *Settings) { s.Sensitivity.Value = 1.01 }, "sensitivity.value"},
		{"negative sensitivity", func(s *Settings) { s.Sensitivity.Value = -0.1 }, "sensitivity.value"},
		{"zero gain", func(s *Settings) { s.Sensitivity.Gain = 0 }, "sensitivity.gain"},
		{"window not power of two", func(s *Settings) { s.Analysis.WindowSize = 1000 }, "analysis.windowsize"},
		{"too many bands", func(s *Settings) { s.Analysis.Bands = 600 }, "analysis.bands"},
		{"bands exceed half window", func(s *Settings) { s.Analysis.WindowSize = 64; s.Analysis.Bands = 40 }, "exceeds half"},
		{"overlap of one", func(s *Settings) { s.Analysis.Overlap = 1 }, "analysis.overlap"},
		{"inverted frequencies", func(s *Settings) { s.Analysis.MaxFrequency = 10 }, "analysis.maxfrequency"},
		{"amplitude mode ignores frequencies", func(s *Settings) {
			s.Analysis.Mode = ModeAmplitude
			s.Analysis.MaxFrequency = 0
		}, ""},
		{"unknown aggregation", func(s *Settings) { s.Analysis.Aggregation = "mean" }, "analysis.aggregation"},
		{"unknown source", func(s *Settings) { s.Audio.Source = "pulse" }, "audio.source"},
		{"wav without file", func(s *Settings) { s.Audio.Source = SourceWAV }, "audio.file"},
		{"tone above nyquist", func(s *Settings) { s.Audio.Tone.Frequency = 30000 }, "audio.tone.frequency"},
		{"zero rate", func(s *Settings) { s.Dispatch.MaxRate = 0 }, "dispatch.maxrate"},
		{"bad telemetry listen", func(s *Settings) {
			s.Telemetry.Enabled = true
			s.Telemetry.Listen = "8090"
		}, "telemetry.listen"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
		{"retry intervals inverted", func(s *Settings) { s.Audio.Retry.MaxInterval = time.Millisecond }, "audio.retry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateEnvHelpers(t *testing.T) {
	t.Parallel()

	require.NoError(t, validateEnvBool(" true "))
	require.Error(t, validateEnvBool("yes"))
	require.NoError(t, validateEnvDuration("150ms"))
	require.Error(t, validateEnvDuration("-1s"))
	require.NoError(t, validateEnvUnitFloat("0"))
	require.Error(t, validateEnvUnitFloat("1.2"))
	require.Error(t, validateEnvPositiveInt("0"))
	require.Error(t, validateEnvSource("pulse"))
	require.NoError(t, validateEnvMode(ModeAmplitude))
	require.Error(t, validateEnvLogLevel("verbose"))
}
