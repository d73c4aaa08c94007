// conf/validate.go

package conf

import (
	"fmt"
	"math/bits"
	"net"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateLogSettings(&settings.Log)...)
	ve.Errors = append(ve.Errors, validateAudioSettings(&settings.Audio)...)
	ve.Errors = append(ve.Errors, validateAnalysisSettings(&settings.Analysis, settings.Audio.SampleRate)...)
	ve.Errors = append(ve.Errors, validateSensitivitySettings(&settings.Sensitivity)...)

	if settings.Dispatch.MaxRate <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("dispatch.maxrate must be positive, got %g", settings.Dispatch.MaxRate))
	}

	if settings.Telemetry.Enabled {
		if _, _, err := net.SplitHostPort(settings.Telemetry.Listen); err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("telemetry.listen '%s' is not a host:port address", settings.Telemetry.Listen))
		}
	}

	if settings.Sentry.Enabled && strings.TrimSpace(settings.Sentry.DSN) == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLogSettings(s *LogSettings) []string {
	var errs []string
	if err := validateEnvLogLevel(s.Level); err != nil {
		errs = append(errs, "log.level: "+err.Error())
	}
	if s.File.Enabled {
		if s.File.Path == "" {
			errs = append(errs, "log.file.path is required when file logging is enabled")
		}
		if s.File.MaxSize < 0 || s.File.MaxBackups < 0 || s.File.MaxAge < 0 {
			errs = append(errs, "log.file rotation limits must not be negative")
		}
	}
	return errs
}

func validateAudioSettings(s *AudioSettings) []string {
	var errs []string

	if err := validateEnvSource(s.Source); err != nil {
		errs = append(errs, "audio.source: "+err.Error())
	}
	if s.Source == SourceWAV && s.File == "" {
		errs = append(errs, "audio.file is required for the wav source")
	}
	if s.SampleRate < minSampleRate || s.SampleRate > maxSampleRate {
		errs = append(errs, fmt.Sprintf("audio.samplerate must be between %d and %d, got %d", minSampleRate, maxSampleRate, s.SampleRate))
	}
	if s.Channels < 1 || s.Channels > maxChannels {
		errs = append(errs, fmt.Sprintf("audio.channels must be between 1 and %d, got %d", maxChannels, s.Channels))
	}
	if s.BufferFrames <= 0 {
		errs = append(errs, fmt.Sprintf("audio.bufferframes must be positive, got %d", s.BufferFrames))
	}
	if s.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("audio.readtimeout must be positive, got %s", s.ReadTimeout))
	}
	if s.Source == SourceTone {
		if s.Tone.Frequency <= 0 || s.Tone.Frequency >= float64(s.SampleRate)/2 {
			errs = append(errs, fmt.Sprintf("audio.tone.frequency must be between 0 and Nyquist, got %g", s.Tone.Frequency))
		}
		if s.Tone.Amplitude < 0 || s.Tone.Amplitude > 1 {
			errs = append(errs, fmt.Sprintf("audio.tone.amplitude must be between 0 and 1, got %g", s.Tone.Amplitude))
		}
	}
	if s.Retry.MaxAttempts < 0 {
		errs = append(errs, fmt.Sprintf("audio.retry.maxattempts must not be negative, got %d", s.Retry.MaxAttempts))
	}
	if s.Retry.InitialInterval <= 0 || s.Retry.MaxInterval < s.Retry.InitialInterval {
		errs = append(errs, "audio.retry intervals must be positive with maxinterval >= initialinterval")
	}

	return errs
}

func validateAnalysisSettings(s *AnalysisSettings, sampleRate int) []string {
	var errs []string

	if err := validateEnvMode(s.Mode); err != nil {
		errs = append(errs, "analysis.mode: "+err.Error())
	}
	if s.WindowSize < minWindowSize || s.WindowSize > maxWindowSize || bits.OnesCount(uint(s.WindowSize)) != 1 {
		errs = append(errs, fmt.Sprintf("analysis.windowsize must be a power of two between %d and %d, got %d", minWindowSize, maxWindowSize, s.WindowSize))
	}
	if s.Bands < minBands || s.Bands > maxBands {
		errs = append(errs, fmt.Sprintf("analysis.bands must be between %d and %d, got %d", minBands, maxBands, s.Bands))
	} else if s.Bands > s.WindowSize/2 {
		errs = append(errs, fmt.Sprintf("analysis.bands %d exceeds half the window size %d", s.Bands, s.WindowSize))
	}
	if s.Overlap < 0 || s.Overlap >= 1 {
		errs = append(errs, fmt.Sprintf("analysis.overlap must be in [0, 1), got %g", s.Overlap))
	}
	if s.Mode == ModeSpectrum {
		if s.MinFrequency <= 0 {
			errs = append(errs, fmt.Sprintf("analysis.minfrequency must be positive, got %g", s.MinFrequency))
		}
		if s.MaxFrequency <= s.MinFrequency {
			errs = append(errs, fmt.Sprintf("analysis.maxfrequency %g must exceed minfrequency %g", s.MaxFrequency, s.MinFrequency))
		}
		if sampleRate > 0 && s.MinFrequency >= float64(sampleRate)/2 {
			errs = append(errs, fmt.Sprintf("analysis.minfrequency %g is above Nyquist for %d Hz", s.MinFrequency, sampleRate))
		}
	}
	switch s.Aggregation {
	case AggregationRMS, AggregationPeak:
	default:
		errs = append(errs, fmt.Sprintf("analysis.aggregation must be %s or %s, got '%s'", AggregationRMS, AggregationPeak, s.Aggregation))
	}
	if s.Decay <= 0 || s.Decay > 1 {
		errs = append(errs, fmt.Sprintf("analysis.decay must be in (0, 1], got %g", s.Decay))
	}
	if s.Floor <= 0 {
		errs = append(errs, fmt.Sprintf("analysis.floor must be positive, got %g", s.Floor))
	}

	return errs
}

func validateSensitivitySettings(s *SensitivitySettings) []string {
	var errs []string
	if s.Value < 0 || s.Value > 1 {
		errs = append(errs, fmt.Sprintf("sensitivity.value must be between 0 and 1, got %g", s.Value))
	}
	if !(s.Gain > 0) {
		errs = append(errs, fmt.Sprintf("sensitivity.gain must be positive, got %g", s.Gain))
	}
	return errs
}
