// env.go - environment variable bindings for audioviz settings
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "AUDIOVIZ_DEBUG", validateEnvBool},
		{"log.level", "AUDIOVIZ_LOG_LEVEL", validateEnvLogLevel},

		{"audio.source", "AUDIOVIZ_AUDIO_SOURCE", validateEnvSource},
		{"audio.device", "AUDIOVIZ_AUDIO_DEVICE", nil},
		{"audio.samplerate", "AUDIOVIZ_AUDIO_SAMPLERATE", validateEnvPositiveInt},
		{"audio.readtimeout", "AUDIOVIZ_AUDIO_READTIMEOUT", validateEnvDuration},
		{"audio.file", "AUDIOVIZ_AUDIO_FILE", nil},

		{"analysis.mode", "AUDIOVIZ_ANALYSIS_MODE", validateEnvMode},
		{"analysis.windowsize", "AUDIOVIZ_ANALYSIS_WINDOWSIZE", validateEnvPositiveInt},
		{"analysis.bands", "AUDIOVIZ_ANALYSIS_BANDS", validateEnvPositiveInt},

		{"sensitivity.value", "AUDIOVIZ_SENSITIVITY", validateEnvUnitFloat},
		{"dispatch.maxrate", "AUDIOVIZ_DISPATCH_MAXRATE", validateEnvPositiveFloat},

		{"telemetry.enabled", "AUDIOVIZ_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.listen", "AUDIOVIZ_TELEMETRY_LISTEN", nil},
		{"sentry.enabled", "AUDIOVIZ_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "AUDIOVIZ_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("log level must be one of trace, debug, info, warn, error, got '%s'", value)
}

func validateEnvSource(value string) error {
	switch value {
	case SourceMalgo, SourceWAV, SourceTone:
		return nil
	}
	return fmt.Errorf("audio source must be %s, %s or %s, got '%s'", SourceMalgo, SourceWAV, SourceTone, value)
}

func validateEnvMode(value string) error {
	switch value {
	case ModeSpectrum, ModeAmplitude:
		return nil
	}
	return fmt.Errorf("analysis mode must be %s or %s, got '%s'", ModeSpectrum, ModeAmplitude, value)
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("value must be positive, got %d", n)
	}
	return nil
}

func validateEnvPositiveFloat(value string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f <= 0 {
		return fmt.Errorf("value must be positive, got %g", f)
	}
	return nil
}

func validateEnvUnitFloat(value string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("value must be between 0 and 1, got %g", f)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}
