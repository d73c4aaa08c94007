// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.timezone", "Local")
	viper.SetDefault("log.console", true)
	viper.SetDefault("log.file.enabled", false)
	viper.SetDefault("log.file.path", "logs/audioviz.log")
	viper.SetDefault("log.file.level", "info")
	viper.SetDefault("log.file.maxsize", 100)
	viper.SetDefault("log.file.maxbackups", 3)
	viper.SetDefault("log.file.maxage", 28)
	viper.SetDefault("log.file.compress", false)

	viper.SetDefault("audio.source", SourceMalgo)
	viper.SetDefault("audio.device", "default")
	viper.SetDefault("audio.samplerate", 44100)
	viper.SetDefault("audio.channels", 1)
	viper.SetDefault("audio.bufferframes", 512)
	viper.SetDefault("audio.readtimeout", 2*time.Second)
	viper.SetDefault("audio.file", "")
	viper.SetDefault("audio.realtime", true)
	viper.SetDefault("audio.tone.frequency", 440.0)
	viper.SetDefault("audio.tone.amplitude", 0.5)
	viper.SetDefault("audio.retry.maxattempts", 5)
	viper.SetDefault("audio.retry.initialinterval", 200*time.Millisecond)
	viper.SetDefault("audio.retry.maxinterval", 5*time.Second)

	viper.SetDefault("analysis.mode", ModeSpectrum)
	viper.SetDefault("analysis.windowsize", 1024)
	viper.SetDefault("analysis.bands", 32)
	viper.SetDefault("analysis.overlap", 0.5)
	viper.SetDefault("analysis.minfrequency", 50.0)
	viper.SetDefault("analysis.maxfrequency", 16000.0)
	viper.SetDefault("analysis.aggregation", AggregationRMS)
	viper.SetDefault("analysis.decay", 0.99)
	viper.SetDefault("analysis.floor", 0.01)

	viper.SetDefault("sensitivity.value", 0.5)
	viper.SetDefault("sensitivity.gain", 3.0)

	viper.SetDefault("dispatch.maxrate", 30.0)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "localhost:8090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}
