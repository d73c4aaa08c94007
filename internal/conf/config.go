// Package conf loads audioviz settings from config.yaml, environment variables
// and command line flags through viper.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/audioviz/internal/errors"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings contains all configuration options for audioviz.
type Settings struct {
	Debug bool `yaml:"debug"`

	Log         LogSettings         `yaml:"log"`
	Audio       AudioSettings       `yaml:"audio"`
	Analysis    AnalysisSettings    `yaml:"analysis"`
	Sensitivity SensitivitySettings `yaml:"sensitivity"`
	Dispatch    DispatchSettings    `yaml:"dispatch"`
	Telemetry   TelemetrySettings   `yaml:"telemetry"`
	Sentry      SentrySettings      `yaml:"sentry"`

	Version   string `yaml:"-"` // set at build time
	BuildDate string `yaml:"-"` // set at build time
}

// LogSettings controls console and rotated file logging.
type LogSettings struct {
	Level    string          `yaml:"level"`    // trace, debug, info, warn, error
	Timezone string          `yaml:"timezone"` // Local, UTC or IANA name
	Console  bool            `yaml:"console"`  // log to stderr
	File     LogFileSettings `yaml:"file"`
}

// LogFileSettings configures the JSON log file rotated by lumberjack.
type LogFileSettings struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	Level      string `yaml:"level"`
	MaxSize    int    `yaml:"maxsize"`    // megabytes
	MaxBackups int    `yaml:"maxbackups"` // rotated files to keep
	MaxAge     int    `yaml:"maxage"`     // days
	Compress   bool   `yaml:"compress"`
}

// AudioSettings selects and configures the audio source.
type AudioSettings struct {
	Source       string        `yaml:"source"`       // malgo, wav or tone
	Device       string        `yaml:"device"`       // capture device name, "default" for system default
	SampleRate   int           `yaml:"samplerate"`   // Hz
	Channels     int           `yaml:"channels"`     // captured channels, downmixed to mono
	BufferFrames int           `yaml:"bufferframes"` // frames per hardware read
	ReadTimeout  time.Duration `yaml:"readtimeout"`  // stall time before a read reports a disconnect
	File         string        `yaml:"file"`         // wav source input
	Realtime     bool          `yaml:"realtime"`     // pace file and tone sources at wall-clock speed
	Tone         ToneSettings  `yaml:"tone"`
	Retry        RetrySettings `yaml:"retry"`
}

// ToneSettings configures the synthetic sine source.
type ToneSettings struct {
	Frequency float64 `yaml:"frequency"` // Hz
	Amplitude float64 `yaml:"amplitude"` // 0..1 of full scale
}

// RetrySettings bounds the reconnect attempts after a device interruption.
type RetrySettings struct {
	MaxAttempts     int           `yaml:"maxattempts"`
	InitialInterval time.Duration `yaml:"initialinterval"`
	MaxInterval     time.Duration `yaml:"maxinterval"`
}

// AnalysisSettings fixes the analysis window and band layout for a session.
type AnalysisSettings struct {
	Mode         string  `yaml:"mode"`         // spectrum or amplitude
	WindowSize   int     `yaml:"windowsize"`   // samples, power of two
	Bands        int     `yaml:"bands"`        // visualization frame length
	Overlap      float64 `yaml:"overlap"`      // 0 <= overlap < 1
	MinFrequency float64 `yaml:"minfrequency"` // Hz, lowest band edge
	MaxFrequency float64 `yaml:"maxfrequency"` // Hz, highest band edge, capped at Nyquist
	Aggregation  string  `yaml:"aggregation"`  // rms or peak
	Decay        float64 `yaml:"decay"`        // running maximum decay per analysis cycle
	Floor        float64 `yaml:"floor"`        // smallest running maximum
}

// SensitivitySettings holds the initial sensitivity and the gain constant k.
type SensitivitySettings struct {
	Value float64 `yaml:"value"` // 0..1
	Gain  float64 `yaml:"gain"`  // k in clamp(in*(1+k*s), 0, 1)
}

// DispatchSettings caps subscriber notification rate.
type DispatchSettings struct {
	MaxRate float64 `yaml:"maxrate"` // frames per second
}

// TelemetrySettings controls the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// SentrySettings controls error reporting.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new Settings.
// When no config.yaml exists a default one is written to the first config path.
func Load() (*Settings, error) {
	if err := initViper(); err != nil {
		return nil, err
	}
	return unmarshalAndStore()
}

// LoadFile reads settings from an explicit configuration file path.
func LoadFile(path string) (*Settings, error) {
	setDefaultConfig()
	if err := bindEnvVars(); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			FileContext(path, 0).
			Context("operation", "read_config").
			Build()
	}
	return unmarshalAndStore()
}

// FromViper builds Settings from the current viper state without reading a file.
// Command line flags bound through viper.BindPFlags are honoured.
func FromViper() (*Settings, error) {
	setDefaultConfig()
	return unmarshalAndStore()
}

func unmarshalAndStore() (*Settings, error) {
	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "bind_env").
			Build()
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}

	return nil
}

// createDefaultConfig writes the embedded default config to dir and reads it back
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_embedded_config").
			Build()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("operation", "create_config_dir").
			Build()
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			FileContext(configPath, int64(len(data))).
			Context("operation", "write_default_config").
			Build()
	}

	fmt.Fprintln(os.Stderr, "Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// DefaultConfigYAML returns the embedded default configuration.
func DefaultConfigYAML() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return ""
	}
	return string(data)
}

// GetSettings returns the most recently loaded settings, nil before the first load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
