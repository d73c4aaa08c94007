package conf

import "github.com/tphakala/audioviz/internal/logger"

// LoggingConfig maps log settings onto the central logger configuration.
// Debug mode lowers every threshold to debug unless trace is already set.
func (s *Settings) LoggingConfig() *logger.LoggingConfig {
	level := s.Log.Level
	if s.Debug && level != "trace" {
		level = "debug"
	}

	cfg := &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     s.Log.Timezone,
		Console: &logger.ConsoleOutput{
			Enabled: s.Log.Console,
			Level:   level,
		},
	}

	if s.Log.File.Enabled {
		fileLevel := s.Log.File.Level
		if s.Debug && fileLevel != "trace" {
			fileLevel = "debug"
		}
		cfg.FileOutput = &logger.FileOutput{
			Enabled:    true,
			Path:       s.Log.File.Path,
			MaxSize:    s.Log.File.MaxSize,
			MaxAge:     s.Log.File.MaxAge,
			MaxBackups: s.Log.File.MaxBackups,
			Compress:   s.Log.File.Compress,
			Level:      fileLevel,
		}
	}

	return cfg
}
