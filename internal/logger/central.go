package logger

import (
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tphakala/audioviz/internal/errors"
)

// levelTrace sits below slog.LevelDebug
const levelTrace = slog.Level(-8)

var (
	global   *CentralLogger
	globalMu sync.Mutex
)

// Global returns the process logger. Before SetGlobal it is a console logger
// at info level.
func Global() *CentralLogger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil {
		global = &CentralLogger{
			config:  &LoggingConfig{DefaultLevel: DefaultLogLevel},
			levels:  map[string]slog.Level{},
			handler: newTextHandler(os.Stderr, slog.LevelInfo, time.Local),
		}
	}
	return global
}

// SetGlobal makes cl's outputs and levels the process logger's. Module
// loggers created earlier through Global pick up the change.
func SetGlobal(cl *CentralLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil || cl == nil {
		global = cl
		return
	}
	global.adopt(cl)
}

// CentralLogger owns the slog handlers and per-module levels shared by all
// module loggers created from it.
type CentralLogger struct {
	mu      sync.RWMutex
	config  *LoggingConfig
	handler slog.Handler
	file    *lumberjack.Logger
	levels  map[string]slog.Level
}

// NewCentralLogger builds console and file handlers from cfg.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, errors.Newf("logging config cannot be nil").
			Component("logger").
			Category(errors.CategoryConfiguration).
			Build()
	}
	applyConfigDefaults(cfg)

	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, errors.New(err).
			Component("logger").
			Category(errors.CategoryConfiguration).
			Context("timezone", cfg.Timezone).
			Build()
	}

	cl := &CentralLogger{config: cfg, levels: make(map[string]slog.Level, len(cfg.ModuleLevels))}
	for module, level := range cfg.ModuleLevels {
		cl.levels[module] = parseLogLevel(level)
	}

	var handlers []slog.Handler
	if cfg.Console != nil && cfg.Console.Enabled {
		handlers = append(handlers, newTextHandler(os.Stderr, parseLogLevel(cfg.Console.Level), tz))
	}
	if fo := cfg.FileOutput; fo != nil && fo.Enabled {
		if err := os.MkdirAll(filepath.Dir(fo.Path), 0o755); err != nil {
			return nil, errors.New(err).
				Component("logger").
				Category(errors.CategoryFileIO).
				FileContext(fo.Path, 0).
				Build()
		}
		cl.file = &lumberjack.Logger{
			Filename:   fo.Path,
			MaxSize:    fo.MaxSize,
			MaxAge:     fo.MaxAge,
			MaxBackups: fo.MaxBackups,
			Compress:   fo.Compress,
		}
		handlers = append(handlers, slog.NewJSONHandler(cl.file, &slog.HandlerOptions{
			Level:       parseLogLevel(fo.Level),
			ReplaceAttr: replaceAttr(tz),
		}))
	}

	switch len(handlers) {
	case 0:
		cl.handler = slog.DiscardHandler
	case 1:
		cl.handler = handlers[0]
	default:
		cl.handler = newMultiWriterHandler(handlers...)
	}
	return cl, nil
}

func loadTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// Module returns a logger for module. It reads handler and level from cl on
// every record.
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}
	return &moduleLogger{module: name, central: cl}
}

// Close closes the log file, if any.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.file == nil {
		return nil
	}
	err := cl.file.Close()
	cl.file = nil
	return err
}

func (cl *CentralLogger) adopt(other *CentralLogger) {
	if cl == other {
		return
	}
	other.mu.RLock()
	config, handler, file, levels := other.config, other.handler, other.file, maps.Clone(other.levels)
	other.mu.RUnlock()

	cl.mu.Lock()
	cl.config, cl.handler, cl.file, cl.levels = config, handler, file, levels
	cl.mu.Unlock()
}

// resolve returns the handler and minimum level for module.
func (cl *CentralLogger) resolve(module string) (slog.Handler, slog.Level) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	if level, ok := cl.levels[module]; ok {
		return cl.handler, level
	}
	return cl.handler, parseLogLevel(cl.config.DefaultLevel)
}

func parseLogLevel(level string) slog.Level {
	switch LogLevel(level) {
	case LogLevelTrace:
		return levelTrace
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn, "warning":
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// replaceAttr renders times in tz and names the trace level.
func replaceAttr(tz *time.Location) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.TimeKey:
			if t, ok := a.Value.Any().(time.Time); ok {
				return slog.Time(slog.TimeKey, t.In(tz))
			}
		case slog.LevelKey:
			if l, ok := a.Value.Any().(slog.Level); ok && l <= levelTrace {
				return slog.String(slog.LevelKey, "TRACE")
			}
		}
		return a
	}
}

func newTextHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr(tz)})
}
