// Package logger is the structured, module-scoped logging used across
// audioviz. It is a thin layer over log/slog: console output is text, the
// optional file output is JSON rotated by lumberjack.
//
// Packages keep a module logger in a package variable:
//
//	var log = logger.Global().Module("visualizer")
//
//	log.Info("session started", logger.String("session_id", id), logger.Int("bands", 32))
//
// Such loggers follow later SetGlobal calls, so they can be created before
// configuration is loaded. Nested modules join with a dot: Module("audiocore")
// then Module("malgo") logs module=audiocore.malgo.
package logger

import "time"

// LogLevel names a severity in configuration.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

const (
	errorKey  = "error"
	moduleKey = "module"
)

// Logger is a leveled logger bound to a module and a set of fields.
type Logger interface {
	// Module returns a child logger for a sub-module
	Module(name string) Logger

	// With returns a logger that adds fields to every record
	With(fields ...Field) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one structured key/value pair.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field        { return Field{key, value} }
func Int(key string, value int) Field       { return Field{key, value} }
func Uint64(key string, value uint64) Field { return Field{key, value} }
func Bool(key string, value bool) Field     { return Field{key, value} }
func Any(key string, value any) Field       { return Field{key, value} }

// Float64 values are rounded to three decimals on output.
func Float64(key string, value float64) Field { return Field{key, value} }

// Duration is rendered as a string rounded to the millisecond, e.g. "1.5s".
func Duration(key string, value time.Duration) Field { return Field{key, value} }

// Error logs err's message under the "error" key. A nil error logs null.
func Error(err error) Field {
	if err == nil {
		return Field{errorKey, nil}
	}
	return Field{errorKey, err.Error()}
}
