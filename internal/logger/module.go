package logger

import (
	"context"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"
)

// NewSlogLogger returns a standalone text logger writing to w. It is not
// affected by SetGlobal and is meant for tests and tools.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if tz == nil {
		tz = time.UTC
	}
	lvl := parseLogLevel(string(level))
	return &moduleLogger{handler: newTextHandler(w, lvl, tz), level: lvl}
}

// moduleLogger resolves its output through central when set, otherwise it
// uses its own handler and level. fields is never modified in place.
type moduleLogger struct {
	module  string
	fields  []Field
	central *CentralLogger
	handler slog.Handler
	level   slog.Level
}

func (m *moduleLogger) Module(name string) Logger {
	child := m.derive(m.fields)
	if m.module != "" {
		name = m.module + "." + name
	}
	child.module = name
	return child
}

func (m *moduleLogger) With(fields ...Field) Logger {
	return m.derive(slices.Concat(m.fields, fields))
}

func (m *moduleLogger) derive(fields []Field) *moduleLogger {
	return &moduleLogger{
		module:  m.module,
		fields:  fields,
		central: m.central,
		handler: m.handler,
		level:   m.level,
	}
}

func (m *moduleLogger) Trace(msg string, fields ...Field) { m.log(levelTrace, msg, fields) }
func (m *moduleLogger) Debug(msg string, fields ...Field) { m.log(slog.LevelDebug, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field)  { m.log(slog.LevelInfo, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field)  { m.log(slog.LevelWarn, msg, fields) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.log(slog.LevelError, msg, fields) }

func (m *moduleLogger) log(level slog.Level, msg string, fields []Field) {
	handler, minLevel := m.handler, m.level
	if m.central != nil {
		handler, minLevel = m.central.resolve(m.module)
	}
	if level < minLevel || !handler.Enabled(context.Background(), level) {
		return
	}

	attrs := make([]slog.Attr, 0, 1+len(m.fields)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	for _, f := range m.fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	for _, f := range fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	slog.New(handler).LogAttrs(context.Background(), level, msg, attrs...)
}

func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case float64:
		return slog.Float64(f.Key, math.Round(v*1000)/1000)
	case time.Duration:
		return slog.String(f.Key, v.Round(time.Millisecond).String())
	default:
		return slog.Any(f.Key, v)
	}
}
