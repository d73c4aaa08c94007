package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	log.Debug("hidden")
	log.Trace("hidden too")
	log.Info("shown", String("k", "v"))
	log.Warn("warned", Int("n", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "k=v")
	assert.Contains(t, out, "n=3")
}

func TestModuleNesting(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	root := NewSlogLogger(buf, LogLevelDebug, time.UTC)

	root.Module("audio").Module("malgo").Debug("device opened")

	assert.Contains(t, buf.String(), "module=audio.malgo")
}

func TestWithAccumulatesFieldsImmutably(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := NewSlogLogger(buf, LogLevelInfo, time.UTC).Module("visualizer")
	session := base.With(String("session_id", "abc"))

	base.Info("plain")
	session.Info("scoped")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.NotContains(t, string(lines[0]), "session_id")
	assert.Contains(t, string(lines[1]), "session_id=abc")
}

func TestFieldToAttr(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.235, fieldToAttr(Float64("f", 1.23456)).Value.Float64(), 1e-9)
	assert.Equal(t, "1.5s", fieldToAttr(Duration("d", 1500*time.Millisecond)).Value.String())
	assert.Equal(t, uint64(7), fieldToAttr(Uint64("u", 7)).Value.Uint64())
	assert.Equal(t, "boom", Error(errors.New("boom")).Value)
	assert.Nil(t, Error(nil).Value)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, levelTrace, parseLogLevel("trace"))
	assert.Equal(t, parseLogLevel("warn"), parseLogLevel("warning"))
	assert.Equal(t, parseLogLevel("info"), parseLogLevel("bogus"))
}

func TestCentralLoggerWritesJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "audioviz.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"quiet": "error"},
	})
	require.NoError(t, err)

	cl.Module("capture").Debug("frame pushed", Int("samples", 512))
	cl.Module("quiet").Info("suppressed")
	require.NoError(t, cl.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 1)
	assert.Equal(t, "capture", records[0]["module"])
	assert.Equal(t, "frame pushed", records[0]["msg"])
	assert.InDelta(t, 512, records[0]["samples"], 0)
}

func TestNewCentralLoggerRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)

	_, err = NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)
}

func TestModuleLoggerFollowsAdoptedConfig(t *testing.T) {
	t.Parallel()

	base := &CentralLogger{
		config:  &LoggingConfig{DefaultLevel: "info"},
		levels:  map[string]slog.Level{},
		handler: slog.DiscardHandler,
	}
	early := base.Module("engine").With(String("session_id", "s1"))

	buf := &bytes.Buffer{}
	next := &CentralLogger{
		config:  &LoggingConfig{DefaultLevel: "debug"},
		levels:  map[string]slog.Level{"engine.quiet": slog.LevelError},
		handler: newTextHandler(buf, slog.LevelDebug, time.UTC),
	}
	base.adopt(next)

	early.Debug("after reconfigure")
	base.Module("engine").Module("quiet").Warn("suppressed")

	out := buf.String()
	assert.Contains(t, out, `msg="after reconfigure"`)
	assert.Contains(t, out, "module=engine")
	assert.Contains(t, out, "session_id=s1")
	assert.NotContains(t, out, "suppressed")
}

func TestTraceLevelLabel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	NewSlogLogger(buf, LogLevelTrace, time.UTC).Trace("fine grained")
	assert.Contains(t, buf.String(), "level=TRACE")
}
