package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, "unknown", ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
	assert.Nil(t, ee.GetContext())
}

func TestBuilderContextIsCopied(t *testing.T) {
	t.Parallel()

	ee := Newf("open %s failed", "capture").
		Component("audiocore").
		Category(CategoryAudioDevice).
		Context("device", "hw:1,0").
		Context("operation", "open_device").
		Build()

	assert.Equal(t, "audiocore", ee.GetComponent())
	assert.Equal(t, CategoryAudioDevice, ee.Category)

	ctx := ee.GetContext()
	assert.Equal(t, "hw:1,0", ctx["device"])
	assert.Equal(t, "open_device", ctx["operation"])

	ctx["device"] = "changed"
	assert.Equal(t, "hw:1,0", ee.GetContext()["device"])
}

func TestIsMatchesSentinelCause(t *testing.T) {
	t.Parallel()

	errFirst := NewStd("first")
	errSecond := NewStd("second")

	wrapped := New(errFirst).Category(CategoryState).Build()
	require.ErrorIs(t, wrapped, errFirst)
	assert.NotErrorIs(t, wrapped, errSecond)

	// Same category but different cause must not match
	other := New(errSecond).Category(CategoryState).Build()
	assert.False(t, Is(wrapped, other))

	// Bare category targets match by category
	categoryOnly := New(nil).Category(CategoryState).Build()
	assert.True(t, Is(wrapped, categoryOnly))
}

func TestJoinedCausesStayVisible(t *testing.T) {
	t.Parallel()

	errDevice := NewStd("device unavailable")
	errCause := NewStd("backend gone")

	ee := New(Join(errDevice, errCause)).Category(CategoryAudioDevice).Build()
	require.ErrorIs(t, ee, errDevice)
	require.ErrorIs(t, ee, errCause)
}

func TestNilCauseUsesContextMessage(t *testing.T) {
	t.Parallel()

	ee := New(nil).Category(CategoryValidation).Context("error", "value out of range").Build()
	assert.Equal(t, "value out of range", ee.Error())

	bare := New(nil).Category(CategoryState).Build()
	assert.Equal(t, "state", bare.Error())
}

func TestDetectCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"permission", NewStd("microphone permission missing"), CategoryPermission},
		{"device", NewStd("capture device vanished"), CategoryAudioDevice},
		{"file", NewStd("cannot open input"), CategoryFileIO},
		{"timeout", NewStd("read timeout"), CategoryTimeout},
		{"validation", NewStd("invalid window size"), CategoryValidation},
		{"nested", New(NewStd("x")).Category(CategoryBuffer).Build(), CategoryBuffer},
		{"generic", NewStd("something odd"), CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, New(tt.err).Build().Category)
		})
	}
}

func TestIsCategory(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("outer: %w", New(NewStd("inner")).Category(CategoryAudioAnalysis).Build())
	assert.True(t, IsCategory(err, CategoryAudioAnalysis))
	assert.False(t, IsCategory(err, CategoryValidation))
	assert.False(t, IsCategory(NewStd("plain"), CategoryGeneric))
}

func TestFileContextAnonymizes(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("decode failed")).FileContext("/home/user/rec.WAV", 2048).Build()
	ctx := ee.GetContext()

	file, ok := ctx["file"].(string)
	require.True(t, ok)
	assert.NotContains(t, file, "user")
	assert.Equal(t, "wav", ctx["file_extension"])
	assert.Equal(t, "under-64k", ctx["file_size_class"])

	bare := New(NewStd("x")).FileContext("", 0).Build()
	assert.Nil(t, bare.GetContext())
}

func TestScrub(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dsn=[REDACTED] rejected", scrub("dsn=https://abc@o1.ingest.sentry.io/2 rejected"))
	assert.Equal(t, "Token:[REDACTED]", scrub("Token:abc123"))
	assert.NotContains(t, scrub("cannot read /home/alice/audio.wav"), "alice")
}

func TestErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("boom")).
		Component("visualizer").
		Category(CategoryAudioDevice).
		Context("operation", "resume_capture").
		Build()
	assert.Equal(t, "Visualizer Audio Device Resume Capture", errorTitle(ee))

	bare := New(NewStd("boom")).Category(CategoryFileIO).Build()
	assert.Equal(t, "File Io", errorTitle(bare))
}

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	if ee.MarkReported() {
		r.reported = append(r.reported, ee)
	}
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestTelemetryReporterReceivesBuiltErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(NewStd("device lost")).Category(CategoryAudioDevice).Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.True(t, ee.IsReported())
	assert.False(t, ee.MarkReported())

	SetTelemetryReporter(nil)
	_ = New(NewStd("not reported")).Build()
	assert.Len(t, reporter.reported, 1)
}

func TestDisabledSentryReporterSkips(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Build()
	NewSentryReporter(false).ReportError(ee)
	assert.False(t, ee.IsReported())
}
