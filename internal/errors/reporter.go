package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/audioviz/internal/privacy"
)

// TelemetryReporter receives every EnhancedError built while it is installed.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

var (
	reporterMu      sync.RWMutex
	currentReporter TelemetryReporter
	reportingActive atomic.Bool
)

// SetTelemetryReporter installs reporter. nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	currentReporter = reporter
	reportingActive.Store(reporter != nil && reporter.IsEnabled())
}

func reportToTelemetry(ee *EnhancedError) {
	reporterMu.RLock()
	reporter := currentReporter
	reporterMu.RUnlock()

	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

// SentryReporter sends errors to the Sentry hub configured by sentry.Init.
// Messages and string context values are scrubbed before sending.
type SentryReporter struct {
	enabled bool
}

func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError captures ee once. Repeated calls for the same error are ignored.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || !ee.MarkReported() {
		return
	}

	title := errorTitle(ee)
	message := scrub(fmt.Sprintf("[%s] %s", ee.Category, ee.Error()))
	level := sentryLevel(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrub(s)
			}
			scope.SetContext(key, sentry.Context{"value": value})
		}
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, ee.GetComponent(), string(ee.Category)})

		event := sentry.NewEvent()
		event.Level = level
		event.Message = message
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})
}

// errorTitle builds a grouping title such as "Visualizer Audio Device Resume Capture".
func errorTitle(ee *EnhancedError) string {
	var parts []string
	if c := ee.GetComponent(); c != componentUnknown {
		parts = append(parts, titleWords(c))
	}
	parts = append(parts, titleWords(string(ee.Category)))
	if op, ok := ee.context["operation"].(string); ok && op != "" {
		parts = append(parts, titleWords(op))
	}
	return strings.Join(parts, " ")
}

// titleWords turns "audio-device" or "resume_capture" into title case words.
func titleWords(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func sentryLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryValidation, CategoryState, CategoryPermission:
		return sentry.LevelInfo
	case CategoryAudioDevice, CategoryFileIO, CategoryNetwork, CategoryTimeout:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

var secretPattern = regexp.MustCompile(`(?i)\b(dsn|token|key|password)([=:])\S+`)

// scrub redacts secrets and anonymizes paths, device IDs and addresses.
func scrub(message string) string {
	message = secretPattern.ReplaceAllString(message, "${1}${2}[REDACTED]")
	return privacy.ScrubMessage(message)
}
