// Package errors wraps causes with a component, a category and context so
// that logs and error reports can be grouped. It also re-exports the standard
// library helpers so callers need a single errors import.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tphakala/audioviz/internal/privacy"
)

// ErrorCategory groups errors for reporting.
type ErrorCategory string

const (
	CategoryGeneric       ErrorCategory = "generic"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryAudioDevice   ErrorCategory = "audio-device"
	CategoryPermission    ErrorCategory = "audio-permission"
	CategoryAudioAnalysis ErrorCategory = "audio-analysis"
	CategoryBuffer        ErrorCategory = "audio-buffer"
	CategoryState         ErrorCategory = "state"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryEvent         ErrorCategory = "event-dispatch"
	CategoryNetwork       ErrorCategory = "network"
	CategorySystem        ErrorCategory = "system-resource"
)

const componentUnknown = "unknown"

// EnhancedError is a cause annotated at the point it crossed a component
// boundary. It is immutable once built apart from the reported flag.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Timestamp time.Time

	component string
	context   map[string]any
	reported  atomic.Bool
}

// Error returns the cause's message. With no cause it falls back to the
// "error" context value and then to the category.
func (ee *EnhancedError) Error() string {
	if ee.Err != nil {
		return ee.Err.Error()
	}
	if msg, ok := ee.context["error"].(string); ok {
		return msg
	}
	return string(ee.Category)
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches the cause. An EnhancedError target without a cause of its own
// matches any error of the same category.
func (ee *EnhancedError) Is(target error) bool {
	if t, ok := target.(*EnhancedError); ok {
		if t.Err != nil {
			return Is(ee.Err, t.Err)
		}
		return ee.Category == t.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component that built the error.
func (ee *EnhancedError) GetComponent() string {
	if ee.component == "" {
		return componentUnknown
	}
	return ee.component
}

// GetContext returns a copy of the context values.
func (ee *EnhancedError) GetContext() map[string]any {
	return maps.Clone(ee.context)
}

// MarkReported records that a reporter has sent the error. It reports
// whether this call was the first.
func (ee *EnhancedError) MarkReported() bool {
	return ee.reported.CompareAndSwap(false, true)
}

// IsReported reports whether the error has been sent to a reporter.
func (ee *EnhancedError) IsReported() bool {
	return ee.reported.Load()
}

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts an error around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts an error around a formatted message.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context attaches a key/value pair. Later values replace earlier ones.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// FileContext records an anonymized form of path and, when size is positive,
// a size class. The raw path never enters the context.
func (eb *ErrorBuilder) FileContext(path string, size int64) *ErrorBuilder {
	if path != "" {
		eb.Context("file", privacy.AnonymizePath(path))
		if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext != "" {
			eb.Context("file_extension", ext)
		}
	}
	if size > 0 {
		eb.Context("file_size_class", sizeClass(size))
	}
	return eb
}

// Build finishes the error and hands it to the telemetry reporter if one is
// active.
func (eb *ErrorBuilder) Build() *EnhancedError {
	category := eb.category
	if category == "" {
		category = detectCategory(eb.err)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  category,
		Timestamp: time.Now(),
		component: eb.component,
		context:   eb.context,
	}

	if reportingActive.Load() {
		reportToTelemetry(ee)
	}
	return ee
}

// detectCategory guesses a category for errors built without one.
func detectCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}

	var inner *EnhancedError
	if stderrors.As(err, &inner) && inner.Category != "" {
		return inner.Category
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission"):
		return CategoryPermission
	case strings.Contains(msg, "device"):
		return CategoryAudioDevice
	case strings.Contains(msg, "file"), strings.Contains(msg, "open"):
		return CategoryFileIO
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return CategoryTimeout
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "must be"):
		return CategoryValidation
	}
	return CategoryGeneric
}

func sizeClass(size int64) string {
	const mib = 1 << 20
	switch {
	case size < 64<<10:
		return "under-64k"
	case size < 10*mib:
		return "under-10m"
	case size < 100*mib:
		return "under-100m"
	default:
		return "100m-plus"
	}
}

// IsCategory reports whether err wraps an EnhancedError of category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return As(err, &ee) && ee.Category == category
}

// NewStd returns a plain error, for sentinels.
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join is errors.Join from the standard library.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
