package audiocore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/audioviz/internal/logger"
	"github.com/tphakala/audioviz/internal/observability/metrics"
)

// MetricsCollector forwards pipeline measurements to Prometheus metrics.
// A nil collector, or one built from nil metrics, records nothing.
type MetricsCollector struct {
	metrics *metrics.VisualizerMetrics
	enabled bool
}

var (
	globalMetrics     atomic.Pointer[MetricsCollector]
	globalMetricsOnce sync.Once
)

// NewMetricsCollector wraps m. Passing nil yields a disabled collector.
func NewMetricsCollector(m *metrics.VisualizerMetrics) *MetricsCollector {
	return &MetricsCollector{metrics: m, enabled: m != nil}
}

// InitMetrics installs the process-wide collector returned by GetMetrics.
// Only the first call has an effect.
func InitMetrics(m *metrics.VisualizerMetrics) {
	globalMetricsOnce.Do(func() {
		globalMetrics.Store(NewMetricsCollector(m))
		log := logger.Global().Module("audiocore")
		if m != nil {
			log.Info("metrics collector initialized")
		} else {
			log.Debug("metrics collector disabled")
		}
	})
}

// GetMetrics returns the process-wide collector, or a no-op collector when
// InitMetrics has not been called.
func GetMetrics() *MetricsCollector {
	if mc := globalMetrics.Load(); mc != nil {
		return mc
	}
	return &MetricsCollector{}
}

func (mc *MetricsCollector) active() bool {
	return mc != nil && mc.enabled && mc.metrics != nil
}

// RecordSessionStart records a start attempt.
func (mc *MetricsCollector) RecordSessionStart(success bool) {
	if !mc.active() {
		return
	}
	mc.metrics.RecordSessionStart(status(success))
	if success {
		mc.metrics.SetSessionActive(true)
	}
}

// RecordSessionStop records the end of a session.
func (mc *MetricsCollector) RecordSessionStop() {
	if !mc.active() {
		return
	}
	mc.metrics.SetSessionActive(false)
}

// UpdateSensitivity records the current sensitivity.
func (mc *MetricsCollector) UpdateSensitivity(v float64) {
	if !mc.active() {
		return
	}
	mc.metrics.SetSensitivity(v)
}

// UpdateSubscribers records the subscriber count.
func (mc *MetricsCollector) UpdateSubscribers(n int) {
	if !mc.active() {
		return
	}
	mc.metrics.SetSubscribers(n)
}

// RecordSourceError records a source failure by error type.
func (mc *MetricsCollector) RecordSourceError(sourceID, errorType string) {
	if !mc.active() {
		return
	}
	mc.metrics.RecordSourceError(sourceID, errorType)
}

// RecordReconnect records a reconnect attempt.
func (mc *MetricsCollector) RecordReconnect(sourceID string, success bool) {
	if !mc.active() {
		return
	}
	mc.metrics.RecordReconnect(sourceID, status(success))
}

// RecordSamplesDropped adds n dropped samples for a pipeline stage.
func (mc *MetricsCollector) RecordSamplesDropped(sourceID, stage string, n uint64) {
	if !mc.active() {
		return
	}
	mc.metrics.AddSamplesDropped(sourceID, stage, n)
}

// RecordAnalysis records one analyzed window.
func (mc *MetricsCollector) RecordAnalysis(mode string, d time.Duration) {
	if !mc.active() {
		return
	}
	mc.metrics.RecordAnalysis(mode, d.Seconds())
}

// RecordAnalysisError records an analyzer failure.
func (mc *MetricsCollector) RecordAnalysisError(mode string) {
	if !mc.active() {
		return
	}
	mc.metrics.RecordAnalysisError(mode)
}

// RecordFrameEmitted records one frame handed to subscribers.
func (mc *MetricsCollector) RecordFrameEmitted() {
	if !mc.active() {
		return
	}
	mc.metrics.RecordFrameEmitted()
}

// RecordFrameCoalesced records one frame replaced before emission.
func (mc *MetricsCollector) RecordFrameCoalesced() {
	if !mc.active() {
		return
	}
	mc.metrics.RecordFrameCoalesced()
}

// RecordCallbackPanic records a recovered subscriber panic.
func (mc *MetricsCollector) RecordCallbackPanic() {
	if !mc.active() {
		return
	}
	mc.metrics.RecordCallbackPanic()
}

func status(success bool) string {
	if success {
		return metrics.StatusSuccess
	}
	return metrics.StatusFailure
}
