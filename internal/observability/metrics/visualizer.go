package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// VisualizerMetrics contains Prometheus metrics for capture, analysis and dispatch
type VisualizerMetrics struct {
	registry *prometheus.Registry

	// Session metrics
	sessionActive      prometheus.Gauge
	sessionStarts      *prometheus.CounterVec
	sessionSensitivity prometheus.Gauge
	subscribers        prometheus.Gauge

	// Source metrics
	sourceErrors     *prometheus.CounterVec
	sourceReconnects *prometheus.CounterVec
	samplesDropped   *prometheus.CounterVec

	// Analysis metrics
	framesAnalyzed   *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	analysisErrors   *prometheus.CounterVec

	// Dispatch metrics
	framesEmitted   prometheus.Counter
	framesCoalesced prometheus.Counter
	callbackPanics  prometheus.Counter

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewVisualizerMetrics creates and registers new visualizer metrics
func NewVisualizerMetrics(registry *prometheus.Registry) (*VisualizerMetrics, error) {
	m := &VisualizerMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *VisualizerMetrics) initMetrics() {
	m.sessionActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audioviz_session_active",
		Help: "1 while a visualization session is listening",
	})

	m.sessionStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioviz_session_starts_total",
			Help: "Total number of session start attempts",
		},
		[]string{"status"},
	)

	m.sessionSensitivity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audioviz_session_sensitivity",
		Help: "Current sensitivity value",
	})

	m.subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audioviz_subscribers",
		Help: "Number of registered frame subscribers",
	})

	m.sourceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioviz_source_errors_total",
			Help: "Total number of audio source errors",
		},
		[]string{"source_id", "error_type"},
	)

	m.sourceReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioviz_source_reconnects_total",
			Help: "Total number of device reconnect attempts",
		},
		[]string{"source_id", "status"},
	)

	m.samplesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioviz_samples_dropped_total",
			Help: "Samples discarded because the frame buffer or device queue was full",
		},
		[]string{"source_id", "stage"},
	)

	m.framesAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioviz_frames_analyzed_total",
			Help: "Total number of analysis windows processed",
		},
		[]string{"mode"},
	)

	m.analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audioviz_analysis_duration_seconds",
			Help:    "Time taken to analyze one window",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12), // 50us to ~100ms
		},
		[]string{"mode"},
	)

	m.analysisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioviz_analysis_errors_total",
			Help: "Total number of analysis failures",
		},
		[]string{"mode"},
	)

	m.framesEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audioviz_frames_emitted_total",
		Help: "Visualization frames delivered to the dispatcher",
	})

	m.framesCoalesced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audioviz_frames_coalesced_total",
		Help: "Visualization frames replaced by a newer frame before emission",
	})

	m.callbackPanics = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audioviz_callback_panics_total",
		Help: "Subscriber callbacks that panicked",
	})

	m.collectors = []prometheus.Collector{
		m.sessionActive,
		m.sessionStarts,
		m.sessionSensitivity,
		m.subscribers,
		m.sourceErrors,
		m.sourceReconnects,
		m.samplesDropped,
		m.framesAnalyzed,
		m.analysisDuration,
		m.analysisErrors,
		m.framesEmitted,
		m.framesCoalesced,
		m.callbackPanics,
	}
}

// Describe implements the Collector interface
func (m *VisualizerMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *VisualizerMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// SetSessionActive records whether a session is listening
func (m *VisualizerMetrics) SetSessionActive(active bool) {
	if active {
		m.sessionActive.Set(1)
		return
	}
	m.sessionActive.Set(0)
}

// RecordSessionStart counts a start attempt by outcome
func (m *VisualizerMetrics) RecordSessionStart(status string) {
	m.sessionStarts.WithLabelValues(status).Inc()
}

// SetSensitivity records the current sensitivity
func (m *VisualizerMetrics) SetSensitivity(value float64) {
	m.sessionSensitivity.Set(value)
}

// SetSubscribers records the subscriber count
func (m *VisualizerMetrics) SetSubscribers(count int) {
	m.subscribers.Set(float64(count))
}

// RecordSourceError counts a source failure
func (m *VisualizerMetrics) RecordSourceError(sourceID, errorType string) {
	m.sourceErrors.WithLabelValues(sourceID, errorType).Inc()
}

// RecordReconnect counts a reconnect attempt by outcome
func (m *VisualizerMetrics) RecordReconnect(sourceID, status string) {
	m.sourceReconnects.WithLabelValues(sourceID, status).Inc()
}

// AddSamplesDropped adds to the dropped sample counter for a pipeline stage
func (m *VisualizerMetrics) AddSamplesDropped(sourceID, stage string, n uint64) {
	if n == 0 {
		return
	}
	m.samplesDropped.WithLabelValues(sourceID, stage).Add(float64(n))
}

// RecordAnalysis records one analyzed window and its duration in seconds
func (m *VisualizerMetrics) RecordAnalysis(mode string, seconds float64) {
	m.framesAnalyzed.WithLabelValues(mode).Inc()
	m.analysisDuration.WithLabelValues(mode).Observe(seconds)
}

// RecordAnalysisError counts an analysis failure
func (m *VisualizerMetrics) RecordAnalysisError(mode string) {
	m.analysisErrors.WithLabelValues(mode).Inc()
}

// RecordFrameEmitted counts a frame handed to subscribers
func (m *VisualizerMetrics) RecordFrameEmitted() {
	m.framesEmitted.Inc()
}

// RecordFrameCoalesced counts a frame overwritten before emission
func (m *VisualizerMetrics) RecordFrameCoalesced() {
	m.framesCoalesced.Inc()
}

// RecordCallbackPanic counts a recovered subscriber panic
func (m *VisualizerMetrics) RecordCallbackPanic() {
	m.callbackPanics.Inc()
}
