package observability

import (
	stdlog "log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/audioviz/internal/errors"
	"github.com/tphakala/audioviz/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	Visualizer *metrics.VisualizerMetrics
}

// NewMetrics creates a registry with Go runtime, process and visualizer collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, errors.New(err).
			Component("observability").
			Category(errors.CategorySystem).
			Context("collector", "go").
			Build()
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, errors.New(err).
			Component("observability").
			Category(errors.CategorySystem).
			Context("collector", "process").
			Build()
	}

	visualizerMetrics, err := metrics.NewVisualizerMetrics(registry)
	if err != nil {
		return nil, errors.New(err).
			Component("observability").
			Category(errors.CategorySystem).
			Context("collector", "visualizer").
			Build()
	}

	return &Metrics{
		registry:   registry,
		Visualizer: visualizerMetrics,
	}, nil
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      stdlog.New(stdlogWriter{}, "metrics handler: ", 0),
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}

// stdlogWriter routes promhttp error output through the module logger
type stdlogWriter struct{}

func (stdlogWriter) Write(p []byte) (int, error) {
	log.Warn(string(p))
	return len(p), nil
}
