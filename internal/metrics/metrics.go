// Package metrics exposes import metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
)

const (
	MetricImports        = "imports_total"
	MetricImportErrors   = "import_errors_total"
	MetricImportDuration = "import_duration_seconds"
)

// Recorder implements core.Recorder.
type Recorder struct {
	imports  *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ core.Recorder = (*Recorder)(nil)

// NewRecorder creates the import metrics and registers them on reg.
func NewRecorder(reg prometheus.Registerer, namespace string) (*Recorder, error) {
	r := &Recorder{
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricImports,
			Help:      "Finished imports by format and outcome",
		}, []string{"format", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricImportErrors,
			Help:      "Import errors by kind",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricImportDuration,
			Help:      "Duration of imports by format",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"format"}),
	}
	for _, c := range []prometheus.Collector{r.imports, r.errors, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveImport counts a finished import and records its duration.
func (r *Recorder) ObserveImport(format string, outcome core.Outcome, d time.Duration) {
	r.imports.WithLabelValues(format, string(outcome)).Inc()
	r.duration.WithLabelValues(format).Observe(d.Seconds())
}

// CountErrors adds n errors of kind.
func (r *Recorder) CountErrors(kind core.ErrorKind, n int) {
	r.errors.WithLabelValues(string(kind)).Add(float64(n))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
