package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"findoc/pkg/models"
)

// ServiceMetrics holds the Prometheus collectors of the analysis service.
type ServiceMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	analysesTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	analysisCPU      prometheus.Histogram
	failuresTotal    *prometheus.CounterVec
}

// NewServiceMetrics registers all collectors on a private registry.
func NewServiceMetrics(service string) *ServiceMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	m := &ServiceMetrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "findoc",
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "findoc",
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "path"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "findoc",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		}),
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "findoc",
			Subsystem:   "pipeline",
			Name:        "analyses_total",
			Help:        "Completed analyses by predicted label.",
			ConstLabels: constLabels,
		}, []string{"label"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "findoc",
			Subsystem:   "pipeline",
			Name:        "latency_seconds",
			Help:        "Analysis latency as reported in the record.",
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			ConstLabels: constLabels,
		}, []string{"label"}),
		analysisCPU: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "findoc",
			Subsystem:   "pipeline",
			Name:        "cpu_percent",
			Help:        "System CPU utilization sampled at the end of each analysis.",
			Buckets:     prometheus.LinearBuckets(0, 10, 11),
			ConstLabels: constLabels,
		}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "findoc",
			Subsystem:   "pipeline",
			Name:        "internal_errors_total",
			Help:        "Analyses that ended in an unanticipated error.",
			ConstLabels: constLabels,
		}, []string{"path"}),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.analysesTotal,
		m.analysisDuration,
		m.analysisCPU,
		m.failuresTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *ServiceMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *ServiceMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRecord counts a completed analysis.
func (m *ServiceMetrics) ObserveRecord(rec *models.AnalysisRecord) {
	m.analysesTotal.WithLabelValues(rec.PredictedLabel).Inc()
	m.analysisDuration.WithLabelValues(rec.PredictedLabel).Observe(rec.LatencySeconds)
	m.analysisCPU.Observe(rec.CPUPercent)
}

// ObserveInternalError counts an analysis that produced no record.
func (m *ServiceMetrics) ObserveInternalError(path string) {
	m.failuresTotal.WithLabelValues(path).Inc()
}

// Middleware records request counts, durations and in-flight requests.
// Paths are labelled with the matched route pattern when routeOf finds one.
func (m *ServiceMetrics) Middleware(routeOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			m.requestInFlight.Inc()
			defer m.requestInFlight.Dec()

			next.ServeHTTP(recorder, r)

			path := r.URL.Path
			if routeOf != nil {
				if route := routeOf(r); route != "" {
					path = route
				}
			}
			m.requestTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
			m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
