package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	signalsDetected    *prometheus.CounterVec
	tradesSimulated    *prometheus.CounterVec
	jobsActive         prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bret_evaluations_total",
			Help: "Total number of instrument evaluations",
		},
		[]string{"instrument", "status"},
	)
	r.evaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bret_evaluation_duration_seconds",
			Help:    "Evaluation duration in seconds, fetch included",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.signalsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bret_signals_detected_total",
			Help: "Total number of breakout-and-retest signals detected",
		},
		[]string{"instrument", "direction"},
	)
	r.tradesSimulated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bret_trades_simulated_total",
			Help: "Total number of simulated trades by outcome",
		},
		[]string{"instrument", "outcome"},
	)
	r.jobsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bret_jobs_active",
			Help: "Number of evaluation jobs currently tracked",
		},
	)

	reg.MustRegister(r.evaluationsTotal)
	reg.MustRegister(r.evaluationDuration)
	reg.MustRegister(r.signalsDetected)
	reg.MustRegister(r.tradesSimulated)
	reg.MustRegister(r.jobsActive)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordEvaluation records one instrument evaluation.
func (r *Registry) RecordEvaluation(instrument, status string, duration float64) {
	r.evaluationsTotal.WithLabelValues(instrument, status).Inc()
	r.evaluationDuration.Observe(duration)
}

// AddSignals adds detected signals for an instrument.
func (r *Registry) AddSignals(instrument, direction string, n int) {
	r.signalsDetected.WithLabelValues(instrument, direction).Add(float64(n))
}

// AddTrades adds simulated trades for an instrument.
func (r *Registry) AddTrades(instrument, outcome string, n int) {
	r.tradesSimulated.WithLabelValues(instrument, outcome).Add(float64(n))
}

// SetJobsActive sets the number of tracked jobs.
func (r *Registry) SetJobsActive(count int) {
	r.jobsActive.Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
