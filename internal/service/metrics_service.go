package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the background jobs.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	sweepRuns       prometheus.Counter
	dosesSkipped    prometheus.Counter
	expiryRuns      prometheus.Counter
	requestsExpired prometheus.Counter
	supplyConsumed  prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	sweepRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overdue_sweep_runs_total",
		Help: "Total overdue sweeper executions",
	})

	dosesSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doses_auto_skipped_total",
		Help: "Total doses skipped by the overdue sweeper",
	})

	expiryRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "request_expiry_runs_total",
		Help: "Total request expiry job executions",
	})

	requestsExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "requests_auto_expired_total",
		Help: "Total medication requests auto-rejected by the expiry job",
	})

	supplyConsumed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "supply_consumptions_total",
		Help: "Total supply depletion operations committed",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sweepRuns, dosesSkipped, expiryRuns, requestsExpired, supplyConsumed, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		sweepRuns:       sweepRuns,
		dosesSkipped:    dosesSkipped,
		expiryRuns:      expiryRuns,
		requestsExpired: requestsExpired,
		supplyConsumed:  supplyConsumed,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSweep records one sweeper run and how many doses it skipped.
func (m *MetricsService) ObserveSweep(skipped int) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.dosesSkipped.Add(float64(skipped))
}

// ObserveExpiry records one expiry run and how many requests it rejected.
func (m *MetricsService) ObserveExpiry(expired int) {
	if m == nil {
		return
	}
	m.expiryRuns.Inc()
	m.requestsExpired.Add(float64(expired))
}

// ObserveSupplyConsumption records one committed depletion.
func (m *MetricsService) ObserveSupplyConsumption() {
	if m == nil {
		return
	}
	m.supplyConsumed.Inc()
}
