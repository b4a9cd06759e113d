package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	reports         prometheus.Counter
	eventsBroadcast prometheus.Counter
	adminSessions   prometheus.Gauge
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

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verifications_total",
		Help: "Total drug verifications by resulting status",
	}, []string{"status"})

	reports := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reports_submitted_total",
		Help: "Total suspicion reports submitted",
	})

	eventsBroadcast := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifier_events_broadcast_total",
		Help: "Total events fanned out to admin sessions",
	})

	adminSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notifier_admin_sessions",
		Help: "Currently connected admin dashboard sessions",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, verifications, reports, eventsBroadcast, adminSessions, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		verifications:   verifications,
		reports:         reports,
		eventsBroadcast: eventsBroadcast,
		adminSessions:   adminSessions,
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

// IncVerification counts a completed verification by resulting status.
func (m *MetricsService) IncVerification(status string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(status).Inc()
}

// IncReportSubmitted counts a submitted suspicion report.
func (m *MetricsService) IncReportSubmitted() {
	if m == nil {
		return
	}
	m.reports.Inc()
}

// IncEventsBroadcast counts an event fanned out to admin sessions.
func (m *MetricsService) IncEventsBroadcast() {
	if m == nil {
		return
	}
	m.eventsBroadcast.Inc()
}

// SetAdminSessions tracks the current admin dashboard connection count.
func (m *MetricsService) SetAdminSessions(n int) {
	if m == nil {
		return
	}
	m.adminSessions.Set(float64(n))
}
