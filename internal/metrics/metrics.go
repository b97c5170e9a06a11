// Package metrics exposes Prometheus collectors for the API, telemetry
// ingestion, alerting and actuators.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// Metrics owns its registry so several instances can coexist in tests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	telemetry    *prometheus.CounterVec
	livePPM      prometheus.Gauge
	alerts       *prometheus.CounterVec
	actuations   *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		telemetry: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hydro_telemetry_readings_total",
			Help: "Telemetry readings received by ingestion action (saved, skipped, store_failed).",
		}, []string{"action"}),
		livePPM: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hydro_live_ppm",
			Help: "Most recent nutrient concentration reported by the device.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hydro_ppm_alerts_total",
			Help: "PPM alert decisions by outcome (notified, suppressed, failed).",
		}, []string{"outcome"}),
		actuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hydro_actuator_activations_total",
			Help: "Actuator activations by actuator and result.",
		}, []string{"actuator", "result"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cb_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.telemetry,
		m.livePPM,
		m.alerts,
		m.actuations,
		m.breakerState,
	)

	m.breakerState.WithLabelValues("open-meteo").Set(0)

	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and durations per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) TelemetryReading(action string, ppm float64) {
	if m == nil {
		return
	}
	m.telemetry.WithLabelValues(action).Inc()
	m.livePPM.Set(ppm)
}

func (m *Metrics) Alert(outcome string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Actuation(actuator string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.actuations.WithLabelValues(actuator, result).Inc()
}

// BreakerState records a gobreaker transition for target.
func (m *Metrics) BreakerState(target string, state gobreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch state {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.breakerState.WithLabelValues(target).Set(v)
}
