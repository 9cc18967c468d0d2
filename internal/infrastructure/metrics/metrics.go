// Package metrics owns the API server's Prometheus collectors. Everything is
// registered on a private registry so tests can build as many as they like.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voicementor"

// Metrics groups every collector the server exports.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	eventsPublished *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	jobRuns         *prometheus.CounterVec
	liveClients     prometheus.Gauge
}

// New creates the collectors and registers them with Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published on the bus",
		}, []string{"event_type"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handler_duration_seconds",
			Help:      "Duration of event handler attempts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type", "handler", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_job_runs_total",
			Help:      "Scheduled job executions",
		}, []string{"job", "outcome"}),
		liveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_feed_clients",
			Help:      "Connected live feed websocket clients",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.eventsPublished,
		m.handlerDuration,
		m.jobRuns,
		m.liveClients,
	)
	return m
}

// Registry exposes the registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one HTTP request. route is the chi route pattern.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// EventPublished implements messaging.Recorder.
func (m *Metrics) EventPublished(eventType string) {
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

// HandlerObserved implements messaging.Recorder.
func (m *Metrics) HandlerObserved(eventType, handler string, d time.Duration, err error) {
	m.handlerDuration.WithLabelValues(eventType, handler, outcome(err == nil)).Observe(d.Seconds())
}

// JobFinished records a scheduler run.
func (m *Metrics) JobFinished(job string, success bool) {
	m.jobRuns.WithLabelValues(job, outcome(success)).Inc()
}

// LiveClients tracks websocket connections by delta.
func (m *Metrics) LiveClients(delta int) {
	m.liveClients.Add(float64(delta))
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
