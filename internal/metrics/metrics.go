// Package metrics exposes Prometheus counters for the message path.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proximity"

// Reading results.
const (
	ReadingAccepted   = "accepted"
	ReadingMalformed  = "malformed"
	ReadingOutOfRange = "out_of_range"
)

// Notification results.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationDropped = "dropped"
)

// Metrics holds every collector of the server.
type Metrics struct {
	registry *prometheus.Registry

	messages      *prometheus.CounterVec
	readings      *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec
	publishErrors prometheus.Counter
	alarmEnabled  prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound broker messages by topic.",
		}, []string{"topic"}),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_total",
			Help:      "Distance payloads by ingest result.",
		}, []string{"result"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarm_decisions_total",
			Help:      "Alarm evaluations by decision.",
		}, []string{"decision"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbound notifications by result.",
		}, []string{"result"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Persistence failures by operation.",
		}, []string{"operation"}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed alarm state publishes.",
		}),
		alarmEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alarm_enabled",
			Help:      "1 when the alarm is enabled.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messages,
		m.readings,
		m.decisions,
		m.notifications,
		m.storeErrors,
		m.publishErrors,
		m.alarmEnabled,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MessageReceived counts an inbound message.
func (m *Metrics) MessageReceived(topic string) {
	if m != nil {
		m.messages.WithLabelValues(topic).Inc()
	}
}

// Reading counts an ingest result.
func (m *Metrics) Reading(result string) {
	if m != nil {
		m.readings.WithLabelValues(result).Inc()
	}
}

// Decision counts an alarm decision.
func (m *Metrics) Decision(decision string) {
	if m != nil {
		m.decisions.WithLabelValues(decision).Inc()
	}
}

// Notification counts a notification result.
func (m *Metrics) Notification(result string) {
	if m != nil {
		m.notifications.WithLabelValues(result).Inc()
	}
}

// StoreError counts a persistence failure.
func (m *Metrics) StoreError(operation string) {
	if m != nil {
		m.storeErrors.WithLabelValues(operation).Inc()
	}
}

// PublishError counts a failed publish.
func (m *Metrics) PublishError() {
	if m != nil {
		m.publishErrors.Inc()
	}
}

// AlarmEnabled mirrors the enabled bit.
func (m *Metrics) AlarmEnabled(enabled bool) {
	if m == nil {
		return
	}

	if enabled {
		m.alarmEnabled.Set(1)
	} else {
		m.alarmEnabled.Set(0)
	}
}
