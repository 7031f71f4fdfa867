// Package metrics exposes Prometheus instruments for relay and sync activity.
//
// Each Metrics owns its registry so tests and simulated devices never
// collide on the global default registry. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lifeline"

// Outcome labels for relay receives. Rejections use the relay reason code.
const OutcomeAccepted = "accepted"

// Metrics holds the instruments for one device.
type Metrics struct {
	registry *prometheus.Registry

	receivesTotal  *prometheus.CounterVec
	payloadsTotal  prometheus.Counter
	submitsTotal   prometheus.Counter
	syncRunsTotal  *prometheus.CounterVec
	uploadsTotal   *prometheus.CounterVec
	syncDuration   prometheus.Histogram
	pendingRecords prometheus.Gauge
}

// New creates a Metrics registered on a fresh registry labelled with the
// device id.
func New(deviceID string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"device": deviceID}

	return &Metrics{
		registry: reg,

		receivesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "relay_receives_total",
				Help:        "Relayed payloads received, by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),

		payloadsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "relay_payloads_generated_total",
				Help:        "Transport strings generated for rebroadcast",
				ConstLabels: labels,
			},
		),

		submitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "origin_submissions_total",
				Help:        "Requests created on this device",
				ConstLabels: labels,
			},
		),

		syncRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "sync_runs_total",
				Help:        "Sync passes, by result (offline, ok, partial, canceled)",
				ConstLabels: labels,
			},
			[]string{"result"},
		),

		uploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "sync_uploads_total",
				Help:        "Record uploads attempted, by result (ok, error)",
				ConstLabels: labels,
			},
			[]string{"result"},
		),

		syncDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "sync_duration_seconds",
				Help:        "Wall time of one sync pass",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
		),

		pendingRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "pending_records",
				Help:        "Records awaiting upload at the start of the last sync pass",
				ConstLabels: labels,
			},
		),
	}
}

// Registry returns the registry holding this device's instruments.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveReceive counts one receive with the given outcome.
func (m *Metrics) ObserveReceive(outcome string) {
	if m == nil {
		return
	}
	m.receivesTotal.WithLabelValues(outcome).Inc()
}

// ObservePayload counts one generated transport string.
func (m *Metrics) ObservePayload() {
	if m == nil {
		return
	}
	m.payloadsTotal.Inc()
}

// ObserveSubmit counts one origin submission.
func (m *Metrics) ObserveSubmit() {
	if m == nil {
		return
	}
	m.submitsTotal.Inc()
}

// ObserveUpload counts one upload attempt.
func (m *Metrics) ObserveUpload(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.uploadsTotal.WithLabelValues("ok").Inc()
		return
	}
	m.uploadsTotal.WithLabelValues("error").Inc()
}

// ObserveSync records the outcome and duration of one sync pass.
func (m *Metrics) ObserveSync(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncRunsTotal.WithLabelValues(result).Inc()
	m.syncDuration.Observe(elapsed.Seconds())
}

// SetPending records the pending backlog size.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pendingRecords.Set(float64(n))
}
