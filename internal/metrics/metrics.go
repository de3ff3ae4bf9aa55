// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ReportsCreated  *prometheus.CounterVec   // by source and risk level
	VisionCalls     *prometheus.CounterVec   // by provider and outcome
	RequestDuration *prometheus.HistogramVec // by method and status
	FeedSubscribers prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ReportsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertavecinal_reports_created_total",
				Help: "Reports stored, by source and risk level",
			},
			[]string{"source", "risk_level"},
		),
		VisionCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertavecinal_vision_calls_total",
				Help: "Third-party vision calls, by provider and outcome (ok, degraded, skipped)",
			},
			[]string{"provider", "outcome"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alertavecinal_http_request_duration_seconds",
				Help:    "HTTP request latency, by method and status code",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
			},
			[]string{"method", "status"},
		),
		FeedSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertavecinal_feed_subscribers",
			Help: "Open websocket connections on the alert feed",
		}),
	}

	for _, c := range []prometheus.Collector{m.ReportsCreated, m.VisionCalls, m.RequestDuration, m.FeedSubscribers} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// The recording methods are no-ops on a nil *Metrics so callers can hold
// one in an interface without guarding it.

func (m *Metrics) ReportCreated(source, riskLevel string) {
	if m == nil {
		return
	}
	m.ReportsCreated.WithLabelValues(source, riskLevel).Inc()
}

func (m *Metrics) VisionCall(provider, outcome string) {
	if m == nil {
		return
	}
	m.VisionCalls.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) SubscriberAdded() {
	if m != nil {
		m.FeedSubscribers.Inc()
	}
}

func (m *Metrics) SubscriberRemoved() {
	if m != nil {
		m.FeedSubscribers.Dec()
	}
}
