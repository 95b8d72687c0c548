// Package metrics collects prometheus counters for the request pipeline and
// session lifecycle.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is what the pipeline and session manager report into.
type Recorder interface {
	RecordResponse(statusCode int, latency time.Duration)
	RecordTransportError()
	RecordLogin(result string)
	RecordTeardown(reason string)
}

// Login results
const (
	LoginSuccess  = "success"
	LoginRejected = "rejected"
	LoginError    = "error"
)

// Teardown reasons
const (
	ReasonExplicit           = "explicit"
	ReasonUnauthorized       = "unauthorized"
	ReasonProfileUnavailable = "profile_unavailable"
)

// Collector is the prometheus-backed Recorder.
type Collector struct {
	responses       *prometheus.CounterVec
	transportErrors prometheus.Counter
	latency         prometheus.Histogram
	logins          *prometheus.CounterVec
	teardowns       *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "addoc_client_responses_total",
			Help: "HTTP responses received, by status code",
		}, []string{"status_code"}),
		transportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "addoc_client_transport_errors_total",
			Help: "Requests that failed before a response was received",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "addoc_client_request_latency_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "addoc_client_logins_total",
			Help: "Login attempts, by result",
		}, []string{"result"}),
		teardowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "addoc_client_session_teardowns_total",
			Help: "Session teardowns, by reason",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.responses,
		c.transportErrors,
		c.latency,
		c.logins,
		c.teardowns,
	)

	return c
}

// RecordResponse counts a response and observes its latency.
func (c *Collector) RecordResponse(statusCode int, latency time.Duration) {
	c.responses.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.latency.Observe(latency.Seconds())
}

// RecordTransportError counts a request that never got a response.
func (c *Collector) RecordTransportError() {
	c.transportErrors.Inc()
}

// RecordLogin counts a login attempt by result.
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordTeardown counts a transition to the anonymous state.
func (c *Collector) RecordTeardown(reason string) {
	c.teardowns.WithLabelValues(reason).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordResponse(int, time.Duration) {}
func (Nop) RecordTransportError()             {}
func (Nop) RecordLogin(string)                {}
func (Nop) RecordTeardown(string)             {}
