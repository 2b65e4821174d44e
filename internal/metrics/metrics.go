// Package metrics holds the Prometheus collectors of the dashboard.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
)

const namespace = "research_hub"

// Metrics groups every collector. Build one per registry with New.
type Metrics struct {
	// Labels: op, result (ok, error, unavailable)
	RemoteCalls    *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec

	// Labels: store (auth, projects), op, result (ok, error)
	StoreOps *prometheus.CounterVec

	// 0=closed, 1=half-open, 2=open
	BreakerState prometheus.Gauge

	// Labels: result (ok, error, skipped)
	SyncRuns *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RemoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "calls_total",
			Help:      "Calls made to the remote data service",
		}, []string{"op", "result"}),
		RemoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "call_duration_seconds",
			Help:      "Duration of remote data service calls in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		StoreOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by outcome",
		}, []string{"store", "op", "result"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Scheduled project re-syncs by outcome",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
	}
	reg.MustRegister(m.RemoteCalls, m.RemoteDuration, m.StoreOps, m.BreakerState, m.SyncRuns, m.HTTPRequests)
	return m
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, remote.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// ObserveRemote matches remote.Observer.
func (m *Metrics) ObserveRemote(op string, took time.Duration, err error) {
	m.RemoteCalls.WithLabelValues(op, result(err)).Inc()
	m.RemoteDuration.WithLabelValues(op).Observe(took.Seconds())
}

// ObserveStore counts one finished store operation.
func (m *Metrics) ObserveStore(store, op string, err error) {
	m.StoreOps.WithLabelValues(store, op, result(err)).Inc()
}

// BreakerChanged matches gobreaker.Settings.OnStateChange.
func (m *Metrics) BreakerChanged(_ string, _, to gobreaker.State) {
	m.BreakerState.Set(float64(to))
}
