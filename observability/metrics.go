// Package observability exports prometheus metrics for dispatch outcomes and
// the HTTP serving surface, plus the scrape endpoint handler.
package observability

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsonrpcd/jsonrpcd-go/events"
)

var (
	metricsOnce  sync.Once
	rpcTotal     *prometheus.CounterVec
	rpcDuration  *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
	httpTotal    *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		rpcTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_requests_total",
			Help: "Completed dispatches by method and outcome.",
		}, []string{"method", "outcome"})
		rpcDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rpc_request_duration_seconds",
			Help:    "Dispatch duration by method and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "outcome"})
		httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		})
		httpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by verb and status.",
		}, []string{"method", "status"})
		httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration by verb and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"})
		prometheus.MustRegister(rpcTotal, rpcDuration, httpInFlight, httpTotal, httpDuration)
	})
}

// Sink records one sample pair per completed dispatch. Wire it into a
// transport with its WithSink option, combining with other sinks through
// events.Multi when needed.
type Sink struct{}

var _ events.Sink = Sink{}

// NewSink registers the dispatch metrics and returns a sink recording to
// them.
func NewSink() Sink {
	initMetrics()
	return Sink{}
}

// Emit records ev. It never fails.
func (Sink) Emit(_ context.Context, ev events.Event) error {
	method := ev.Method
	if method == "" {
		method = "unknown"
	}
	rpcTotal.WithLabelValues(method, ev.Outcome).Inc()
	rpcDuration.WithLabelValues(method, ev.Outcome).Observe(ev.Duration.Seconds())
	return nil
}
