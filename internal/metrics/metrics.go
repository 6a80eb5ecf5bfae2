// Package metrics provides Prometheus metrics for shelftrack
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
)

// Metrics holds all Prometheus metrics for shelftrack
type Metrics struct {
	// gRPC request metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// REST request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Engine metrics
	OutcomesTotal *prometheus.CounterVec

	// Persistence metrics
	PersistTotal    *prometheus.CounterVec
	PersistDuration prometheus.Histogram

	// Tree metrics
	LocationsTotal prometheus.Gauge
	BarcodesTotal  prometheus.Gauge
	TreeDepth      prometheus.Gauge

	// Server metrics
	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	// gRPC request metrics
	m.GrpcRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelftrack_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	m.GrpcRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelftrack_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.GrpcRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelftrack_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	// REST request metrics
	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelftrack_http_requests_total",
			Help: "Total number of REST requests",
		},
		[]string{"route", "code"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelftrack_http_request_duration_seconds",
			Help:    "Duration of REST requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Engine metrics
	m.OutcomesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelftrack_outcomes_total",
			Help: "Engine operation outcomes",
		},
		[]string{"operation", "outcome"},
	)

	// Persistence metrics
	m.PersistTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelftrack_persist_total",
			Help: "Total number of inventory document saves",
		},
		[]string{"status"},
	)

	m.PersistDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelftrack_persist_duration_seconds",
			Help:    "Duration of inventory document saves in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// Tree metrics
	m.LocationsTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelftrack_locations_total",
			Help: "Number of locations in the tree",
		},
	)

	m.BarcodesTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelftrack_barcodes_total",
			Help: "Number of assigned barcodes",
		},
	)

	m.TreeDepth = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelftrack_tree_depth",
			Help: "Longest location path",
		},
	)

	// Server metrics
	m.ServerUptimeSeconds = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelftrack_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
	)

	return m
}

// RunUptime updates the uptime gauge every interval until ctx is done
func (m *Metrics) RunUptime(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RecordGrpcRequest records a gRPC request with its status
func (m *Metrics) RecordGrpcRequest(method string, status string, duration time.Duration) {
	m.GrpcRequestsTotal.WithLabelValues(method, status).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordHTTPRequest records a REST request with its status code
func (m *Metrics) RecordHTTPRequest(route string, code string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ObserveOutcome implements assign.Observer
func (m *Metrics) ObserveOutcome(op string, outcome assign.Outcome) {
	m.OutcomesTotal.WithLabelValues(op, outcome.String()).Inc()
}

// ObservePersist implements assign.Observer
func (m *Metrics) ObservePersist(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.PersistTotal.WithLabelValues(status).Inc()
	m.PersistDuration.Observe(duration.Seconds())
}

// ObserveTree implements assign.Observer
func (m *Metrics) ObserveTree(stats location.Stats) {
	m.LocationsTotal.Set(float64(stats.Nodes))
	m.BarcodesTotal.Set(float64(stats.Barcodes))
	m.TreeDepth.Set(float64(stats.Depth))
}

var _ assign.Observer = (*Metrics)(nil)
