package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Global metrics, registered on the default registry through promauto.

var (
	// HttpRequestsTotal counts requests by method, route pattern and status.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektornav_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HttpRequestDuration measures server response time.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kektornav_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path"},
	)

	// SearchesTotal counts path queries by kind (graph, grid) and final status.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektornav_searches_total",
			Help: "Total number of path searches by kind and status",
		},
		[]string{"kind", "status"},
	)

	// SearchExpandedNodes records how many nodes each search closed.
	SearchExpandedNodes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kektornav_search_expanded_nodes",
			Help:    "Number of nodes expanded per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"kind"},
	)

	// GraphsTotal tracks the number of loaded graphs and grids.
	GraphsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektornav_graphs_total",
			Help: "Number of loaded navigation graphs by kind",
		},
		[]string{"kind"},
	)

	// GraphNodes tracks the live node count of each waypoint graph.
	GraphNodes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektornav_graph_nodes",
			Help: "Number of live nodes per waypoint graph",
		},
		[]string{"graph"},
	)
)
