// Package metrics 定义 Prometheus 指标，/metrics 由 server 包暴露。
//
//   - cinesphere_http_requests_total{route,status}
//   - cinesphere_http_request_duration_seconds{route}
//   - cinesphere_recommend_total{outcome}            outcome: ok, memo, not_found, empty, error
//   - cinesphere_recommend_duration_seconds
//   - cinesphere_enrich_fetch_total{field,outcome}   field: poster, detail; outcome: ok, absent, error
//   - cinesphere_enrich_batch_duration_seconds
//   - cinesphere_enrich_breaker_state{name}          0=closed, 1=half-open, 2=open
//   - cinesphere_catalog_rows
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cinesphere"

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		},
		[]string{"route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"route"},
	)

	RecommendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_total",
			Help:      "Similarity lookups by outcome.",
		},
		[]string{"outcome"},
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_duration_seconds",
			Help:      "Similarity lookup latency, enrichment excluded.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	EnrichFetch = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_fetch_total",
			Help:      "Per-field metadata fetches by outcome.",
		},
		[]string{"field", "outcome"},
	)

	EnrichBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrich_batch_duration_seconds",
			Help:      "Wall time of one enrichment batch.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20},
		},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enrich_breaker_state",
			Help:      "Circuit breaker state: 0=closed, 1=half-open, 2=open.",
		},
		[]string{"name"},
	)

	CatalogRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_rows",
			Help:      "Rows in the loaded catalog, 0 when loading failed.",
		},
	)
)
