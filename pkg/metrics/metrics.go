package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ShopLoads counts shop loads by outcome (cache_hit|fetched|stale|error).
	ShopLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewind_shop_loads_total",
			Help: "Total number of shop loads by outcome",
		},
		[]string{"result"},
	)

	// ProviderFetchDuration measures calls to the shop data provider.
	ProviderFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rewind_shop_provider_fetch_seconds",
			Help:    "Shop data provider fetch latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// ScheduledRefreshes counts scheduler-driven forced refreshes (success|failure).
	ScheduledRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewind_shop_scheduled_refreshes_total",
			Help: "Total number of scheduled shop refreshes",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rewind_shop_http_request_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
