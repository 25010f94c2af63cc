package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streams",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "streams",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20, 40},
	}, []string{"method", "path"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streams",
		Name:      "upstream_requests_total",
		Help:      "Outbound requests by upstream name and result status.",
	}, []string{"upstream", "status"})

	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "streams",
		Name:      "upstream_request_duration_seconds",
		Help:      "Outbound request duration in seconds, per attempt.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"upstream"})

	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streams",
		Name:      "resolutions_total",
		Help:      "Stream resolutions by content type and the source that produced the result.",
	}, []string{"type", "source"})

	MetadataCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streams",
		Name:      "metadata_cache_hits_total",
		Help:      "Total number of metadata cache hits.",
	})

	MetadataCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streams",
		Name:      "metadata_cache_misses_total",
		Help:      "Total number of metadata cache misses.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		ResolutionsTotal,
		MetadataCacheHitsTotal,
		MetadataCacheMissesTotal,
	)
}
