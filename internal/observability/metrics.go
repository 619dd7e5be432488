package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmisd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"port", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cmisd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"port", "method", "path", "status"},
	)
	driverQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmisd",
			Subsystem: "driver",
			Name:      "queries_total",
			Help:      "Driver aggregate queries served by the daemon.",
		},
		[]string{"port", "aggregate", "outcome"},
	)
	driverDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cmisd",
			Subsystem: "driver",
			Name:      "query_duration_seconds",
			Help:      "Driver aggregate query duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"port", "aggregate", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, driverQueries, driverDuration)
	})
}

func RecordHTTPRequest(port, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(port, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(port, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordDriverQuery(port, aggregate string, err error, duration time.Duration) {
	RegisterMetrics()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	driverQueries.WithLabelValues(port, aggregate, outcome).Inc()
	driverDuration.WithLabelValues(port, aggregate, outcome).Observe(duration.Seconds())
}
