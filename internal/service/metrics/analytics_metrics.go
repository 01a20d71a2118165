package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sigderive",
			Subsystem: "derived",
			Name:      "endpoint_latency_seconds",
			Help:      "Latency of derived signal endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sigderive",
			Subsystem: "derived",
			Name:      "endpoint_errors_total",
			Help:      "Errors by derived signal endpoint and error code",
		},
		[]string{"endpoint", "code"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors)
	})
}

// Observe records the latency of endpoint since start, and the error code when non-empty.
func Observe(endpoint string, start time.Time, code string) {
	EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if code != "" {
		EndpointErrors.WithLabelValues(endpoint, code).Inc()
	}
}
