package httpx

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

type routerMetrics struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	rateLimitHits *prometheus.CounterVec
	sockets       prometheus.Gauge
}

func newRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requests: registerOrReuse(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modulehub",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})),
		latency: registerOrReuse(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modulehub",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})),
		rateLimitHits: registerOrReuse(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modulehub",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route", "key"})),
		sockets: registerOrReuse(prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "modulehub",
			Subsystem: "realtime",
			Name:      "open_sockets",
			Help:      "Websocket sessions currently attached to the hub",
		})),
	}
}

// registerOrReuse registers c with the default registry. When an identical
// collector already exists, as with several routers in one test binary, the
// existing one is returned.
func registerOrReuse[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.metrics.requests.With(labels).Inc()
	r.metrics.latency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, key string) {
	r.metrics.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}
