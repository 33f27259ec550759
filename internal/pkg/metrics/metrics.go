package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfare",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wayfare",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wayfare",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Tour engine metrics
	RoutesBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfare",
		Subsystem: "tour",
		Name:      "routes_built_total",
		Help:      "Total routes constructed by the greedy builder",
	}, []string{"theme"})

	Replans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfare",
		Subsystem: "tour",
		Name:      "replans_total",
		Help:      "Total replanning requests by extracted intent action",
	}, []string{"action"})

	DetoursCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfare",
		Subsystem: "tour",
		Name:      "detours_committed_total",
		Help:      "Total detour stops spliced into active routes",
	})

	ActiveTours = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wayfare",
		Subsystem: "tour",
		Name:      "active_sessions",
		Help:      "Current number of active tour sessions",
	})

	PlaceSearchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfare",
		Subsystem: "places",
		Name:      "search_errors_total",
		Help:      "Total failed place-search provider calls",
	})

	NarrationCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfare",
		Subsystem: "cache",
		Name:      "narration_hits_total",
		Help:      "Total narration script cache hits",
	})

	NarrationCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfare",
		Subsystem: "cache",
		Name:      "narration_misses_total",
		Help:      "Total narration script cache misses",
	})

	AudioCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfare",
		Subsystem: "cache",
		Name:      "audio_hits_total",
		Help:      "Total synthesized audio cache hits",
	})

	AudioCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfare",
		Subsystem: "cache",
		Name:      "audio_misses_total",
		Help:      "Total synthesized audio cache misses",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wayfare",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
