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
		Namespace: "gravel",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gravel",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gravel",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Editor metrics
	EditOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravel",
		Subsystem: "editor",
		Name:      "operations_total",
		Help:      "Total editing intents applied, by operation and outcome",
	}, []string{"op", "outcome"})

	UndoOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravel",
		Subsystem: "editor",
		Name:      "undo_total",
		Help:      "Total undo requests, by whether a state was restored",
	}, []string{"restored"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gravel",
		Subsystem: "editor",
		Name:      "active_sessions",
		Help:      "Current number of live editing sessions",
	})

	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gravel",
		Subsystem: "editor",
		Name:      "sessions_expired_total",
		Help:      "Total sessions removed after idling past their TTL",
	})

	// Import metrics
	ImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gravel",
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "Duration of track imports including decimation",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"format"})

	ImportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravel",
		Subsystem: "import",
		Name:      "errors_total",
		Help:      "Total failed track imports",
	}, []string{"format"})

	PointsDecimated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gravel",
		Subsystem: "import",
		Name:      "points_dropped_total",
		Help:      "Total track points dropped by decimation",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gravel",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravel",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravel",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gravel",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gravel",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gravel",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})

	// Sampled from pgxpool.Stat, which already reports a running total.
	DBPoolEmptyAcquires = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gravel",
		Subsystem: "db",
		Name:      "pool_empty_acquires",
		Help:      "Times a connection had to be established when acquiring from pool",
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

// ObserveImport records one track import.
func ObserveImport(format string, start time.Time, original, kept int, err error) {
	if err != nil {
		ImportErrors.WithLabelValues(format).Inc()
		return
	}
	ImportDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	if dropped := original - kept; dropped > 0 {
		PointsDecimated.Add(float64(dropped))
	}
}

// ObserveEdit records one editing intent.
func ObserveEdit(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	EditOperations.WithLabelValues(op, outcome).Inc()
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
// It takes an interface so this package does not import pgxpool.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
		EmptyAcquireCount() int64
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
		DBPoolEmptyAcquires.Set(float64(s.EmptyAcquireCount()))
	}
}
