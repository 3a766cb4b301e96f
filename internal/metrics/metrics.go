package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors are created eagerly so packages can record before Register runs (tests never register).
var (
	VotesAdmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debate_votes_admitted_total",
			Help: "Votes admitted, by voter kind and side.",
		},
		[]string{"kind", "side"},
	)

	VotesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debate_votes_rejected_total",
			Help: "Votes rejected by the admission guard, by reason.",
		},
		[]string{"reason"},
	)

	LiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "debate_live_streams",
			Help: "Number of streams currently live.",
		},
	)

	LiveTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debate_live_transitions_total",
			Help: "Live start/stop transitions, by status and reason.",
		},
		[]string{"status", "reason"},
	)

	Subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "debate_ws_subscribers",
			Help: "Connected real-time subscribers.",
		},
	)

	SinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debate_sink_failures_total",
			Help: "Persistence sink writes that failed and were dropped.",
		},
		[]string{"sink"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "debate_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route, method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "debate_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. pool may be nil.
func Register(pool *pgxpool.Pool) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			VotesAdmitted,
			VotesRejected,
			LiveStreams,
			LiveTransitions,
			Subscribers,
			SinkFailures,
			RequestDuration,
			RequestsInFlight,
		)
		if pool == nil {
			return
		}
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "debate_db_pool_acquired",
				Help: "Acquired database connections.",
			}, func() float64 { return float64(pool.Stat().AcquiredConns()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "debate_db_pool_idle",
				Help: "Idle database connections.",
			}, func() float64 { return float64(pool.Stat().IdleConns()) }),
		)
	})
}

// Middleware records request duration and in-flight count.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		RequestsInFlight.Inc()
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
		RequestsInFlight.Dec()
	}
}

// Handler serves the Prometheus exposition endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
