package api

import (
	"apexfolio-bot-go/internal/models"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exposed at /metrics:
//
//	apexfolio_http_requests_total{method,route,status}
//	apexfolio_http_request_duration_seconds{method,route}
//	apexfolio_bot_status{status}  1 for the status last set through the API
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	botStatus *prometheus.GaugeVec
}

// NewMetrics registers the collectors on a private registry so several
// routers (as in tests) never collide.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apexfolio_http_requests_total",
				Help: "HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apexfolio_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		botStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "apexfolio_bot_status",
				Help: "Bot status indicator (one labeled series per status, 1 = current)",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(
		m.requests,
		m.durations,
		m.botStatus,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware records count and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.durations.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// SetBotStatus flips the status series so exactly one reads 1.
func (m *Metrics) SetBotStatus(status models.BotStatus) {
	for _, s := range models.AllStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		m.botStatus.WithLabelValues(string(s)).Set(v)
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
