package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on their own registry so tests can
// build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	Generations       *prometheus.CounterVec
	ChunkAttempts     *prometheus.CounterVec
	CompletionRetries prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "endpoint"},
		),
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizgen_generations_total",
				Help: "Completed quiz generations by outcome",
			},
			[]string{"outcome"},
		),
		ChunkAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizgen_chunk_attempts_total",
				Help: "Chunk generation attempts by result",
			},
			[]string{"result"},
		),
		CompletionRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quizgen_completion_retries_total",
			Help: "Model calls retried after a failure",
		}),
	}
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.Generations,
		m.ChunkAttempts,
		m.CompletionRetries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveChunkAttempt(outcome string) {
	m.ChunkAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGeneration(degraded bool) {
	outcome := "ai"
	if degraded {
		outcome = "degraded"
	}
	m.Generations.WithLabelValues(outcome).Inc()
}

// ObserveRetry matches llm.RetryObserver.
func (m *Metrics) ObserveRetry(int, error) {
	m.CompletionRetries.Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestCounter.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
