package metrics

import (
	"net/http"
	"strconv"
	"time"

	"porto/internal/domain/model"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPLatency           *prometheus.HistogramVec
	StageTransitionsTotal *prometheus.CounterVec
	NotificationsTotal    *prometheus.CounterVec
	ArchivedRecordsTotal  *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of HTTP requests by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	stageTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_stage_transitions_total",
		Help:      "Order stage changes by source and target stage.",
	}, []string{"from", "to"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notification deliveries by consumer and result.",
	}, []string{"consumer", "result"})

	archived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archived_records_total",
		Help:      "Records moved to archived by the sweep.",
	}, []string{"kind"})

	registry.MustRegister(
		httpLatency,
		stageTransitions,
		notifications,
		archived,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Registry:              registry,
		HTTPLatency:           httpLatency,
		StageTransitionsTotal: stageTransitions,
		NotificationsTotal:    notifications,
		ArchivedRecordsTotal:  archived,
	}
}

func (m *Metrics) StageChanged(from, to model.Stage) {
	m.StageTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) NotificationDelivered(consumer string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.NotificationsTotal.WithLabelValues(consumer, result).Inc()
}

func (m *Metrics) Archived(kind string, n int64) {
	m.ArchivedRecordsTotal.WithLabelValues(kind).Add(float64(n))
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware observes request latency labelled by the echo route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			m.HTTPLatency.
				WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
