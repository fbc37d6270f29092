package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "progresspace"

// write outcomes
const (
	outcomeAccepted = "accepted"
	outcomeForced   = "forced"
	outcomeConflict = "conflict"
	outcomeStale    = "stale"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	writes   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "timetable",
			Name:      "writes_total",
			Help:      "Timetable writes by operation and outcome (accepted, forced, conflict, stale).",
		}, []string{"op", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.writes)
	}
	return m
}

func (m *metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		if err != nil {
			// let the error handler write the response so that the real status gets recorded
			ctx.Error(err)
		}

		route := ctx.Path()
		if route == "" {
			route = "unmatched"
		}
		req := ctx.Request()
		m.duration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(req.Method, route, strconv.Itoa(ctx.Response().Status)).Inc()
		return nil
	}
}

func (m *metrics) write(op, outcome string) {
	m.writes.WithLabelValues(op, outcome).Inc()
}
