package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every collector this package registers.
const Namespace = "suntan"

// unmatchedRoute labels requests chi could not route, keeping label
// cardinality bounded to the registered patterns.
const unmatchedRoute = "unknown"

var httpLabels = []string{"method", "path", "status"}

// HTTP holds the collectors of the search API.
type HTTP struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	inFlight        prometheus.Gauge
}

// RegisterHTTP creates the HTTP collectors and registers them on reg.
func RegisterHTTP(reg prometheus.Registerer) (*HTTP, error) {
	h := &HTTP{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Search API latency by route and status.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 12),
		}, httpLabels),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Search API requests by route and status.",
		}, httpLabels),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "http_requests_in_flight",
			Help:      "Search API requests currently being served.",
		}),
	}
	if err := registerAll(reg, h.requestDuration, h.requestsTotal, h.inFlight); err != nil {
		return nil, err
	}
	return h, nil
}

// Middleware observes every request once the handler returns.
func (h *HTTP) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.inFlight.Inc()
			defer h.inFlight.Dec()

			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			labels := prometheus.Labels{
				"method": r.Method,
				"path":   routeLabel(r),
				"status": strconv.Itoa(statusOf(ww)),
			}
			h.requestDuration.With(labels).Observe(time.Since(start).Seconds())
			h.requestsTotal.With(labels).Inc()
		})
	}
}

// routeLabel returns the chi pattern that matched r. The pattern is only
// complete after routing, so call it once the handler has run.
func routeLabel(r *http.Request) string {
	rc := chi.RouteContext(r.Context())
	if rc == nil || rc.RoutePattern() == "" {
		return unmatchedRoute
	}
	return rc.RoutePattern()
}

// statusOf treats a handler that never wrote a header as 200, like net/http.
func statusOf(ww chiMiddleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

func registerAll(reg prometheus.Registerer, cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("metrics: register: %w", err)
		}
	}
	return nil
}
