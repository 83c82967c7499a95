// Package chi serves the migrated index over HTTP: ranked search, health
// and Prometheus metrics.
package chi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/metrics"
	healthuc "github.com/kailas-cloud/suntan/internal/usecase/health"
	searchuc "github.com/kailas-cloud/suntan/internal/usecase/search"
)

// Server holds the HTTP handlers.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	gatherer      prometheus.Gatherer
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP server. gatherer backs /metrics.
func NewServer(
	search *searchuc.Service,
	health *healthuc.Service,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:        search,
		health:        health,
		gatherer:      gatherer,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes builds the router with the full middleware chain. httpMetrics may
// be nil to skip request metrics.
func (s *Server) Routes(apiKeys []string, httpMetrics *metrics.HTTP) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys, publicPaths...))
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware())
	}

	r.Get("/search", s.Search)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// SearchHit is one ranked document.
type SearchHit struct {
	ID     string            `json:"id"`
	Score  float64           `json:"score"`
	Fields map[string]string `json:"fields,omitempty"`
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Query string      `json:"query"`
	Total int         `json:"total"`
	Limit int         `json:"limit"`
	Items []SearchHit `json:"items"`
}

// Search handles GET /search?q=&fields=&limit=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var fields []string
	if raw := q.Get("fields"); raw != "" {
		fields = strings.Split(raw, ",")
	}

	res, err := s.search.Search(r.Context(), q.Get("q"), fields, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if limit == 0 {
		limit = db.DefaultSearchLimit
	}
	writeJSON(w, http.StatusOK, searchResponse(q.Get("q"), limit, res))
}

func searchResponse(query string, limit int, res *db.SearchResult) SearchResponse {
	resp := SearchResponse{Query: query, Limit: limit, Items: []SearchHit{}}
	if res == nil {
		return resp
	}
	resp.Total = res.Total
	for _, e := range res.Entries {
		resp.Items = append(resp.Items, SearchHit{ID: e.ID, Score: e.Score, Fields: e.Fields})
	}
	return resp
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
