package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/metrics"
	healthuc "github.com/kailas-cloud/suntan/internal/usecase/health"
	searchuc "github.com/kailas-cloud/suntan/internal/usecase/search"
)

// --- Mocks ---

type mockSearcher struct {
	result *db.SearchResult
	err    error
	last   *db.TextQuery
}

func (m *mockSearcher) Search(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	m.last = q
	return m.result, m.err
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

type panicSearcher struct{}

func (panicSearcher) Search(context.Context, *db.TextQuery) (*db.SearchResult, error) {
	panic("boom")
}

// --- Helpers ---

func newTestServer(s searchuc.Searcher, indexErr error) (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	srv := NewServer(
		searchuc.New(s),
		healthuc.New(&mockPinger{err: indexErr}, nil),
		reg,
		nil,
	)
	return srv.Routes(nil, nil), reg
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

// --- Tests ---

func TestSearch_OK(t *testing.T) {
	s := &mockSearcher{result: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{ID: "a", Score: 2.5, Fields: map[string]string{"title": "Ada"}},
			{ID: "b", Score: 1.0},
		},
	}}
	h, _ := newTestServer(s, nil)

	rr := do(t, h, "/search?q=ada&fields=title,body&limit=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Query != "ada" || resp.Total != 2 || resp.Limit != 5 || len(resp.Items) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Items[0].ID != "a" || resp.Items[0].Fields["title"] != "Ada" {
		t.Errorf("first hit = %+v", resp.Items[0])
	}
	if s.last == nil || s.last.Limit != 5 || len(s.last.Fields) != 2 {
		t.Errorf("query passed to engine = %+v", s.last)
	}
}

func TestSearch_DefaultLimit(t *testing.T) {
	h, _ := newTestServer(&mockSearcher{result: &db.SearchResult{}}, nil)

	rr := do(t, h, "/search?q=ada")
	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Limit != db.DefaultSearchLimit {
		t.Errorf("limit = %d, want %d", resp.Limit, db.DefaultSearchLimit)
	}
	if resp.Items == nil {
		t.Error("items must encode as an empty array")
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		engineErr  error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"bad limit", "/search?q=ada&limit=x", nil, http.StatusBadRequest, CodeBadRequest},
		{"zero limit", "/search?q=ada&limit=0", nil, http.StatusBadRequest, CodeBadRequest},
		{"blank query", "/search?q=%20", nil, http.StatusBadRequest, CodeInvalidQuery},
		{"index missing", "/search?q=ada", db.ErrIndexNotFound, http.StatusNotFound, CodeIndexNotFound},
		{"engine failure", "/search?q=ada", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestServer(&mockSearcher{err: tt.engineErr}, nil)
			rr := do(t, h, tt.target)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			resp := decodeError(t, rr)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(resp.Message, "disk") {
				t.Errorf("internal detail leaked: %q", resp.Message)
			}
		})
	}
}

func TestSearch_PanicRecovered(t *testing.T) {
	h, _ := newTestServer(panicSearcher{}, nil)

	rr := do(t, h, "/search?q=ada")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != CodeInternalError {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		indexErr   error
		wantStatus int
		want       healthuc.Status
	}{
		{"healthy", nil, http.StatusOK, healthuc.Healthy},
		{"degraded", errors.New("down"), http.StatusServiceUnavailable, healthuc.Degraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestServer(&mockSearcher{}, tt.indexErr)
			rr := do(t, h, "/health")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.want {
				t.Errorf("status = %s, want %s", resp.Status, tt.want)
			}
			if _, ok := resp.Checks[healthuc.ComponentIndex]; !ok {
				t.Error("index check missing")
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics, err := metrics.RegisterHTTP(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	srv := NewServer(
		searchuc.New(&mockSearcher{result: &db.SearchResult{}}),
		healthuc.New(&mockPinger{}, nil),
		reg,
		nil,
	)
	h := srv.Routes(nil, httpMetrics)

	do(t, h, "/search?q=ada")
	rr := do(t, h, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "suntan_http_requests_total") {
		t.Errorf("request counter not exposed:\n%s", rr.Body.String())
	}
}

func TestRoutes_AuthAndNotFound(t *testing.T) {
	srv := NewServer(
		searchuc.New(&mockSearcher{}),
		healthuc.New(&mockPinger{}, nil),
		prometheus.NewRegistry(),
		nil,
	)
	h := srv.Routes([]string{"secret"}, nil)

	if rr := do(t, h, "/search?q=ada"); rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated: status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/nope", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown route: status = %d", rr.Code)
	}
}
