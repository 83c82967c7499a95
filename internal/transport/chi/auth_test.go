package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		want   int
	}{
		{"no keys configured", nil, "/search", "", http.StatusOK},
		{"only blank keys", []string{"", "  "}, "/search", "", http.StatusOK},
		{"missing header", []string{"secret"}, "/search", "", http.StatusUnauthorized},
		{"basic scheme", []string{"secret"}, "/search", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"scheme without token", []string{"secret"}, "/search", "Bearer", http.StatusUnauthorized},
		{"wrong key", []string{"secret"}, "/search", "Bearer wrong-key", http.StatusUnauthorized},
		{"key prefix", []string{"secret"}, "/search", "Bearer secre", http.StatusUnauthorized},
		{"valid key", []string{"secret"}, "/search", "Bearer secret", http.StatusOK},
		{"lowercase scheme", []string{"secret"}, "/search", "bearer secret", http.StatusOK},
		{"second of two keys", []string{"key1", "key2"}, "/search", "Bearer key2", http.StatusOK},
		{"public health", []string{"secret"}, "/health", "", http.StatusOK},
		{"public metrics", []string{"secret"}, "/metrics", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BearerAuthMiddleware(tt.keys, publicPaths...)(okHandler())

			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			if got := rr.Header().Get("WWW-Authenticate"); got == "" {
				t.Error("missing WWW-Authenticate header")
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != CodeUnauthorized {
				t.Errorf("code = %q, want %q", errResp.Code, CodeUnauthorized)
			}
		})
	}
}

func TestBearerAuth_NoPublicPaths(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"secret"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
