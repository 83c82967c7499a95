package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicPaths answer without credentials so health checks and scrapers keep working.
var publicPaths = []string{"/health", "/metrics"}

type keyring [][]byte

func newKeyring(apiKeys []string) keyring {
	var ring keyring
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			ring = append(ring, []byte(k))
		}
	}
	return ring
}

// accepts compares token against every key so timing does not reveal
// which prefix matched.
func (k keyring) accepts(token string) bool {
	got := []byte(token)
	ok := 0
	for _, key := range k {
		ok |= subtle.ConstantTimeCompare(key, got)
	}
	return ok == 1
}

// BearerAuthMiddleware rejects requests without a known API key in an
// "Authorization: Bearer <key>" header. Paths in public are served
// unauthenticated. With no keys configured every request passes.
func BearerAuthMiddleware(apiKeys []string, public ...string) func(http.Handler) http.Handler {
	ring := newKeyring(apiKeys)
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}

	return func(next http.Handler) http.Handler {
		if len(ring) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if msg := ring.check(r.Header.Get("Authorization")); msg != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="suntan"`)
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// check returns the rejection message for header, or "" when it carries a
// valid key.
func (k keyring) check(header string) string {
	if header == "" {
		return "missing authorization header"
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "authorization header must use Bearer scheme"
	}
	if !k.accepts(strings.TrimSpace(token)) {
		return "invalid api key"
	}
	return ""
}
