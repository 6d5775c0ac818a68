package middleware

import (
	"net/http"
	"strings"

	"github.com/sydlexius/liner/internal/auth"
)

// RequireToken returns middleware that admits only requests carrying a
// bearer token accepted by v. While no token hash is configured the
// guarded routes answer 403 to everyone.
func RequireToken(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.Enabled() {
				writeError(w, http.StatusForbidden, "trigger disabled: no token configured")
				return
			}
			token := extractToken(r)
			if token == "" || !v.Verify(token) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="liner"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
