package middleware

import (
	"net/http"
	"strings"
)

// CORS allows the configured origins. The configured value may be "*" or a
// comma-separated allowlist.
func CORS(origins string) func(http.Handler) http.Handler {
	allowlist := parseOrigins(origins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqOrigin := r.Header.Get("Origin")
			allowed := origins

			if reqOrigin != "" && isAllowed(reqOrigin, allowlist) {
				allowed = reqOrigin
			}

			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func isAllowed(reqOrigin string, allowlist []string) bool {
	for _, o := range allowlist {
		if o == "*" || o == reqOrigin {
			return true
		}
	}
	return false
}
