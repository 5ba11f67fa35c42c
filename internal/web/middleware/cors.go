package middleware

import (
	"net/http"
	"os"
	"strings"
)

// originSet is the whitelist of browser origins that may call the API with
// credentials. Localhost origins on any port are always allowed so local
// frontends work without configuration.
type originSet map[string]struct{}

// loadAllowedOrigins reads the comma-separated WEB_ALLOWED_ORIGINS env var.
func loadAllowedOrigins() originSet {
	set := make(originSet)
	for _, origin := range strings.Split(os.Getenv("WEB_ALLOWED_ORIGINS"), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			set[origin] = struct{}{}
		}
	}
	return set
}

func (s originSet) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if _, ok := s[origin]; ok {
		return true
	}
	for _, scheme := range []string{"http://", "https://"} {
		host := strings.TrimPrefix(origin, scheme)
		if host == "localhost" || strings.HasPrefix(host, "localhost:") {
			return true
		}
	}
	return false
}

// CORS returns middleware that answers cross-origin requests from whitelisted
// origins. The session cookie needs Allow-Credentials, which forbids a
// wildcard origin, so the matching origin is echoed back instead.
func CORS() func(http.Handler) http.Handler {
	allowed := loadAllowedOrigins()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); allowed.allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders returns middleware for a JSON API that is never rendered in
// a browser: deny framing and script execution outright.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, r)
		})
	}
}
