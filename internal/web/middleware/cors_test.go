package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsHandler() http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return CORS()(ok)
}

func TestCORSLocalhostAllowed(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/menu", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	recorder := httptest.NewRecorder()
	corsHandler().ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected origin echoed back, got %q", got)
	}
	if recorder.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("expected credentials allowed for localhost")
	}
}

func TestCORSWhitelistedOrigin(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://mess.example.com, https://admin.example.com")

	req := httptest.NewRequest("GET", "/api/v1/menu", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	recorder := httptest.NewRecorder()
	corsHandler().ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Errorf("expected whitelisted origin echoed back, got %q", got)
	}
}

func TestCORSForeignOriginRejected(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/menu", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	recorder := httptest.NewRecorder()
	corsHandler().ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin must not receive CORS headers, got %q", got)
	}
	if recorder.Code != http.StatusOK {
		t.Errorf("request itself must still be served, got %d", recorder.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest("OPTIONS", "/api/v1/scan", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	recorder := httptest.NewRecorder()
	corsHandler().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Errorf("preflight must short-circuit with 204, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight response missing allowed methods")
	}
	if recorder.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Error("preflight response missing allowed headers")
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/menu", nil))

	if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if recorder.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing frame options header")
	}
	if recorder.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing content security policy")
	}
}
