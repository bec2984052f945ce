package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_GeneralBurst(t *testing.T) {
	mw := NewRateLimitMiddleware(100, 1)
	handler := mw.Handler(okHandler())

	// The general bucket has burst capacity equal to the RPM, so a short
	// burst of board requests all pass.
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimitMiddleware_LimitedAuth(t *testing.T) {
	mw := NewRateLimitMiddleware(100, 1)
	handler := mw.Handler(okHandler())

	req1 := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	// Burst is 1 for the auth bucket, so an immediate second attempt is rejected.
	req2 := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, "60", rec2.Header().Get("Retry-After"))
}

func TestRateLimitMiddleware_PerClientBuckets(t *testing.T) {
	mw := NewRateLimitMiddleware(100, 1)
	handler := mw.Handler(okHandler())

	first := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	first.Header.Set("X-Forwarded-For", "10.0.0.1")
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, first)
	assert.Equal(t, http.StatusOK, rec1.Code)

	// A different client address gets its own bucket.
	second := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	second.Header.Set("X-Forwarded-For", "10.0.0.2")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, second)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestRateLimitMiddleware_ThumbnailExempt(t *testing.T) {
	mw := NewRateLimitMiddleware(100, 1)
	handler := mw.Handler(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/api/v1/documents/doc-1/thumbnail", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitMiddleware_Defaults(t *testing.T) {
	mw := NewRateLimitMiddleware(-1, 0)
	assert.Equal(t, 100, mw.generalRPM)
	assert.Equal(t, 10, mw.authRPM)
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	assert.Equal(t, "192.0.2.7", extractClientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.5")
	assert.Equal(t, "203.0.113.5", extractClientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.2, 10.0.0.1")
	assert.Equal(t, "198.51.100.2", extractClientIP(req))
}
