package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// dummyHandler is a simple handler that returns 200 OK
func dummyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

const dashboardOrigin = "http://localhost:5173"

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed bool
	}{
		{"allowed origin", []string{dashboardOrigin}, http.MethodGet, dashboardOrigin, false, http.StatusOK, true},
		{"second allowed origin", []string{dashboardOrigin, "https://hub.example.com"}, http.MethodGet, "https://hub.example.com", false, http.StatusOK, true},
		{"configured with trailing slash", []string{"https://hub.example.com/"}, http.MethodGet, "https://hub.example.com", false, http.StatusOK, true},
		{"origin case differs", []string{"https://Hub.Example.com"}, http.MethodGet, "https://hub.example.com", false, http.StatusOK, true},
		{"unknown origin still served", []string{dashboardOrigin}, http.MethodGet, "http://evil.example", false, http.StatusOK, false},
		{"no origin", []string{dashboardOrigin}, http.MethodGet, "", false, http.StatusOK, false},
		{"nil config", nil, http.MethodGet, dashboardOrigin, false, http.StatusOK, false},
		{"blank entries ignored", []string{"", "  "}, http.MethodGet, dashboardOrigin, false, http.StatusOK, false},
		{"allowed preflight", []string{dashboardOrigin}, http.MethodOptions, dashboardOrigin, true, http.StatusNoContent, true},
		{"unknown preflight passes through", []string{dashboardOrigin}, http.MethodOptions, "http://evil.example", true, http.StatusOK, false},
		{"plain OPTIONS is not a preflight", []string{dashboardOrigin}, http.MethodOptions, dashboardOrigin, false, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/projects", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()

			CORS(tt.allowed)(dummyHandler()).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "Origin", w.Header().Get("Vary"))
			if !tt.wantAllowed {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
				return
			}
			assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, "Content-Disposition, X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodOptions, "/project/7/documents", nil)
	req.Header.Set("Origin", dashboardOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization")
	w := httptest.NewRecorder()

	CORS([]string{dashboardOrigin})(next).ServeHTTP(w, req)

	assert.False(t, called, "preflight must not reach the handler")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Authorization, Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, w.Body.String())
}
