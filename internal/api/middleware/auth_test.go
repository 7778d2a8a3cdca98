// internal/api/middleware/auth_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAPIKeyAuth(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		configured string
		header     string
		value      string
		wantStatus int
	}{
		{"valid header key", "secret-key", "X-API-Key", "secret-key", http.StatusOK},
		{"valid bearer token", "secret-key", "Authorization", "Bearer secret-key", http.StatusOK},
		{"wrong key", "secret-key", "X-API-Key", "wrong-key", http.StatusUnauthorized},
		{"wrong bearer", "secret-key", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"missing key", "secret-key", "", "", http.StatusUnauthorized},
		{"auth disabled", "", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := APIKeyAuth(tt.configured)(handler)

			req := httptest.NewRequest("GET", "/api/v1/backtests", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized &&
				!strings.Contains(w.Body.String(), "UNAUTHORIZED") {
				t.Errorf("body should carry the UNAUTHORIZED code, got %s", w.Body.String())
			}
		})
	}
}
