package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/health/live", "/health/live"},
		{"/api/v1/clients", "/api/v1/clients"},
		{"/api/v1/clients/3f2b8c1e-0a4d-4e5f-9b6a-7c8d9e0f1a2b", "/api/v1/clients/{id}"},
		{"/api/v1/stock/3f2b8c1e-0a4d-4e5f-9b6a-7c8d9e0f1a2b/adjust", "/api/v1/stock/{id}/adjust"},
		{"/organisation-selector", "/organisation-selector"},
		{"/static/css/app.css", "/static/*"},
		{"/api/v1/clients/not-a-uuid", "/api/v1/clients/not-a-uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizePath(tt.input); got != tt.expected {
				t.Errorf("normalizePath(%q) = %q, ожидается %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMetricsMiddleware_PassThrough(t *testing.T) {
	handler := MetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("статус = %d, ожидается 418", rec.Code)
	}
}
