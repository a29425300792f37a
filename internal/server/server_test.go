package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tinocursor/swift-garage-sub001/internal/api/handlers"
)

type passAuth struct{}

func (passAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
}

func (passAuth) OptionalMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

func TestNewRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := handlers.NewAPIHandler(handlers.NewHealthHandler(nil, nil, nil), handlers.Services{}, logger)
	router := NewRouter(logger, api, passAuth{}, nil, nil)

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		contentType string
	}{
		{"liveness", "/health/live", http.StatusOK, "application/json"},
		{"статика", "/static/css/app.css", http.StatusOK, "text/css"},
		{"несуществующий файл", "/static/css/none.css", http.StatusNotFound, ""},
		{"защищённый API", "/api/v1/me", http.StatusUnauthorized, ""},
		{"UI не подключён", "/dashboard", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("%s: статус = %d, ожидается %d", tt.path, rec.Code, tt.wantStatus)
			}
			if tt.contentType != "" && !strings.HasPrefix(rec.Header().Get("Content-Type"), tt.contentType) {
				t.Errorf("Content-Type = %q, ожидается %q", rec.Header().Get("Content-Type"), tt.contentType)
			}
		})
	}
}
