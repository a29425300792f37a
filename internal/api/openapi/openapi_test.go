package openapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoad(t *testing.T) {
	doc, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	for _, p := range []string{"/api/v1/access", "/api/v1/setup", "/api/v1/stock/{id}/adjust"} {
		if doc.Paths.Find(p) == nil {
			t.Errorf("путь %s отсутствует в документе", p)
		}
	}
}

func TestValidatorMiddleware(t *testing.T) {
	v, err := NewValidator(context.Background(), testLogger())
	if err != nil {
		t.Fatalf("NewValidator() вернул ошибку: %v", err)
	}

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		expected int
	}{
		{"валидный клиент", http.MethodPost, "/api/v1/clients", `{"full_name":"Jean Dupont"}`, http.StatusOK},
		{"клиент без имени", http.MethodPost, "/api/v1/clients", `{"email":"a@b.fr"}`, http.StatusBadRequest},
		{"неизвестный статус ремонта", http.MethodGet, "/api/v1/repairs?status=broken", "", http.StatusBadRequest},
		{"limit выше предела", http.MethodGet, "/api/v1/clients?limit=500", "", http.StatusBadRequest},
		{"access без path", http.MethodGet, "/api/v1/access", "", http.StatusBadRequest},
		{"access с path", http.MethodGet, "/api/v1/access?path=/dashboard", "", http.StatusOK},
		{"неописанный путь", http.MethodGet, "/health/live", "", http.StatusOK},
		{"adjust без delta", http.MethodPost, "/api/v1/stock/3f2b8c1e-0a4d-4e5f-9b6a-7c8d9e0f1a2b/adjust", `{}`, http.StatusBadRequest},
		{"неизвестный тариф", http.MethodPost, "/api/v1/setup",
			`{"plan":"gold","admin":{"email":"a@b.fr","full_name":"A","password":"12345678"},"organisation":{"name":"G"}}`,
			http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := v.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// тело должно остаться доступным обработчику
				if tt.body != "" {
					data, _ := io.ReadAll(r.Body)
					if string(data) != tt.body {
						t.Errorf("тело = %q, ожидается %q", data, tt.body)
					}
				}
				w.WriteHeader(http.StatusOK)
			}))

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.target, body)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Fatalf("статус = %d, ожидается %d; тело: %s", rec.Code, tt.expected, rec.Body.String())
			}
			if rec.Code == http.StatusBadRequest {
				var resp struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("невалидный JSON ошибки: %v", err)
				}
				if resp.Error.Code != "VALIDATION_ERROR" {
					t.Errorf("code = %q, ожидается VALIDATION_ERROR", resp.Error.Code)
				}
			}
		})
	}
}
