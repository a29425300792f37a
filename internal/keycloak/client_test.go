package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockKeycloak создаёт mock HTTP-сервер Keycloak.
// tokenHandler обрабатывает запросы на получение токена,
// adminHandler — запросы к Admin REST API.
func setupMockKeycloak(t *testing.T, tokenHandler, adminHandler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/realms/swift-garage/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenHandler != nil {
			tokenHandler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "test-access-token",
			TokenType:   "Bearer",
			ExpiresIn:   300,
		})
	})

	mux.HandleFunc("/admin/realms/swift-garage", func(w http.ResponseWriter, r *http.Request) {
		if adminHandler != nil {
			adminHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/admin/realms/swift-garage/", func(w http.ResponseWriter, r *http.Request) {
		if adminHandler != nil {
			adminHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := New(server.URL, "swift-garage", "swift-garage", "test-secret", server.Client(), testLogger())
	return server, client
}

// TestClient_TokenCaching проверяет кэширование токена.
func TestClient_TokenCaching(t *testing.T) {
	tokenRequests := 0

	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			tokenRequests++
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "cached-token", ExpiresIn: 300})
		},
		nil,
	)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		token, err := client.getToken(ctx)
		if err != nil {
			t.Fatalf("Ошибка получения токена: %v", err)
		}
		if token != "cached-token" {
			t.Errorf("ожидался cached-token, получен %s", token)
		}
	}

	if tokenRequests != 1 {
		t.Errorf("ожидался 1 запрос токена, было %d", tokenRequests)
	}
}

// TestClient_TokenRefresh проверяет обновление истекающего токена.
func TestClient_TokenRefresh(t *testing.T) {
	tokenRequests := 0

	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			tokenRequests++
			w.Header().Set("Content-Type", "application/json")
			// Токен живёт меньше 30 секунд — каждый вызов обновляет
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "short-token", ExpiresIn: 10})
		},
		nil,
	)

	ctx := context.Background()
	_, _ = client.getToken(ctx)
	_, _ = client.getToken(ctx)

	if tokenRequests != 2 {
		t.Errorf("ожидалось 2 запроса токена, было %d", tokenRequests)
	}
}

// TestClient_TokenError проверяет ошибку получения токена.
func TestClient_TokenError(t *testing.T) {
	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
		},
		nil,
	)

	if _, err := client.GetUser(context.Background(), "u1"); err == nil {
		t.Fatal("ожидалась ошибка при недействительных credentials")
	}
}

// TestClient_CreateUser проверяет создание пользователя с паролем и группами.
func TestClient_CreateUser(t *testing.T) {
	var got userCreateRequest

	_, client := setupMockKeycloak(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/admin/realms/swift-garage/users" {
			t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-access-token" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("декодирование тела: %v", err)
		}
		w.Header().Set("Location", "http://kc/admin/realms/swift-garage/users/kc-123")
		w.WriteHeader(http.StatusCreated)
	})

	id, err := client.CreateUser(context.Background(), NewUser{
		Email: "chef@garage.fr", FirstName: "Jeanne", LastName: "Martin",
		Password: "s3cret-pass", Groups: []string{"/garage-superadmins"},
	})
	if err != nil {
		t.Fatalf("CreateUser() ошибка: %v", err)
	}
	if id != "kc-123" {
		t.Errorf("id = %q, ожидается kc-123", id)
	}
	if got.Username != "chef@garage.fr" || !got.Enabled {
		t.Errorf("тело запроса = %+v", got)
	}
	if len(got.Credentials) != 1 || got.Credentials[0].Value != "s3cret-pass" || got.Credentials[0].Temporary {
		t.Errorf("credentials = %+v", got.Credentials)
	}
	if len(got.Groups) != 1 || got.Groups[0] != "/garage-superadmins" {
		t.Errorf("groups = %v", got.Groups)
	}
}

// TestClient_CreateUser_Conflict проверяет, что 409 сопоставляется с ErrConflict.
func TestClient_CreateUser_Conflict(t *testing.T) {
	_, client := setupMockKeycloak(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"errorMessage":"User exists with same username"}`))
	})

	_, err := client.CreateUser(context.Background(), NewUser{Email: "chef@garage.fr"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("ожидался ErrConflict, получено %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Errorf("ожидался APIError 409, получено %v", err)
	}
}

// TestClient_DeleteUser проверяет удаление и 404.
func TestClient_DeleteUser(t *testing.T) {
	_, client := setupMockKeycloak(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("метод = %s, ожидается DELETE", r.Method)
		}
		if strings.HasSuffix(r.URL.Path, "/users/kc-1") {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	ctx := context.Background()
	if err := client.DeleteUser(ctx, "kc-1"); err != nil {
		t.Errorf("DeleteUser(kc-1) ошибка: %v", err)
	}
	if err := client.DeleteUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteUser(missing): ожидался ErrNotFound, получено %v", err)
	}
}

// TestClient_GetUser проверяет чтение пользователя.
func TestClient_GetUser(t *testing.T) {
	_, client := setupMockKeycloak(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/admin/realms/swift-garage/users/kc-1":
			json.NewEncoder(w).Encode(KeycloakUser{
				ID: "kc-1", Username: "chef@garage.fr", Email: "chef@garage.fr",
				FirstName: "Jeanne", LastName: "Martin", Enabled: true,
				CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli(),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	u, err := client.GetUser(ctx, "kc-1")
	if err != nil {
		t.Fatalf("GetUser() ошибка: %v", err)
	}
	if u.FullName() != "Jeanne Martin" {
		t.Errorf("FullName() = %q", u.FullName())
	}
	if u.CreatedAtTime().Year() != 2026 {
		t.Errorf("CreatedAtTime() = %v", u.CreatedAtTime())
	}

	if _, err := client.GetUser(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser(nobody): ожидался ErrNotFound, получено %v", err)
	}
}

// TestClient_CheckReady проверяет readiness по realm info.
func TestClient_CheckReady(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus string
	}{
		{
			name: "realm доступен",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(RealmRepresentation{Realm: "swift-garage", Enabled: true})
			},
			wantStatus: "ok",
		},
		{
			name: "realm отключён",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(RealmRepresentation{Realm: "swift-garage", Enabled: false})
			},
			wantStatus: "degraded",
		},
		{
			name: "ошибка сервера",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantStatus: "fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := setupMockKeycloak(t, nil, tt.handler)
			status, msg := client.CheckReady()
			if status != tt.wantStatus {
				t.Errorf("CheckReady() = %q (%s), ожидается %q", status, msg, tt.wantStatus)
			}
		})
	}
}
