package i18n

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testBundle(t *testing.T) *Bundle {
	t.Helper()
	b := NewBundle(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := b.LoadMessages("fr", []byte(`{"nav.logout": "Se déconnecter", "wizard.title": "Configuration"}`)); err != nil {
		t.Fatalf("LoadMessages(fr) вернул ошибку: %v", err)
	}
	if err := b.LoadMessages("en", []byte(`{"nav.logout": "Sign out"}`)); err != nil {
		t.Fatalf("LoadMessages(en) вернул ошибку: %v", err)
	}
	return b
}

func TestBundle_Translate(t *testing.T) {
	b := testBundle(t)

	tests := []struct {
		name string
		lang string
		key  string
		want string
	}{
		{"французский", "fr", "nav.logout", "Se déconnecter"},
		{"английский", "en", "nav.logout", "Sign out"},
		{"нет перевода — язык по умолчанию", "en", "wizard.title", "Configuration"},
		{"неизвестный ключ", "en", "missing.key", "missing.key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Translate(tt.lang, tt.key); got != tt.want {
				t.Errorf("Translate(%q, %q) = %q, ожидается %q", tt.lang, tt.key, got, tt.want)
			}
		})
	}

	if missing := b.Missing("en"); len(missing) != 1 || missing[0] != "wizard.title" {
		t.Errorf("Missing(en) = %v, ожидается [wizard.title]", missing)
	}
}

func TestBundle_LoadMessagesErrors(t *testing.T) {
	b := NewBundle(nil)
	if err := b.LoadMessages("ru", []byte(`{}`)); err == nil {
		t.Error("неподдерживаемый язык должен давать ошибку")
	}
	if err := b.LoadMessages("fr", []byte(`{"a": 1}`)); err == nil {
		t.Error("некорректный каталог должен давать ошибку")
	}
}

func TestEmbeddedCatalogsComplete(t *testing.T) {
	b := NewBundle(nil)
	if err := LoadFromEmbedFS(b, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("LoadFromEmbedFS() вернул ошибку: %v", err)
	}
	for _, lang := range Languages() {
		if missing := b.Missing(lang); len(missing) > 0 {
			t.Errorf("в каталоге %s нет ключей: %v", lang, missing)
		}
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{"en-US,en;q=0.9", "en"},
		{"fr-CA", "fr"},
		{"de-DE", DefaultLang},
		{"", DefaultLang},
		{"de;q=0.9, en;q=0.5", "en"},
	}
	for _, tt := range tests {
		if got := MatchLanguage(tt.accept); got != tt.want {
			t.Errorf("MatchLanguage(%q) = %q, ожидается %q", tt.accept, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		accept string
		want   string
	}{
		{"cookie важнее заголовка", "en", "fr-FR", "en"},
		{"неизвестный язык в cookie", "ru", "en-GB", "en"},
		{"по заголовку", "", "en", "en"},
		{"по умолчанию", "", "", DefaultLang},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = LangFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/auth", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LangCookieName, Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("язык = %q, ожидается %q", got, tt.want)
			}
		})
	}
}

func TestLangFromContext(t *testing.T) {
	if got := LangFromContext(context.Background()); got != DefaultLang {
		t.Errorf("LangFromContext() = %q, ожидается %q", got, DefaultLang)
	}
	if got := LangFromContext(WithLang(context.Background(), "en")); got != "en" {
		t.Errorf("LangFromContext() = %q, ожидается en", got)
	}
}
