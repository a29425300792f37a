package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
)

// TestSessionEncryptDecryptRoundTrip проверяет шифрование и дешифрование SessionData.
func TestSessionEncryptDecryptRoundTrip(t *testing.T) {
	sm, err := NewSessionManager("", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	original := &SessionData{
		AccessToken:           "test-access-token-12345",
		RefreshToken:          "test-refresh-token-67890",
		ExpiresAt:             time.Now().Add(5 * time.Minute).Unix(),
		Subject:               "kc-user-1",
		Username:              "marie",
		Email:                 "marie@garage.fr",
		Groups:                []string{"garage-superadmins"},
		CurrentOrganisationID: "org-1",
	}

	encrypted, err := sm.Encrypt(original)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}
	if encrypted == "" {
		t.Fatal("Зашифрованная строка пустая")
	}

	decrypted, err := sm.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Ошибка дешифрования: %v", err)
	}

	if decrypted.AccessToken != original.AccessToken {
		t.Errorf("AccessToken = %q, ожидается %q", decrypted.AccessToken, original.AccessToken)
	}
	if decrypted.ExpiresAt != original.ExpiresAt {
		t.Errorf("ExpiresAt = %d, ожидается %d", decrypted.ExpiresAt, original.ExpiresAt)
	}
	if decrypted.CurrentOrganisationID != "org-1" {
		t.Errorf("CurrentOrganisationID = %q, ожидается org-1", decrypted.CurrentOrganisationID)
	}
	id := decrypted.Identity()
	if id.Subject != "kc-user-1" || id.Email != "marie@garage.fr" || len(id.Groups) != 1 {
		t.Errorf("Identity() = %+v", id)
	}
}

// TestSessionDecryptWithWrongKey проверяет, что дешифрование чужим ключом не работает.
func TestSessionDecryptWithWrongKey(t *testing.T) {
	sm1, _ := NewSessionManager("key-one", false)
	sm2, _ := NewSessionManager("key-two", false)

	encrypted, err := sm1.Encrypt(&SessionData{AccessToken: "secret"})
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	if _, err := sm2.Decrypt(encrypted); err == nil {
		t.Error("Ожидалась ошибка при дешифровании чужим ключом")
	}
	if _, err := sm1.Decrypt("не-base64!"); err == nil {
		t.Error("Ожидалась ошибка для повреждённого значения")
	}
}

// TestSessionIsExpired проверяет буфер 30 секунд перед истечением токена.
func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name     string
		in       time.Duration
		expected bool
	}{
		{"истёк", -time.Minute, true},
		{"в буферной зоне", 20 * time.Second, true},
		{"свежий", time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &SessionData{ExpiresAt: time.Now().Add(tt.in).Unix()}
			if got := s.IsExpired(); got != tt.expected {
				t.Errorf("IsExpired() = %v, ожидается %v", got, tt.expected)
			}
		})
	}
}

// TestSessionCookieSetAndGet проверяет установку и извлечение cookie.
func TestSessionCookieSetAndGet(t *testing.T) {
	sm, _ := NewSessionManager("test-key", true)

	data := &SessionData{
		AccessToken: "access-123",
		Subject:     "kc-user-1",
		ExpiresAt:   time.Now().Add(5 * time.Minute).Unix(),
	}

	w := httptest.NewRecorder()
	if err := sm.SetSessionCookie(w, data); err != nil {
		t.Fatalf("Ошибка установки cookie: %v", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Cookie не установлен")
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])

	got, err := sm.GetSessionFromRequest(req)
	if err != nil {
		t.Fatalf("Ошибка чтения сессии из cookie: %v", err)
	}
	if got == nil || got.Subject != "kc-user-1" {
		t.Fatalf("сессия = %+v, ожидается kc-user-1", got)
	}

	cookie := cookies[0]
	if cookie.Name != SessionCookieName {
		t.Errorf("Name = %q, ожидается %q", cookie.Name, SessionCookieName)
	}
	if cookie.Path != "/" {
		t.Errorf("Path = %q, ожидается /", cookie.Path)
	}
	if !cookie.HttpOnly || !cookie.Secure {
		t.Error("Cookie должен быть HttpOnly и Secure")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Error("Cookie должен быть SameSite=Lax")
	}
}

// TestSessionCookieMissing проверяет, что отсутствие cookie возвращает nil, nil.
func TestSessionCookieMissing(t *testing.T) {
	sm, _ := NewSessionManager("test-key", false)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	data, err := sm.GetSessionFromRequest(req)
	if err != nil {
		t.Fatalf("Ожидалось nil error, получено: %v", err)
	}
	if data != nil {
		t.Error("Ожидалось nil data при отсутствии cookie")
	}

	state, err := sm.GetWizardFromRequest(req)
	if err != nil || state != nil {
		t.Errorf("GetWizardFromRequest() = %v, %v, ожидается nil, nil", state, err)
	}
}

// TestClearSessionCookie проверяет очистку session cookie.
func TestClearSessionCookie(t *testing.T) {
	sm, _ := NewSessionManager("test-key", false)

	w := httptest.NewRecorder()
	sm.ClearSessionCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Cookie очистки не установлен")
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("MaxAge = %d, ожидается -1", cookies[0].MaxAge)
	}
	if cookies[0].Value != "" {
		t.Error("Value должен быть пустым")
	}
}

// TestWizardCookie проверяет сохранение состояния мастера вместе с паролем.
func TestWizardCookie(t *testing.T) {
	sm, _ := NewSessionManager("test-key", false)

	state := wizard.State{
		Step:      wizard.StepOrganisationDetails,
		Data:      wizard.Data{Plan: "free", AdminEmail: "chef@garage.fr", AdminPassword: "secret-123"},
		StartedAt: time.Now().UTC(),
	}

	w := httptest.NewRecorder()
	if err := sm.SetWizardCookie(w, state, 30*time.Minute); err != nil {
		t.Fatalf("SetWizardCookie() вернул ошибку: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != WizardCookieName {
		t.Fatalf("cookies = %v, ожидается %s", cookies, WizardCookieName)
	}
	if cookies[0].MaxAge <= 0 || cookies[0].MaxAge > 30*60 {
		t.Errorf("MaxAge = %d, ожидается (0, 1800]", cookies[0].MaxAge)
	}

	req := httptest.NewRequest(http.MethodGet, "/create-organisation", nil)
	req.AddCookie(cookies[0])
	got, err := sm.GetWizardFromRequest(req)
	if err != nil {
		t.Fatalf("GetWizardFromRequest() вернул ошибку: %v", err)
	}
	if got.Step != wizard.StepOrganisationDetails || got.Data.AdminPassword != "secret-123" {
		t.Errorf("состояние = %+v", got)
	}

	w = httptest.NewRecorder()
	sm.ClearWizardCookie(w)
	if c := w.Result().Cookies(); len(c) != 1 || c[0].MaxAge != -1 {
		t.Errorf("ClearWizardCookie() = %v", c)
	}
}
