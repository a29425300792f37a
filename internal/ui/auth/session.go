// Пакет auth — аутентификация и управление сессиями UI.
// Шифрование cookie AES-256-GCM, OIDC-клиент для Keycloak (PKCE).
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
)

// Имена cookie UI.
const (
	SessionCookieName = "sg_session"
	WizardCookieName  = "sg_setup_wizard"
)

// SessionCookieMaxAge — максимальный возраст cookie сессии (24 часа).
const SessionCookieMaxAge = 24 * 60 * 60

// SessionData — данные сессии UI, хранящиеся в зашифрованном cookie.
// Роль и организация в cookie не хранятся: они читаются из профиля
// при каждом запросе.
type SessionData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token,omitempty"`
	// ExpiresAt — время истечения access token (Unix timestamp).
	ExpiresAt int64 `json:"expires_at"`

	Subject  string   `json:"sub"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name,omitempty"`
	Groups   []string `json:"groups,omitempty"`

	// CurrentOrganisationID — организация, выбранная на /organisation-selector.
	CurrentOrganisationID string `json:"current_organisation_id,omitempty"`
}

// IsExpired проверяет, истёк ли access token.
// Возвращает true если до истечения менее 30 секунд (буфер для refresh).
func (s *SessionData) IsExpired() bool {
	return time.Now().Unix() >= s.ExpiresAt-30
}

// Identity возвращает идентичность пользователя для UserService.ResolveUser.
func (s *SessionData) Identity() model.Identity {
	return model.Identity{
		Subject:  s.Subject,
		Username: s.Username,
		Email:    s.Email,
		FullName: s.FullName,
		Groups:   s.Groups,
	}
}

// SessionManager шифрует и дешифрует cookie UI через AES-256-GCM.
type SessionManager struct {
	gcm cipher.AEAD
	// secure — использовать Secure flag для cookie (true для HTTPS).
	secure bool
}

// NewSessionManager создаёт новый менеджер сессий.
// key — 32-байтовый ключ (base64) или произвольная строка, хешируемая SHA-256.
// Если key пустой — генерируется случайный ключ (сессии не переживают рестарт).
func NewSessionManager(key string, secure bool) (*SessionManager, error) {
	var keyBytes []byte

	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
	} else {
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			keyBytes = sha256Key(key)
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	return &SessionManager{gcm: gcm, secure: secure}, nil
}

// seal сериализует v в JSON, шифрует и возвращает base64url-строку.
func (sm *SessionManager) seal(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации cookie: %w", err)
	}

	nonce := make([]byte, sm.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	// nonce prepended к ciphertext
	ciphertext := sm.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// open дешифрует строку, созданную seal, в v.
func (sm *SessionManager) open(encrypted string, v any) error {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := sm.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := sm.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("ошибка дешифрования cookie: %w", err)
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("ошибка десериализации cookie: %w", err)
	}
	return nil
}

// Encrypt шифрует SessionData и возвращает base64-строку.
func (sm *SessionManager) Encrypt(data *SessionData) (string, error) {
	return sm.seal(data)
}

// Decrypt дешифрует base64-строку обратно в SessionData.
func (sm *SessionManager) Decrypt(encrypted string) (*SessionData, error) {
	var data SessionData
	if err := sm.open(encrypted, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (sm *SessionManager) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSessionCookie устанавливает зашифрованный session cookie в ответ.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, data *SessionData) error {
	encrypted, err := sm.Encrypt(data)
	if err != nil {
		return err
	}
	sm.setCookie(w, SessionCookieName, encrypted, SessionCookieMaxAge)
	return nil
}

// GetSessionFromRequest извлекает и дешифрует SessionData из cookie запроса.
// Возвращает nil, nil если cookie отсутствует.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}
	return sm.Decrypt(cookie.Value)
}

// ClearSessionCookie удаляет session cookie из ответа (logout).
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	sm.setCookie(w, SessionCookieName, "", -1)
}

// SetWizardCookie сохраняет состояние мастера настройки.
// Cookie живёт ttl, считая от начала мастера.
func (sm *SessionManager) SetWizardCookie(w http.ResponseWriter, state wizard.State, ttl time.Duration) error {
	encrypted, err := sm.seal(state)
	if err != nil {
		return err
	}
	maxAge := int(time.Until(state.StartedAt.Add(ttl)).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	sm.setCookie(w, WizardCookieName, encrypted, maxAge)
	return nil
}

// GetWizardFromRequest возвращает сохранённое состояние мастера.
// Возвращает nil, nil если cookie отсутствует.
func (sm *SessionManager) GetWizardFromRequest(r *http.Request) (*wizard.State, error) {
	cookie, err := r.Cookie(WizardCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}
	var state wizard.State
	if err := sm.open(cookie.Value, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ClearWizardCookie удаляет cookie мастера.
func (sm *SessionManager) ClearWizardCookie(w http.ResponseWriter) {
	sm.setCookie(w, WizardCookieName, "", -1)
}

// sha256Key хеширует строковый ключ в 32 bytes через SHA-256.
func sha256Key(key string) []byte {
	h := sha256.Sum256([]byte(key))
	return h[:]
}
