// auth.go — вход через Keycloak OIDC (Authorization Code + PKCE) и страница /auth.
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/access"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/session"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/auth"
	uimiddleware "github.com/tinocursor/swift-garage-sub001/internal/ui/middleware"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/pages"
)

// Имя cookie для хранения PKCE state (code_verifier + state).
const stateCookieName = "sg_auth_state"

// stateCookieMaxAge — максимальный возраст state cookie (5 минут).
const stateCookieMaxAge = 5 * 60

// AuthHandler — вход, выход и страница /auth.
type AuthHandler struct {
	oidcClient     *auth.OIDCClient
	sessionManager *auth.SessionManager
	logger         *slog.Logger
	secureCookie   bool
}

// NewAuthHandler создаёт новый AuthHandler.
func NewAuthHandler(
	oidcClient *auth.OIDCClient,
	sessionManager *auth.SessionManager,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		oidcClient:     oidcClient,
		sessionManager: sessionManager,
		logger:         logger.With(slog.String("component", "ui_auth")),
		secureCookie:   secureCookie,
	}
}

// stateData — данные state cookie на время входа.
type stateData struct {
	State        string `json:"state"`
	CodeVerifier string `json:"code_verifier"`
}

// HandleAuthPage — GET /auth.
// Пользователь с организацией уходит на /dashboard. Вошедший пользователь
// без организации видит уведомление и кнопку выхода, а не кнопку входа.
func (h *AuthHandler) HandleAuthPage(w http.ResponseWriter, r *http.Request) {
	st := session.FromContext(r.Context())
	if st.Authenticated() && st.User.HasOrganisation() {
		http.Redirect(w, r, access.PathDashboard, http.StatusFound)
		return
	}

	data := pages.AuthData{}
	if st.Authenticated() {
		data.Email = st.User.Email
		data.NoOrganisation = true
	}
	if r.URL.Query().Get("error") != "" {
		data.Toast = pages.Toast(pages.ToastError, "error.auth_failed", "")
	}
	render(w, r, h.logger, http.StatusOK, pages.Auth(data))
}

// HandleLogin — GET /login.
// Генерирует PKCE и state, сохраняет их в short-lived cookie,
// redirect на Keycloak authorize endpoint.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	pkce, err := auth.GeneratePKCE()
	if err != nil {
		h.logger.Error("Ошибка генерации PKCE", slog.String("error", err.Error()))
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("Ошибка генерации state", slog.String("error", err.Error()))
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	sdJSON, _ := json.Marshal(&stateData{State: state, CodeVerifier: pkce.CodeVerifier})
	h.setStateCookie(w, base64.URLEncoding.EncodeToString(sdJSON), stateCookieMaxAge)

	authorizeURL := h.oidcClient.AuthorizeURL(h.buildRedirectURI(r), state, pkce.CodeChallenge)
	h.logger.Debug("Redirect на Keycloak login", slog.String("authorize_url", authorizeURL))

	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// HandleCallback — GET /callback.
// Обменивает authorization code на токены, создаёт session cookie,
// redirect на /dashboard (дальше решает AccessGuard).
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		h.logger.Warn("Keycloak вернул ошибку авторизации",
			slog.String("error", errCode),
			slog.String("description", q.Get("error_description")),
		)
		http.Redirect(w, r, access.PathAuth+"?error=1", http.StatusFound)
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		http.Error(w, "Отсутствует code или state", http.StatusBadRequest)
		return
	}

	sd, err := h.readStateCookie(r)
	if err != nil {
		h.logger.Warn("Некорректный state cookie", slog.String("error", err.Error()))
		http.Error(w, "Сессия авторизации истекла, попробуйте ещё раз", http.StatusBadRequest)
		return
	}
	if sd.State != state {
		h.logger.Warn("State mismatch (возможная CSRF атака)",
			slog.String("expected", sd.State),
			slog.String("received", state),
		)
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	// state cookie одноразовый
	h.setStateCookie(w, "", -1)

	tokens, err := h.oidcClient.ExchangeCode(r.Context(), code, h.buildRedirectURI(r), sd.CodeVerifier)
	if err != nil {
		h.logger.Error("Ошибка обмена code на tokens", slog.String("error", err.Error()))
		http.Redirect(w, r, access.PathAuth+"?error=1", http.StatusFound)
		return
	}

	data, err := auth.NewSessionData(tokens)
	if err != nil {
		h.logger.Error("Ошибка извлечения данных из токена", slog.String("error", err.Error()))
		http.Redirect(w, r, access.PathAuth+"?error=1", http.StatusFound)
		return
	}

	if err := h.sessionManager.SetSessionCookie(w, data); err != nil {
		h.logger.Error("Ошибка установки session cookie", slog.String("error", err.Error()))
		http.Error(w, "Ошибка создания сессии", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Пользователь аутентифицирован",
		slog.String("sub", data.Subject),
		slog.String("username", data.Username),
	)
	http.Redirect(w, r, access.PathDashboard, http.StatusFound)
}

// HandleLogout — POST /logout.
// Очищает session cookie, redirect на Keycloak logout.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var idToken string
	if data := uimiddleware.SessionFromContext(r.Context()); data != nil {
		idToken = data.IDToken
	}
	h.sessionManager.ClearSessionCookie(w)

	logoutURL := h.oidcClient.LogoutURL(idToken, h.buildBaseURL(r)+access.PathAuth)
	h.logger.Info("Пользователь выполняет logout")

	http.Redirect(w, r, logoutURL, http.StatusFound)
}

func (h *AuthHandler) setStateCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) readStateCookie(r *http.Request) (*stateData, error) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil {
		return nil, err
	}
	raw, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("декодирование: %w", err)
	}
	var sd stateData
	if err := json.Unmarshal(raw, &sd); err != nil {
		return nil, fmt.Errorf("разбор: %w", err)
	}
	return &sd, nil
}

// buildRedirectURI формирует callback redirect URI на основе текущего запроса.
func (h *AuthHandler) buildRedirectURI(r *http.Request) string {
	return h.buildBaseURL(r) + "/callback"
}

// buildBaseURL формирует scheme + host с учётом X-Forwarded-* от reverse proxy.
func (h *AuthHandler) buildBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	host := r.Host
	if fwdHost := r.Header.Get("X-Forwarded-Host"); fwdHost != "" {
		host = fwdHost
	}
	return scheme + "://" + host
}
