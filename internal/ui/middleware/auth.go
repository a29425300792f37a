// Пакет middleware — HTTP middleware для UI.
// auth.go — состояние сессии (cookie), авто-refresh токенов, охрана страниц.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/access"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/session"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/auth"
)

// contextKey — тип для ключей контекста UI (не пересекается с API middleware).
type contextKey string

// ContextKeyUISession — данные cookie сессии в контексте запроса.
const ContextKeyUISession contextKey = "ui_session"

// LoadingRetryAfter — значение Retry-After (секунды) для страницы загрузки.
const LoadingRetryAfter = 5

// UserResolver превращает идентичность из токена в пользователя приложения.
type UserResolver interface {
	ResolveUser(ctx context.Context, id model.Identity) (*model.User, error)
}

// TokenRefresher обновляет токены по refresh token.
type TokenRefresher interface {
	RefreshTokens(ctx context.Context, refreshToken string) (*auth.TokenResponse, error)
}

// SessionProvider определяет состояние сессии каждого запроса.
// Сам ничего не перенаправляет: решения принимает AccessGuard.
type SessionProvider struct {
	sessions *auth.SessionManager
	oidc     TokenRefresher
	users    UserResolver
	logger   *slog.Logger
}

// NewSessionProvider создаёт SessionProvider.
func NewSessionProvider(sessions *auth.SessionManager, oidc TokenRefresher, users UserResolver, logger *slog.Logger) *SessionProvider {
	return &SessionProvider{
		sessions: sessions,
		oidc:     oidc,
		users:    users,
		logger:   logger.With(slog.String("component", "ui_session")),
	}
}

// Middleware помещает session.State и данные cookie в контекст.
//
//   - нет cookie или cookie повреждён — анонимная сессия
//   - access token истёк и не обновился — анонимная сессия, cookie очищается
//   - профиль не загрузился — Loading
func (sp *SessionProvider) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data := sp.load(w, r)
			if data == nil {
				next.ServeHTTP(w, r.WithContext(session.WithState(r.Context(), session.State{})))
				return
			}

			st := session.State{CurrentOrganisationID: data.CurrentOrganisationID}
			user, err := sp.users.ResolveUser(r.Context(), data.Identity())
			if err != nil {
				sp.logger.Warn("Не удалось определить пользователя сессии",
					slog.String("sub", data.Subject),
					slog.String("error", err.Error()),
				)
				st.Loading = true
			} else {
				st.User = user
			}

			ctx := context.WithValue(r.Context(), ContextKeyUISession, data)
			next.ServeHTTP(w, r.WithContext(session.WithState(ctx, st)))
		})
	}
}

// load читает cookie сессии и при необходимости обновляет токены.
func (sp *SessionProvider) load(w http.ResponseWriter, r *http.Request) *auth.SessionData {
	data, err := sp.sessions.GetSessionFromRequest(r)
	if err != nil {
		sp.logger.Debug("Ошибка чтения UI-сессии",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr),
		)
		sp.sessions.ClearSessionCookie(w)
		return nil
	}
	if data == nil || !data.IsExpired() {
		return data
	}

	tokens, err := sp.oidc.RefreshTokens(r.Context(), data.RefreshToken)
	if err == nil {
		var refreshed *auth.SessionData
		if refreshed, err = data.Refreshed(tokens); err == nil {
			if err = sp.sessions.SetSessionCookie(w, refreshed); err == nil {
				sp.logger.Debug("Сессия обновлена через refresh token", slog.String("sub", refreshed.Subject))
				return refreshed
			}
		}
	}

	sp.logger.Info("Не удалось обновить сессию",
		slog.String("sub", data.Subject),
		slog.String("error", err.Error()),
	)
	sp.sessions.ClearSessionCookie(w)
	return nil
}

// SessionFromContext возвращает данные cookie сессии (nil — анонимный запрос).
func SessionFromContext(ctx context.Context) *auth.SessionData {
	data, _ := ctx.Value(ContextKeyUISession).(*auth.SessionData)
	return data
}

// AccessResolver вычисляет решение о доступе к странице.
type AccessResolver interface {
	Resolve(ctx context.Context, st session.State, path string) access.Result
}

// AccessGuard применяет решение о доступе к защищённым страницам.
type AccessGuard struct {
	resolver AccessResolver
	loading  http.Handler
}

// NewAccessGuard создаёт AccessGuard. loading рендерит страницу ожидания.
func NewAccessGuard(resolver AccessResolver, loading http.Handler) *AccessGuard {
	return &AccessGuard{resolver: resolver, loading: loading}
}

// Middleware: Granted — следующий обработчик, Loading — 503 с Retry-After,
// остальные решения — 302 на Redirect.
func (g *AccessGuard) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := session.FromContext(r.Context())
			res := g.resolver.Resolve(r.Context(), st, r.URL.Path)

			switch {
			case res.Decision == access.Granted:
				next.ServeHTTP(w, r)
			case res.Decision == access.Loading:
				w.Header().Set("Retry-After", strconv.Itoa(LoadingRetryAfter))
				w.Header().Set("Cache-Control", "no-store")
				g.loading.ServeHTTP(&statusWriter{ResponseWriter: w, status: http.StatusServiceUnavailable}, r)
			default:
				http.Redirect(w, r, res.Redirect, http.StatusFound)
			}
		})
	}
}

// statusWriter подменяет статус первого WriteHeader.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (sw *statusWriter) WriteHeader(int) {
	if !sw.written {
		sw.written = true
		sw.ResponseWriter.WriteHeader(sw.status)
	}
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.WriteHeader(sw.status)
	return sw.ResponseWriter.Write(b)
}
