// Пакет session — состояние сессии текущего запроса.
package session

import (
	"context"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// State — состояние сессии.
type State struct {
	// User — аутентифицированный пользователь (nil — анонимный)
	User *model.User
	// Loading — сессия есть, но пользователь ещё не определён
	// (профиль не удалось загрузить из-за недоступности бэкенда)
	Loading bool
	// CurrentOrganisationID — выбранная организация (пусто — не выбрана)
	CurrentOrganisationID string
}

// Authenticated сообщает, определён ли пользователь.
func (s State) Authenticated() bool {
	return !s.Loading && s.User != nil
}

type ctxKey struct{}

// WithState сохраняет состояние сессии в контексте.
func WithState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext возвращает состояние сессии из контекста.
// Если состояние не установлено — анонимная сессия.
func FromContext(ctx context.Context) State {
	s, _ := ctx.Value(ctxKey{}).(State)
	return s
}
