// Пакет model — доменные модели Swift Garage.
package model

import "time"

// User — пользователь приложения.
// Идентичность — из Keycloak, роль и организация — из таблицы profiles.
type User struct {
	// ID — Keycloak user ID (sub)
	ID string
	// Email — адрес электронной почты
	Email string
	// Username — preferred_username из токена
	Username string
	// Role — итоговая роль = max(роль из групп IdP, роль профиля)
	Role string
	// OrganisationID — организация пользователя (nil, если не назначена)
	OrganisationID *string
}

// HasOrganisation сообщает, назначена ли пользователю организация.
func (u *User) HasOrganisation() bool {
	return u != nil && u.OrganisationID != nil && *u.OrganisationID != ""
}

// Profile — локальный профиль пользователя.
// Хранится в таблице profiles, создаётся при первом входе.
type Profile struct {
	// UserID — Keycloak user ID (sub)
	UserID string
	// Email — кэшированный email
	Email string
	// FullName — отображаемое имя
	FullName string
	// Role — роль в организации (superadmin, admin, manager, technicien, employe)
	Role string
	// OrganisationID — организация (nil — не назначена)
	OrganisationID *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// Identity — данные пользователя из токена Keycloak (API bearer или OIDC ID token).
type Identity struct {
	Subject  string
	Username string
	Email    string
	FullName string
	// Groups — группы Keycloak (claim groups)
	Groups []string
}
