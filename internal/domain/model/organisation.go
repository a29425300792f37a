package model

import "time"

// Тарифные планы организации.
const (
	PlanFree     = "free"
	PlanMonthly  = "monthly"
	PlanLifetime = "lifetime"
)

// IsValidPlan проверяет, является ли строка допустимым тарифом.
func IsValidPlan(plan string) bool {
	switch plan {
	case PlanFree, PlanMonthly, PlanLifetime:
		return true
	}
	return false
}

// Organisation — организация (гараж), единица мультиарендности.
// Хранится в таблице organisations.
type Organisation struct {
	// ID — UUID записи
	ID string
	// Name — название
	Name string
	// Slug — уникальный DNS-1123 идентификатор
	Slug string
	// Plan — тариф (free, monthly, lifetime)
	Plan string
	// Active — организация активна
	Active bool
	// OnboardingCompleted — первичная настройка организации завершена
	OnboardingCompleted bool
	// Phone, Address — контактные данные (заполняются на онбординге)
	Phone   *string
	Address *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// Branding — оформление организации.
// Хранится в таблице branding (одна запись на организацию).
type Branding struct {
	OrganisationID string
	// PrimaryColor — основной цвет в формате #rrggbb
	PrimaryColor string
	// LogoURL — адрес логотипа (опционально)
	LogoURL   *string
	UpdatedAt time.Time
}
