// Пакет pages — страницы и фрагменты UI (templ).
//
// Исходники страниц — файлы *.templ, код *_templ.go генерируется.
package pages

//go:generate templ generate

import (
	"github.com/a-h/templ"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
)

// Уровни уведомления.
const (
	ToastError   = "error"
	ToastWarning = "warning"
	ToastSuccess = "success"
)

// LayoutData — общие данные каркаса страницы.
type LayoutData struct {
	// Title — ключ перевода заголовка
	Title string
	// Email — пользователь сессии (пусто — анонимный)
	Email string
	// PrimaryColor — цвет оформления организации
	PrimaryColor string
	// Toast — уведомление об ошибке (nil — нет)
	Toast templ.Component
	// Refresh — автообновление страницы через N секунд (0 — нет)
	Refresh int
}

// AuthData — данные страницы /auth.
type AuthData struct {
	// Email — пользователь сессии (пусто — не вошёл)
	Email string
	// NoOrganisation — пользователь вошёл, но не состоит в организации
	NoOrganisation bool
	Toast          templ.Component
}

// WizardData — данные страницы мастера /create-organisation.
type WizardData struct {
	Step wizard.Step
	Data wizard.Data
	// InvalidField — поле с ошибкой проверки (подсвечивается)
	InvalidField string
	// Organisation — созданная организация (на шаге done)
	Organisation *model.Organisation
	Toast        templ.Component
}

// SelectorData — данные страницы /organisation-selector.
type SelectorData struct {
	Email         string
	Organisations []*model.Organisation
	// Current — выбранная организация (пусто — не выбрана)
	Current string
	Toast   templ.Component
}

// OnboardingData — данные страницы /organisation-onboarding.
type OnboardingData struct {
	Email        string
	Organisation *model.Organisation
	Phone        string
	Address      string
	// CanComplete — роль пользователя позволяет завершить онбординг
	CanComplete bool
	Toast       templ.Component
}

// DashboardData — данные страницы /dashboard.
type DashboardData struct {
	Email        string
	Role         string
	Organisation *model.Organisation
	PrimaryColor string
	// Stats — nil, если сводку не удалось загрузить
	Stats *model.DashboardStats
	Toast templ.Component
}

var plans = []string{model.PlanFree, model.PlanMonthly, model.PlanLifetime}

func colorOrDefault(color string) string {
	if color == "" {
		return wizard.DefaultPrimaryColor
	}
	return color
}

// themeStyle задаёт CSS-переменную --primary. Цвет проверен при вводе,
// но всё равно экранируется.
func themeStyle(color string) templ.Component {
	return templ.Raw("<style>:root{--primary:" + templ.EscapeString(colorOrDefault(color)) + "}</style>")
}

// stepState — состояние шага i (с нуля) относительно текущего шага
// (wizard.Index, с единицы): "done", "current" или "".
func stepState(i, current int) string {
	switch {
	case i+1 < current:
		return "done"
	case i+1 == current:
		return "current"
	}
	return ""
}
