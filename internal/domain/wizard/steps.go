package wizard

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// MinPasswordLength — минимальная длина пароля администратора.
const MinPasswordLength = 8

// DefaultPrimaryColor — цвет оформления по умолчанию.
const DefaultPrimaryColor = "#1f6feb"

// Input — данные подтверждения одного шага.
type Input interface {
	// Step — шаг, к которому относятся данные.
	Step() Step
	// Validate проверяет обязательные поля.
	Validate() error
	// Apply переносит данные в Data.
	Apply(d *Data)
}

// PlanInput — шаг выбора тарифа.
type PlanInput struct {
	Plan string
}

func (PlanInput) Step() Step { return StepPlanSelection }

func (in PlanInput) Validate() error {
	if !model.IsValidPlan(in.Plan) {
		return &ValidationError{Field: "plan", Message: "выберите тариф: free, monthly или lifetime"}
	}
	return nil
}

func (in PlanInput) Apply(d *Data) { d.Plan = in.Plan }

// AdminInput — шаг учётной записи администратора.
type AdminInput struct {
	Email    string
	FullName string
	Password string
}

func (AdminInput) Step() Step { return StepAdminAccount }

func (in AdminInput) Validate() error {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "email обязателен"}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: "некорректный email"}
	}
	if strings.TrimSpace(in.FullName) == "" {
		return &ValidationError{Field: "full_name", Message: "имя обязательно"}
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "пароль короче 8 символов"}
	}
	return nil
}

func (in AdminInput) Apply(d *Data) {
	d.AdminEmail = strings.ToLower(strings.TrimSpace(in.Email))
	d.AdminFullName = strings.TrimSpace(in.FullName)
	d.AdminPassword = in.Password
}

// OrganisationInput — шаг данных организации.
// Пустой Slug вычисляется из названия.
type OrganisationInput struct {
	Name    string
	Slug    string
	Phone   string
	Address string
}

func (OrganisationInput) Step() Step { return StepOrganisationDetails }

func (in OrganisationInput) slug() string {
	if s := strings.TrimSpace(in.Slug); s != "" {
		return s
	}
	return model.Slugify(in.Name)
}

func (in OrganisationInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Message: "название организации обязательно"}
	}
	if err := model.ValidateSlug(in.slug()); err != nil {
		return &ValidationError{Field: "slug", Message: err.Error()}
	}
	return nil
}

func (in OrganisationInput) Apply(d *Data) {
	d.OrganisationName = strings.TrimSpace(in.Name)
	d.OrganisationSlug = in.slug()
	d.Phone = strings.TrimSpace(in.Phone)
	d.Address = strings.TrimSpace(in.Address)
}

// BrandingInput — шаг оформления. Пустой цвет заменяется DefaultPrimaryColor.
type BrandingInput struct {
	PrimaryColor string
	LogoURL      string
}

func (BrandingInput) Step() Step { return StepBranding }

func (in BrandingInput) color() string {
	if in.PrimaryColor == "" {
		return DefaultPrimaryColor
	}
	return in.PrimaryColor
}

func (in BrandingInput) Validate() error {
	if !model.IsValidColor(in.color()) {
		return &ValidationError{Field: "primary_color", Message: "цвет в формате #rrggbb"}
	}
	if in.LogoURL != "" {
		u, err := url.Parse(in.LogoURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Field: "logo_url", Message: "некорректный адрес логотипа"}
		}
	}
	return nil
}

func (in BrandingInput) Apply(d *Data) {
	d.PrimaryColor = in.color()
	d.LogoURL = in.LogoURL
}
