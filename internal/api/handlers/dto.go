// dto.go — JSON-представления ресурсов API (схемы из openapi.yaml).
package handlers

import (
	"time"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// UserDTO — текущий пользователь.
type UserDTO struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Username       string  `json:"username,omitempty"`
	Role           string  `json:"role"`
	OrganisationID *string `json:"organisation_id"`
}

// ProfileDTO — профиль участника организации.
type ProfileDTO struct {
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name,omitempty"`
	Role           string    `json:"role"`
	OrganisationID *string   `json:"organisation_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OrganisationDTO — организация.
type OrganisationDTO struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Slug                string    `json:"slug"`
	Plan                string    `json:"plan"`
	Active              bool      `json:"active"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	Phone               *string   `json:"phone"`
	Address             *string   `json:"address"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// BrandingDTO — оформление организации.
type BrandingDTO struct {
	OrganisationID string  `json:"organisation_id"`
	PrimaryColor   string  `json:"primary_color"`
	LogoURL        *string `json:"logo_url"`
}

// AccessResultDTO — решение о доступе.
type AccessResultDTO struct {
	Decision string `json:"decision"`
	Redirect string `json:"redirect,omitempty"`
}

// SetupStatusDTO — состояние первоначальной настройки.
type SetupStatusDTO struct {
	SetupComplete      bool       `json:"setup_complete"`
	OrganisationsExist bool       `json:"organisations_exist"`
	Available          bool       `json:"available"`
	Version            int        `json:"version,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// ClientDTO — клиент гаража.
type ClientDTO struct {
	ID             string    `json:"id"`
	OrganisationID string    `json:"organisation_id"`
	FullName       string    `json:"full_name"`
	Email          *string   `json:"email"`
	Phone          *string   `json:"phone"`
	Notes          *string   `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// VehicleDTO — автомобиль.
type VehicleDTO struct {
	ID             string    `json:"id"`
	OrganisationID string    `json:"organisation_id"`
	ClientID       string    `json:"client_id"`
	Plate          string    `json:"plate"`
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	Year           *int      `json:"year"`
	VIN            *string   `json:"vin"`
	Mileage        *int      `json:"mileage"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RepairDTO — ремонт.
type RepairDTO struct {
	ID             string     `json:"id"`
	OrganisationID string     `json:"organisation_id"`
	VehicleID      string     `json:"vehicle_id"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	CostCents      int64      `json:"cost_cents"`
	StartedAt      *time.Time `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// StockItemDTO — позиция склада.
type StockItemDTO struct {
	ID             string    `json:"id"`
	OrganisationID string    `json:"organisation_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	MinQuantity    int       `json:"min_quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LowStock       bool      `json:"low_stock"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DashboardDTO — сводка для главной страницы.
type DashboardDTO struct {
	Clients         int            `json:"clients"`
	Vehicles        int            `json:"vehicles"`
	RepairsByStatus map[string]int `json:"repairs_by_status"`
	LowStockItems   int            `json:"low_stock_items"`
}

// ListResponse — страница списка.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// newListResponse отображает элементы страницы через mapFn.
func newListResponse[M any, T any](items []M, mapFn func(M) T, total, limit, offset int) ListResponse[T] {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = mapFn(it)
	}
	return ListResponse[T]{Items: out, Total: total, Limit: limit, Offset: offset}
}

// --- Маппинг model → DTO ---

func mapUser(u *model.User) UserDTO {
	return UserDTO{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		Role:           u.Role,
		OrganisationID: u.OrganisationID,
	}
}

func mapProfile(p *model.Profile) ProfileDTO {
	return ProfileDTO{
		UserID:         p.UserID,
		Email:          p.Email,
		FullName:       p.FullName,
		Role:           p.Role,
		OrganisationID: p.OrganisationID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func mapOrganisation(o *model.Organisation) OrganisationDTO {
	return OrganisationDTO{
		ID:                  o.ID,
		Name:                o.Name,
		Slug:                o.Slug,
		Plan:                o.Plan,
		Active:              o.Active,
		OnboardingCompleted: o.OnboardingCompleted,
		Phone:               o.Phone,
		Address:             o.Address,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func mapBranding(b *model.Branding) BrandingDTO {
	return BrandingDTO{
		OrganisationID: b.OrganisationID,
		PrimaryColor:   b.PrimaryColor,
		LogoURL:        b.LogoURL,
	}
}

func mapClient(c *model.Client) ClientDTO {
	return ClientDTO{
		ID:             c.ID,
		OrganisationID: c.OrganisationID,
		FullName:       c.FullName,
		Email:          c.Email,
		Phone:          c.Phone,
		Notes:          c.Notes,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func mapVehicle(v *model.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:             v.ID,
		OrganisationID: v.OrganisationID,
		ClientID:       v.ClientID,
		Plate:          v.Plate,
		Make:           v.Make,
		Model:          v.Model,
		Year:           v.Year,
		VIN:            v.VIN,
		Mileage:        v.Mileage,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
}

func mapRepair(rp *model.Repair) RepairDTO {
	return RepairDTO{
		ID:             rp.ID,
		OrganisationID: rp.OrganisationID,
		VehicleID:      rp.VehicleID,
		Description:    rp.Description,
		Status:         rp.Status,
		CostCents:      rp.CostCents,
		StartedAt:      rp.StartedAt,
		CompletedAt:    rp.CompletedAt,
		CreatedAt:      rp.CreatedAt,
		UpdatedAt:      rp.UpdatedAt,
	}
}

func mapStockItem(s *model.StockItem) StockItemDTO {
	return StockItemDTO{
		ID:             s.ID,
		OrganisationID: s.OrganisationID,
		SKU:            s.SKU,
		Name:           s.Name,
		Quantity:       s.Quantity,
		MinQuantity:    s.MinQuantity,
		UnitPriceCents: s.UnitPriceCents,
		LowStock:       s.LowStock(),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func mapDashboard(s *model.DashboardStats) DashboardDTO {
	byStatus := make(map[string]int, len(model.RepairStatuses))
	for _, st := range model.RepairStatuses {
		byStatus[st] = s.RepairsByStatus[st]
	}
	return DashboardDTO{
		Clients:         s.Clients,
		Vehicles:        s.Vehicles,
		RepairsByStatus: byStatus,
		LowStockItems:   s.LowStockItems,
	}
}
