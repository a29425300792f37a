package model

import "time"

// Client — клиент гаража.
type Client struct {
	ID             string
	OrganisationID string
	FullName       string
	Email          *string
	Phone          *string
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Vehicle — автомобиль клиента.
type Vehicle struct {
	ID             string
	OrganisationID string
	ClientID       string
	// Plate — государственный номер (уникален в пределах организации)
	Plate     string
	Make      string
	Model     string
	Year      *int
	VIN       *string
	Mileage   *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Статусы ремонта.
const (
	RepairPending    = "pending"
	RepairInProgress = "in_progress"
	RepairCompleted  = "completed"
	RepairCancelled  = "cancelled"
)

// RepairStatuses — все статусы ремонта в порядке отображения.
var RepairStatuses = []string{RepairPending, RepairInProgress, RepairCompleted, RepairCancelled}

// IsValidRepairStatus проверяет, является ли строка допустимым статусом ремонта.
func IsValidRepairStatus(s string) bool {
	for _, st := range RepairStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Repair — ремонт автомобиля.
type Repair struct {
	ID             string
	OrganisationID string
	VehicleID      string
	Description    string
	Status         string
	// CostCents — стоимость в центах
	CostCents   int64
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StockItem — позиция склада запчастей.
type StockItem struct {
	ID             string
	OrganisationID string
	// SKU — артикул (уникален в пределах организации)
	SKU      string
	Name     string
	Quantity int
	// MinQuantity — порог "мало на складе"
	MinQuantity    int
	UnitPriceCents int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LowStock сообщает, опустился ли остаток до порога.
func (s *StockItem) LowStock() bool {
	return s.Quantity <= s.MinQuantity
}

// DashboardStats — сводка для главной страницы.
type DashboardStats struct {
	Clients  int
	Vehicles int
	// RepairsByStatus — количество ремонтов по статусам
	RepairsByStatus map[string]int
	LowStockItems   int
}
