// dashboard.go — сводка по организации для главной страницы.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
)

// DashboardService собирает счётчики по клиентам, автомобилям, ремонтам и складу.
type DashboardService struct {
	clients  repository.ClientRepository
	vehicles repository.VehicleRepository
	repairs  repository.RepairRepository
	stock    repository.StockRepository
	logger   *slog.Logger
}

// NewDashboardService создаёт сервис сводки.
func NewDashboardService(
	clients repository.ClientRepository,
	vehicles repository.VehicleRepository,
	repairs repository.RepairRepository,
	stock repository.StockRepository,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		clients:  clients,
		vehicles: vehicles,
		repairs:  repairs,
		stock:    stock,
		logger:   logger.With(slog.String("component", "dashboard_service")),
	}
}

// Stats возвращает сводку по организации вызова.
func (s *DashboardService) Stats(ctx context.Context, c Caller) (*model.DashboardStats, error) {
	orgID, err := c.organisation()
	if err != nil {
		return nil, err
	}

	stats := &model.DashboardStats{}
	if stats.Clients, err = s.clients.Count(ctx, orgID, nil); err != nil {
		return nil, errors.Join(ErrNetwork, err)
	}
	if stats.Vehicles, err = s.vehicles.Count(ctx, orgID, nil); err != nil {
		return nil, errors.Join(ErrNetwork, err)
	}
	if stats.RepairsByStatus, err = s.repairs.CountByStatus(ctx, orgID); err != nil {
		return nil, errors.Join(ErrNetwork, err)
	}
	if stats.LowStockItems, err = s.stock.Count(ctx, orgID, true); err != nil {
		return nil, errors.Join(ErrNetwork, err)
	}
	return stats, nil
}
