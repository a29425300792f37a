// repairs.go — сервис ремонтов.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
)

// RepairService — CRUD ремонтов в пределах организации.
type RepairService struct {
	repo   repository.RepairRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewRepairService создаёт сервис ремонтов.
func NewRepairService(repo repository.RepairRepository, logger *slog.Logger) *RepairService {
	return &RepairService{
		repo:   repo,
		now:    time.Now,
		logger: logger.With(slog.String("component", "repair_service")),
	}
}

// RepairInput — поля ремонта. VehicleID учитывается только при создании.
// Пустой статус при создании — pending.
type RepairInput struct {
	VehicleID   string
	Description string
	Status      string
	CostCents   int64
}

func (in RepairInput) validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: описание ремонта обязательно", ErrValidation)
	}
	if in.Status != "" && !model.IsValidRepairStatus(in.Status) {
		return fmt.Errorf("%w: недопустимый статус %q", ErrValidation, in.Status)
	}
	if in.CostCents < 0 {
		return fmt.Errorf("%w: стоимость не может быть отрицательной", ErrValidation)
	}
	return nil
}

// applyStatus выставляет статус и отметки времени:
// in_progress фиксирует начало, completed — окончание.
func applyStatus(rp *model.Repair, status string, now time.Time) {
	rp.Status = status
	switch status {
	case model.RepairInProgress:
		if rp.StartedAt == nil {
			rp.StartedAt = &now
		}
		rp.CompletedAt = nil
	case model.RepairCompleted:
		if rp.StartedAt == nil {
			rp.StartedAt = &now
		}
		if rp.CompletedAt == nil {
			rp.CompletedAt = &now
		}
	case model.RepairPending:
		rp.StartedAt = nil
		rp.CompletedAt = nil
	}
}

// List возвращает ремонты организации с фильтром по автомобилю и статусу.
func (s *RepairService) List(ctx context.Context, c Caller, vehicleID, status string, limit, offset int) ([]*model.Repair, int, error) {
	orgID, err := c.organisation()
	if err != nil {
		return nil, 0, err
	}
	if status != "" && !model.IsValidRepairStatus(status) {
		return nil, 0, fmt.Errorf("%w: недопустимый статус %q", ErrValidation, status)
	}
	limit, offset = normalizePage(limit, offset)
	f := repository.RepairFilter{VehicleID: optional(vehicleID), Status: optional(status)}

	items, err := s.repo.List(ctx, orgID, f, limit, offset)
	if err != nil {
		return nil, 0, errors.Join(ErrNetwork, err)
	}
	total, err := s.repo.Count(ctx, orgID, f)
	if err != nil {
		return nil, 0, errors.Join(ErrNetwork, err)
	}
	return items, total, nil
}

// Get возвращает ремонт по ID.
func (s *RepairService) Get(ctx context.Context, c Caller, id string) (*model.Repair, error) {
	orgID, err := c.organisation()
	if err != nil {
		return nil, err
	}
	rp, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return rp, nil
}

// Create открывает ремонт. Роль не ниже technicien.
func (s *RepairService) Create(ctx context.Context, c Caller, in RepairInput) (*model.Repair, error) {
	orgID, err := c.authorize(rbac.RoleTechnicien)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.VehicleID) == "" {
		return nil, fmt.Errorf("%w: автомобиль обязателен", ErrValidation)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	rp := &model.Repair{
		ID:             uuid.NewString(),
		OrganisationID: orgID,
		VehicleID:      in.VehicleID,
		Description:    strings.TrimSpace(in.Description),
		CostCents:      in.CostCents,
	}
	status := in.Status
	if status == "" {
		status = model.RepairPending
	}
	applyStatus(rp, status, s.now().UTC())

	if err := s.repo.Create(ctx, rp); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Ремонт создан",
		slog.String("id", rp.ID),
		slog.String("vehicle_id", rp.VehicleID),
		slog.String("created_by", c.User.ID),
	)
	return rp, nil
}

// Update меняет описание, статус и стоимость ремонта. Роль не ниже technicien.
func (s *RepairService) Update(ctx context.Context, c Caller, id string, in RepairInput) (*model.Repair, error) {
	orgID, err := c.authorize(rbac.RoleTechnicien)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	rp, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	rp.Description = strings.TrimSpace(in.Description)
	rp.CostCents = in.CostCents
	if in.Status != "" && in.Status != rp.Status {
		applyStatus(rp, in.Status, s.now().UTC())
	}

	if err := s.repo.Update(ctx, rp); err != nil {
		return nil, mapRepoError(err)
	}
	return rp, nil
}

// Delete удаляет ремонт. Роль не ниже manager.
func (s *RepairService) Delete(ctx context.Context, c Caller, id string) error {
	orgID, err := c.authorize(rbac.RoleManager)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}
