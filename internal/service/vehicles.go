// vehicles.go — сервис автомобилей клиентов.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
)

// vinLength — длина VIN по ISO 3779.
const vinLength = 17

// VehicleService — CRUD автомобилей в пределах организации.
type VehicleService struct {
	repo   repository.VehicleRepository
	logger *slog.Logger
}

// NewVehicleService создаёт сервис автомобилей.
func NewVehicleService(repo repository.VehicleRepository, logger *slog.Logger) *VehicleService {
	return &VehicleService{
		repo:   repo,
		logger: logger.With(slog.String("component", "vehicle_service")),
	}
}

// VehicleInput — поля автомобиля. ClientID учитывается только при создании.
type VehicleInput struct {
	ClientID string
	Plate    string
	Make     string
	Model    string
	Year     *int
	VIN      string
	Mileage  *int
}

func (in VehicleInput) validate(now time.Time) error {
	if strings.TrimSpace(in.Plate) == "" {
		return fmt.Errorf("%w: номер обязателен", ErrValidation)
	}
	if strings.TrimSpace(in.Make) == "" {
		return fmt.Errorf("%w: марка обязательна", ErrValidation)
	}
	if in.Year != nil && (*in.Year < 1900 || *in.Year > now.Year()+1) {
		return fmt.Errorf("%w: недопустимый год выпуска %d", ErrValidation, *in.Year)
	}
	if vin := strings.TrimSpace(in.VIN); vin != "" && utf8.RuneCountInString(vin) != vinLength {
		return fmt.Errorf("%w: VIN должен содержать %d символов", ErrValidation, vinLength)
	}
	if in.Mileage != nil && *in.Mileage < 0 {
		return fmt.Errorf("%w: пробег не может быть отрицательным", ErrValidation)
	}
	return nil
}

func (in VehicleInput) apply(v *model.Vehicle) {
	v.Plate = normalizePlate(in.Plate)
	v.Make = strings.TrimSpace(in.Make)
	v.Model = strings.TrimSpace(in.Model)
	v.Year = in.Year
	v.VIN = optional(strings.ToUpper(in.VIN))
	v.Mileage = in.Mileage
}

// normalizePlate приводит номер к виду "AB-123-CD": верхний регистр, без пробелов.
func normalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}

// List возвращает автомобили организации; clientID сужает выборку.
func (s *VehicleService) List(ctx context.Context, c Caller, clientID string, limit, offset int) ([]*model.Vehicle, int, error) {
	orgID, err := c.organisation()
	if err != nil {
		return nil, 0, err
	}
	limit, offset = normalizePage(limit, offset)
	filter := optional(clientID)

	items, err := s.repo.List(ctx, orgID, filter, limit, offset)
	if err != nil {
		return nil, 0, errors.Join(ErrNetwork, err)
	}
	total, err := s.repo.Count(ctx, orgID, filter)
	if err != nil {
		return nil, 0, errors.Join(ErrNetwork, err)
	}
	return items, total, nil
}

// Get возвращает автомобиль по ID.
func (s *VehicleService) Get(ctx context.Context, c Caller, id string) (*model.Vehicle, error) {
	orgID, err := c.organisation()
	if err != nil {
		return nil, err
	}
	v, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return v, nil
}

// Create регистрирует автомобиль клиента. Роль не ниже employe.
func (s *VehicleService) Create(ctx context.Context, c Caller, in VehicleInput) (*model.Vehicle, error) {
	orgID, err := c.authorize(rbac.RoleEmploye)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return nil, fmt.Errorf("%w: клиент обязателен", ErrValidation)
	}
	if err := in.validate(time.Now()); err != nil {
		return nil, err
	}

	v := &model.Vehicle{ID: uuid.NewString(), OrganisationID: orgID, ClientID: in.ClientID}
	in.apply(v)
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Автомобиль зарегистрирован",
		slog.String("id", v.ID),
		slog.String("plate", v.Plate),
		slog.String("created_by", c.User.ID),
	)
	return v, nil
}

// Update перезаписывает поля автомобиля. Роль не ниже employe.
func (s *VehicleService) Update(ctx context.Context, c Caller, id string, in VehicleInput) (*model.Vehicle, error) {
	orgID, err := c.authorize(rbac.RoleEmploye)
	if err != nil {
		return nil, err
	}
	if err := in.validate(time.Now()); err != nil {
		return nil, err
	}

	v := &model.Vehicle{ID: id, OrganisationID: orgID}
	in.apply(v)
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, mapRepoError(err)
	}
	return v, nil
}

// Delete удаляет автомобиль и его ремонты. Роль не ниже manager.
func (s *VehicleService) Delete(ctx context.Context, c Caller, id string) error {
	orgID, err := c.authorize(rbac.RoleManager)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return mapRepoError(err)
	}
	s.logger.Info("Автомобиль удалён", slog.String("id", id), slog.String("deleted_by", c.User.ID))
	return nil
}
