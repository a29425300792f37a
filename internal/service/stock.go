// stock.go — сервис склада запчастей.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
)

// StockService — склад запчастей организации.
type StockService struct {
	repo   repository.StockRepository
	logger *slog.Logger
}

// NewStockService создаёт сервис склада.
func NewStockService(repo repository.StockRepository, logger *slog.Logger) *StockService {
	return &StockService{
		repo:   repo,
		logger: logger.With(slog.String("component", "stock_service")),
	}
}

// StockInput — поля позиции склада. Quantity учитывается только при создании,
// дальше остаток меняется через Adjust.
type StockInput struct {
	SKU            string
	Name           string
	Quantity       int
	MinQuantity    int
	UnitPriceCents int64
}

func (in StockInput) validate() error {
	if strings.TrimSpace(in.SKU) == "" {
		return fmt.Errorf("%w: артикул обязателен", ErrValidation)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: наименование обязательно", ErrValidation)
	}
	if in.Quantity < 0 || in.MinQuantity < 0 {
		return fmt.Errorf("%w: количество не может быть отрицательным", ErrValidation)
	}
	if in.UnitPriceCents < 0 {
		return fmt.Errorf("%w: цена не может быть отрицательной", ErrValidation)
	}
	return nil
}

func (in StockInput) apply(s *model.StockItem) {
	s.SKU = strings.ToUpper(strings.TrimSpace(in.SKU))
	s.Name = strings.TrimSpace(in.Name)
	s.MinQuantity = in.MinQuantity
	s.UnitPriceCents = in.UnitPriceCents
}

// List возвращает позиции склада; lowOnly — только заканчивающиеся.
func (s *StockService) List(ctx context.Context, c Caller, lowOnly bool, limit, offset int) ([]*model.StockItem, int, error) {
	orgID, err := c.organisation()
	if err != nil {
		return nil, 0, err
	}
	limit, offset = normalizePage(limit, offset)

	items, err := s.repo.List(ctx, orgID, lowOnly, limit, offset)
	if err != nil {
		return nil, 0, errors.Join(ErrNetwork, err)
	}
	total, err := s.repo.Count(ctx, orgID, lowOnly)
	if err != nil {
		return nil, 0, errors.Join(ErrNetwork, err)
	}
	return items, total, nil
}

// Get возвращает позицию склада по ID.
func (s *StockService) Get(ctx context.Context, c Caller, id string) (*model.StockItem, error) {
	orgID, err := c.organisation()
	if err != nil {
		return nil, err
	}
	item, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return item, nil
}

// Create заводит позицию склада. Роль не ниже manager.
func (s *StockService) Create(ctx context.Context, c Caller, in StockInput) (*model.StockItem, error) {
	orgID, err := c.authorize(rbac.RoleManager)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	item := &model.StockItem{ID: uuid.NewString(), OrganisationID: orgID, Quantity: in.Quantity}
	in.apply(item)
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Позиция склада создана",
		slog.String("id", item.ID),
		slog.String("sku", item.SKU),
		slog.String("created_by", c.User.ID),
	)
	return item, nil
}

// Update меняет карточку позиции (не остаток). Роль не ниже manager.
func (s *StockService) Update(ctx context.Context, c Caller, id string, in StockInput) (*model.StockItem, error) {
	orgID, err := c.authorize(rbac.RoleManager)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	item := &model.StockItem{ID: id, OrganisationID: orgID}
	in.apply(item)
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, mapRepoError(err)
	}
	return item, nil
}

// Adjust меняет остаток на delta (приход > 0, списание < 0).
// Остаток не может стать отрицательным. Роль не ниже manager.
func (s *StockService) Adjust(ctx context.Context, c Caller, id string, delta int) (*model.StockItem, error) {
	orgID, err := c.authorize(rbac.RoleManager)
	if err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: изменение остатка не может быть нулевым", ErrValidation)
	}

	item, err := s.repo.Adjust(ctx, orgID, id, delta)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if item.LowStock() {
		s.logger.Warn("Остаток позиции достиг минимума",
			slog.String("id", item.ID),
			slog.String("sku", item.SKU),
			slog.Int("quantity", item.Quantity),
			slog.Int("min_quantity", item.MinQuantity),
		)
	}
	return item, nil
}

// Delete удаляет позицию склада. Роль не ниже manager.
func (s *StockService) Delete(ctx context.Context, c Caller, id string) error {
	orgID, err := c.authorize(rbac.RoleManager)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}
