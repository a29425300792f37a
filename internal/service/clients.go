// clients.go — сервис клиентов гаража.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
)

// ClientService — CRUD клиентов в пределах организации.
type ClientService struct {
	repo   repository.ClientRepository
	logger *slog.Logger
}

// NewClientService создаёт сервис клиентов.
func NewClientService(repo repository.ClientRepository, logger *slog.Logger) *ClientService {
	return &ClientService{
		repo:   repo,
		logger: logger.With(slog.String("component", "client_service")),
	}
}

// ClientInput — поля клиента, заполняемые пользователем.
type ClientInput struct {
	FullName string
	Email    string
	Phone    string
	Notes    string
}

func (in ClientInput) validate() error {
	if strings.TrimSpace(in.FullName) == "" {
		return fmt.Errorf("%w: имя клиента обязательно", ErrValidation)
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("%w: некорректный email %q", ErrValidation, email)
		}
	}
	return nil
}

func (in ClientInput) apply(c *model.Client) {
	c.FullName = strings.TrimSpace(in.FullName)
	c.Email = optional(strings.ToLower(in.Email))
	c.Phone = optional(in.Phone)
	c.Notes = optional(in.Notes)
}

// List возвращает клиентов организации и их общее количество.
func (s *ClientService) List(ctx context.Context, c Caller, search string, limit, offset int) ([]*model.Client, int, error) {
	orgID, err := c.organisation()
	if err != nil {
		return nil, 0, err
	}
	limit, offset = normalizePage(limit, offset)
	q := optional(search)

	items, err := s.repo.List(ctx, orgID, q, limit, offset)
	if err != nil {
		return nil, 0, errors.Join(ErrNetwork, err)
	}
	total, err := s.repo.Count(ctx, orgID, q)
	if err != nil {
		return nil, 0, errors.Join(ErrNetwork, err)
	}
	return items, total, nil
}

// Get возвращает клиента по ID.
func (s *ClientService) Get(ctx context.Context, c Caller, id string) (*model.Client, error) {
	orgID, err := c.organisation()
	if err != nil {
		return nil, err
	}
	client, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return client, nil
}

// Create создаёт клиента. Роль не ниже employe.
func (s *ClientService) Create(ctx context.Context, c Caller, in ClientInput) (*model.Client, error) {
	orgID, err := c.authorize(rbac.RoleEmploye)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	client := &model.Client{ID: uuid.NewString(), OrganisationID: orgID}
	in.apply(client)
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Клиент создан",
		slog.String("id", client.ID),
		slog.String("organisation_id", orgID),
		slog.String("created_by", c.User.ID),
	)
	return client, nil
}

// Update перезаписывает поля клиента. Роль не ниже employe.
func (s *ClientService) Update(ctx context.Context, c Caller, id string, in ClientInput) (*model.Client, error) {
	orgID, err := c.authorize(rbac.RoleEmploye)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	client := &model.Client{ID: id, OrganisationID: orgID}
	in.apply(client)
	if err := s.repo.Update(ctx, client); err != nil {
		return nil, mapRepoError(err)
	}
	return client, nil
}

// Delete удаляет клиента вместе с его автомобилями и ремонтами. Роль не ниже manager.
func (s *ClientService) Delete(ctx context.Context, c Caller, id string) error {
	orgID, err := c.authorize(rbac.RoleManager)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return mapRepoError(err)
	}

	s.logger.Info("Клиент удалён",
		slog.String("id", id),
		slog.String("deleted_by", c.User.ID),
	)
	return nil
}
