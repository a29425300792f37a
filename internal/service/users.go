// users.go — сервис пользователей: профиль из Keycloak-идентичности,
// назначение роли и организации.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
	"github.com/tinocursor/swift-garage-sub001/internal/keycloak"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
)

// UserDirectory — чтение пользователей из Keycloak.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*keycloak.KeycloakUser, error)
}

// UserService — сервис пользователей.
// Keycloak — источник идентичности, profiles — роль и организация.
type UserService struct {
	profiles         repository.ProfileRepository
	directory        UserDirectory
	superadminGroups []string
	logger           *slog.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(
	profiles repository.ProfileRepository,
	directory UserDirectory,
	superadminGroups []string,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		profiles:         profiles,
		directory:        directory,
		superadminGroups: superadminGroups,
		logger:           logger.With(slog.String("component", "user_service")),
	}
}

// ResolveUser превращает идентичность из токена в пользователя приложения.
// При первом входе создаётся профиль с ролью employe без организации.
// Итоговая роль = max(роль из групп Keycloak, роль профиля).
func (s *UserService) ResolveUser(ctx context.Context, id model.Identity) (*model.User, error) {
	if id.Subject == "" {
		return nil, fmt.Errorf("%w: пустой subject", ErrValidation)
	}

	profile, err := s.profiles.EnsureExists(ctx, &model.Profile{
		UserID:   id.Subject,
		Email:    id.Email,
		FullName: id.FullName,
		Role:     rbac.RoleEmploye,
	})
	if err != nil {
		return nil, errors.Join(ErrNetwork, err)
	}

	idpRole := rbac.MapGroupsToRole(id.Groups, s.superadminGroups)
	return &model.User{
		ID:             id.Subject,
		Email:          id.Email,
		Username:       id.Username,
		Role:           rbac.EffectiveRole(idpRole, profile.Role),
		OrganisationID: profile.OrganisationID,
	}, nil
}

// Profile возвращает профиль пользователя.
func (s *UserService) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return p, nil
}

// ListMembers возвращает профили организации. Доступно admin этой организации и superadmin.
func (s *UserService) ListMembers(ctx context.Context, actor *model.User, orgID string) ([]*model.Profile, error) {
	if !canManageOrganisation(actor, orgID) {
		return nil, ErrForbidden
	}
	profiles, err := s.profiles.ListByOrganisation(ctx, orgID)
	if err != nil {
		return nil, errors.Join(ErrNetwork, err)
	}
	return profiles, nil
}

// UpdateUserInput — новая роль и организация пользователя.
type UpdateUserInput struct {
	Role           string
	OrganisationID *string
}

// UpdateUser назначает пользователю роль и организацию.
//
// superadmin может всё. admin — только в своей организации: принять
// пользователя без организации или члена своей, назначить роль не выше admin.
// Менять собственную роль может только superadmin.
func (s *UserService) UpdateUser(ctx context.Context, actor *model.User, id string, in UpdateUserInput) (*model.Profile, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if !rbac.IsValidRole(in.Role) {
		return nil, fmt.Errorf("%w: недопустимая роль %q", ErrValidation, in.Role)
	}
	if in.OrganisationID != nil && *in.OrganisationID == "" {
		in.OrganisationID = nil
	}

	superadmin := actor.Role == rbac.RoleSuperadmin
	if !superadmin {
		if !actor.HasOrganisation() || !rbac.HasAtLeast(actor.Role, rbac.RoleAdmin) {
			return nil, ErrForbidden
		}
		if actor.ID == id {
			return nil, fmt.Errorf("%w: нельзя изменить собственную роль", ErrForbidden)
		}
		if in.Role == rbac.RoleSuperadmin {
			return nil, fmt.Errorf("%w: роль superadmin назначает только superadmin", ErrForbidden)
		}
		if in.OrganisationID != nil && *in.OrganisationID != *actor.OrganisationID {
			return nil, fmt.Errorf("%w: чужая организация", ErrForbidden)
		}
	}

	kcUser, err := s.directory.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, keycloak.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrNetwork, err)
	}

	current, err := s.profiles.Get(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// пользователь ещё не входил в приложение
		current = &model.Profile{UserID: id, Email: kcUser.Email, FullName: kcUser.FullName(), Role: rbac.RoleEmploye}
		if err := s.profiles.Upsert(ctx, current); err != nil {
			return nil, mapRepoError(err)
		}
	case err != nil:
		return nil, errors.Join(ErrNetwork, err)
	}

	if !superadmin && current.OrganisationID != nil && *current.OrganisationID != *actor.OrganisationID {
		return nil, fmt.Errorf("%w: пользователь другой организации", ErrForbidden)
	}

	updated, err := s.profiles.Update(ctx, id, in.Role, in.OrganisationID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Профиль пользователя обновлён",
		slog.String("user_id", id),
		slog.String("role", in.Role),
		slog.String("updated_by", actor.ID),
	)
	return updated, nil
}
