// organisations.go — сервис организаций: наличие, видимый набор, создание, онбординг.
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
	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
)

// maxVisibleOrganisations — предел списка организаций для superadmin.
// Список только для отображения: проверки доступа идут через FindVisible.
const maxVisibleOrganisations = 500

// OrganisationService — сервис организаций.
type OrganisationService struct {
	orgRepo      repository.OrganisationRepository
	brandingRepo repository.BrandingRepository
	logger       *slog.Logger
}

// NewOrganisationService создаёт сервис организаций.
func NewOrganisationService(
	orgRepo repository.OrganisationRepository,
	brandingRepo repository.BrandingRepository,
	logger *slog.Logger,
) *OrganisationService {
	return &OrganisationService{
		orgRepo:      orgRepo,
		brandingRepo: brandingRepo,
		logger:       logger.With(slog.String("component", "organisation_service")),
	}
}

// Exists сообщает, есть ли в системе хотя бы одна организация.
func (s *OrganisationService) Exists(ctx context.Context) (bool, error) {
	exists, err := s.orgRepo.Exists(ctx)
	if err != nil {
		return false, errors.Join(ErrNetwork, err)
	}
	return exists, nil
}

// ListVisible возвращает организации, видимые пользователю:
// superadmin видит все, остальные — только свою.
func (s *OrganisationService) ListVisible(ctx context.Context, user *model.User) ([]*model.Organisation, error) {
	if user == nil {
		return nil, nil
	}

	if user.Role == rbac.RoleSuperadmin {
		orgs, err := s.orgRepo.List(ctx, maxVisibleOrganisations, 0)
		if err != nil {
			return nil, errors.Join(ErrNetwork, err)
		}
		return orgs, nil
	}

	if !user.HasOrganisation() {
		return nil, nil
	}
	org, err := s.FindVisible(ctx, user, *user.OrganisationID)
	if err != nil || org == nil {
		return nil, err
	}
	return []*model.Organisation{org}, nil
}

// FindVisible возвращает организацию id, если она существует и видна
// пользователю. Отсутствующая или чужая организация — nil без ошибки.
func (s *OrganisationService) FindVisible(ctx context.Context, user *model.User, id string) (*model.Organisation, error) {
	if id == "" || !canSeeOrganisation(user, id) {
		return nil, nil
	}
	org, err := s.orgRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// организация удалена, профиль или cookie ещё ссылаются на неё
			return nil, nil
		}
		return nil, errors.Join(ErrNetwork, err)
	}
	return org, nil
}

// Get возвращает организацию, если она видна пользователю.
func (s *OrganisationService) Get(ctx context.Context, user *model.User, id string) (*model.Organisation, error) {
	if !canSeeOrganisation(user, id) {
		return nil, ErrForbidden
	}
	org, err := s.orgRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return org, nil
}

// CreateOrganisationInput — данные новой организации.
type CreateOrganisationInput struct {
	Name string
	Slug string
	Plan string
}

// Create создаёт организацию. Доступно только superadmin; первая организация
// создаётся мастером настройки через SetupService.
func (s *OrganisationService) Create(ctx context.Context, actor *model.User, in CreateOrganisationInput) (*model.Organisation, error) {
	if actor == nil || actor.Role != rbac.RoleSuperadmin {
		return nil, ErrForbidden
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: название организации обязательно", ErrValidation)
	}
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = model.Slugify(name)
	}
	if err := model.ValidateSlug(slug); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	plan := in.Plan
	if plan == "" {
		plan = model.PlanFree
	}
	if !model.IsValidPlan(plan) {
		return nil, fmt.Errorf("%w: недопустимый тариф %q", ErrValidation, plan)
	}

	org := &model.Organisation{
		ID:     uuid.NewString(),
		Name:   name,
		Slug:   slug,
		Plan:   plan,
		Active: true,
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Организация создана",
		slog.String("id", org.ID),
		slog.String("slug", org.Slug),
		slog.String("created_by", actor.ID),
	)
	return org, nil
}

// OnboardingInput — контактные данные, заполняемые на онбординге.
type OnboardingInput struct {
	Phone   string
	Address string
}

// CompleteOnboarding завершает онбординг организации.
// Доступно admin этой организации и superadmin.
func (s *OrganisationService) CompleteOnboarding(ctx context.Context, actor *model.User, id string, in OnboardingInput) (*model.Organisation, error) {
	if !canManageOrganisation(actor, id) {
		return nil, ErrForbidden
	}

	org, err := s.orgRepo.CompleteOnboarding(ctx, id, optional(in.Phone), optional(in.Address))
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Онбординг организации завершён",
		slog.String("id", id),
		slog.String("by", actor.ID),
	)
	return org, nil
}

// Branding возвращает оформление организации или оформление по умолчанию.
func (s *OrganisationService) Branding(ctx context.Context, orgID string) (*model.Branding, error) {
	b, err := s.brandingRepo.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.Branding{OrganisationID: orgID, PrimaryColor: wizard.DefaultPrimaryColor}, nil
		}
		return nil, errors.Join(ErrNetwork, err)
	}
	return b, nil
}

// canSeeOrganisation — superadmin видит все организации, остальные — свою.
func canSeeOrganisation(user *model.User, orgID string) bool {
	if user == nil {
		return false
	}
	if user.Role == rbac.RoleSuperadmin {
		return true
	}
	return user.HasOrganisation() && *user.OrganisationID == orgID
}

// canManageOrganisation — admin своей организации или superadmin.
func canManageOrganisation(user *model.User, orgID string) bool {
	return canSeeOrganisation(user, orgID) && rbac.HasAtLeast(user.Role, rbac.RoleAdmin)
}

// optional возвращает nil для пустой строки.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
