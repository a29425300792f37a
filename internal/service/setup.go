// setup.go — сервис первоначальной настройки.
//
// Единственный владелец записи конфигурации SetupConfig в app_settings.
// Завершение мастера: пользователь в Keycloak, затем в одной транзакции
// организация, оформление и профиль администратора. Если транзакция
// не прошла, пользователь Keycloak удаляется.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
	"github.com/tinocursor/swift-garage-sub001/internal/keycloak"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
)

// Ключи записи конфигурации в app_settings.
const (
	SettingSetupComplete    = "setup_complete"
	SettingSetupVersion     = "setup.version"
	SettingSetupCompletedAt = "setup.completed_at"
	SettingSetupCompletedBy = "setup.completed_by"
)

// SetupConfigVersion — текущая версия формата SetupConfig.
const SetupConfigVersion = 1

// systemActor — автор записи, восстановленной без участия пользователя.
const systemActor = "system"

// SetupConfig — версионированная запись о первоначальной настройке.
type SetupConfig struct {
	Version       int
	SetupComplete bool
	CompletedAt   *time.Time
	CompletedBy   string
}

// IdentityProvider — операции с учётными записями в IdP.
type IdentityProvider interface {
	CreateUser(ctx context.Context, u keycloak.NewUser) (string, error)
	DeleteUser(ctx context.Context, id string) error
}

// OrganisationBootstrapper атомарно создаёт организацию, оформление и профиль.
type OrganisationBootstrapper interface {
	CreateOrganisation(ctx context.Context, org *model.Organisation, brand *model.Branding, admin *model.Profile) error
}

// SetupService — сервис первоначальной настройки.
type SetupService struct {
	settings repository.AppSettingsRepository
	orgs     OrganisationStateProvider
	idp      IdentityProvider
	boot     OrganisationBootstrapper
	logger   *slog.Logger

	// mu сериализует завершение настройки, cbMu защищает список callback.
	mu         sync.Mutex
	cbMu       sync.Mutex
	onComplete []func(ctx context.Context, org *model.Organisation)
}

// NewSetupService создаёт сервис первоначальной настройки.
func NewSetupService(
	settings repository.AppSettingsRepository,
	orgs OrganisationStateProvider,
	idp IdentityProvider,
	boot OrganisationBootstrapper,
	logger *slog.Logger,
) *SetupService {
	return &SetupService{
		settings: settings,
		orgs:     orgs,
		idp:      idp,
		boot:     boot,
		logger:   logger.With(slog.String("component", "setup_service")),
	}
}

// OnComplete регистрирует callback, вызываемый после успешной настройки.
func (s *SetupService) OnComplete(fn func(ctx context.Context, org *model.Organisation)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onComplete = append(s.onComplete, fn)
}

// Config читает запись конфигурации. Отсутствующие ключи — значения по умолчанию.
func (s *SetupService) Config(ctx context.Context) (*SetupConfig, error) {
	settings, err := s.settings.ListByPrefix(ctx, "setup")
	if err != nil {
		return nil, errors.Join(ErrNetwork, err)
	}

	cfg := &SetupConfig{}
	for _, st := range settings {
		switch st.Key {
		case SettingSetupComplete:
			cfg.SetupComplete = st.Value == "true"
		case SettingSetupVersion:
			cfg.Version, _ = strconv.Atoi(st.Value)
		case SettingSetupCompletedAt:
			if t, err := time.Parse(time.RFC3339, st.Value); err == nil {
				cfg.CompletedAt = &t
			}
		case SettingSetupCompletedBy:
			cfg.CompletedBy = st.Value
		}
	}
	return cfg, nil
}

// SetupStatus — доступность мастера настройки.
type SetupStatus struct {
	SetupComplete      bool
	OrganisationsExist bool
}

// Available — мастер можно пройти.
func (st SetupStatus) Available() bool {
	return !st.SetupComplete && !st.OrganisationsExist
}

// Status возвращает состояние первоначальной настройки.
// Если организация уже есть, а флаг setup_complete не записан
// (сбой после транзакции), запись конфигурации повторяется.
func (s *SetupService) Status(ctx context.Context) (SetupStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.status(ctx)
	if err != nil || status.SetupComplete || !status.OrganisationsExist {
		return status, err
	}
	if err := s.markComplete(ctx, systemActor); err != nil {
		s.logger.Warn("Повторная запись конфигурации настройки не удалась",
			slog.String("error", err.Error()),
		)
		return status, nil
	}
	s.logger.Info("Флаг setup_complete восстановлен")
	status.SetupComplete = true
	return status, nil
}

func (s *SetupService) status(ctx context.Context) (SetupStatus, error) {
	cfg, err := s.Config(ctx)
	if err != nil {
		return SetupStatus{}, err
	}
	exists, err := s.orgs.Exists(ctx)
	if err != nil {
		return SetupStatus{}, err
	}
	return SetupStatus{SetupComplete: cfg.SetupComplete, OrganisationsExist: exists}, nil
}

// Completer возвращает адаптер для wizard.Wizard.
func (s *SetupService) Completer() wizard.Completer {
	return wizard.CompleterFunc(func(ctx context.Context, data wizard.Data) error {
		_, err := s.Complete(ctx, data)
		return err
	})
}

// Complete выполняет завершающее действие мастера. Вызовы сериализуются;
// после первой успешной настройки возвращается ErrSetupCompleted.
// Callback вызываются после снятия блокировки и только если
// конфигурация записана.
func (s *SetupService) Complete(ctx context.Context, data wizard.Data) (*model.Organisation, error) {
	org, err := s.complete(ctx, data)
	if err != nil {
		return nil, err
	}

	s.cbMu.Lock()
	callbacks := append([]func(context.Context, *model.Organisation){}, s.onComplete...)
	s.cbMu.Unlock()

	for _, fn := range callbacks {
		fn(ctx, org)
	}
	return org, nil
}

func (s *SetupService) complete(ctx context.Context, data wizard.Data) (*model.Organisation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.status(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Available() {
		return nil, ErrSetupCompleted
	}

	first, last := splitFullName(data.AdminFullName)
	userID, err := s.idp.CreateUser(ctx, keycloak.NewUser{
		Email:     data.AdminEmail,
		FirstName: first,
		LastName:  last,
		Password:  data.AdminPassword,
	})
	if err != nil {
		if errors.Is(err, keycloak.ErrConflict) {
			return nil, fmt.Errorf("%w: пользователь %s уже существует", ErrConflict, data.AdminEmail)
		}
		return nil, errors.Join(ErrNetwork, fmt.Errorf("создание администратора в Keycloak: %w", err))
	}

	org := &model.Organisation{
		ID:     uuid.NewString(),
		Name:   data.OrganisationName,
		Slug:   data.OrganisationSlug,
		Plan:   data.Plan,
		Active: true,
		// контакты уже собраны мастером
		OnboardingCompleted: true,
		Phone:               optional(data.Phone),
		Address:             optional(data.Address),
	}
	brand := &model.Branding{PrimaryColor: data.PrimaryColor, LogoURL: optional(data.LogoURL)}
	admin := &model.Profile{
		UserID:   userID,
		Email:    data.AdminEmail,
		FullName: data.AdminFullName,
		Role:     rbac.RoleSuperadmin,
	}

	if err := s.boot.CreateOrganisation(ctx, org, brand, admin); err != nil {
		s.compensate(userID)
		return nil, mapRepoError(err)
	}

	if err := s.markComplete(ctx, userID); err != nil {
		s.logger.Error("Организация создана, но конфигурация настройки не сохранена",
			slog.String("organisation_id", org.ID),
			slog.String("error", err.Error()),
		)
		return nil, errors.Join(ErrNetwork, err)
	}

	s.logger.Info("Первоначальная настройка завершена",
		slog.String("organisation_id", org.ID),
		slog.String("slug", org.Slug),
		slog.String("admin_id", userID),
	)
	return org, nil
}

// compensate удаляет пользователя Keycloak после неудачной транзакции.
// Использует собственный контекст: исходный запрос мог быть отменён.
func (s *SetupService) compensate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.idp.DeleteUser(ctx, userID); err != nil {
		s.logger.Error("Компенсация не выполнена: пользователь Keycloak остался без профиля",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Warn("Пользователь Keycloak удалён после ошибки создания организации",
		slog.String("user_id", userID),
	)
}

// markComplete записывает SetupConfig. Флаг setup_complete пишется последним.
// Организация при ошибке остаётся: повторить запись можно через Status.
func (s *SetupService) markComplete(ctx context.Context, by string) error {
	values := []struct{ key, value string }{
		{SettingSetupVersion, strconv.Itoa(SetupConfigVersion)},
		{SettingSetupCompletedAt, time.Now().UTC().Format(time.RFC3339)},
		{SettingSetupCompletedBy, by},
		{SettingSetupComplete, "true"},
	}
	for _, v := range values {
		if err := s.settings.Set(ctx, v.key, v.value, by); err != nil {
			return fmt.Errorf("запись %s: %w", v.key, err)
		}
	}
	return nil
}

// splitFullName делит "Jeanne Marie Martin" на имя "Jeanne" и фамилию "Marie Martin".
func splitFullName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i], strings.TrimSpace(full[i+1:])
	}
	return full, ""
}
