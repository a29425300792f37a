// access.go — сбор входных данных для решения о доступе.
package service

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/access"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/session"
)

// accessDecisionsTotal — количество решений о доступе по типам.
var accessDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "swift_garage_access_decisions_total",
		Help: "Количество решений о доступе к защищённым страницам",
	},
	[]string{"decision"},
)

// OrganisationStateProvider — источник состояния организаций.
type OrganisationStateProvider interface {
	Exists(ctx context.Context) (bool, error)
	FindVisible(ctx context.Context, user *model.User, id string) (*model.Organisation, error)
}

// AccessService собирает состояние сессии и организаций и вызывает access.Resolve.
// Только чтение: проверка наличия организаций, затем своя и выбранная
// организации по ID.
type AccessService struct {
	orgs   OrganisationStateProvider
	logger *slog.Logger
}

// NewAccessService создаёт сервис доступа.
func NewAccessService(orgs OrganisationStateProvider, logger *slog.Logger) *AccessService {
	return &AccessService{
		orgs:   orgs,
		logger: logger.With(slog.String("component", "access_service")),
	}
}

// Resolve возвращает решение о доступе к path.
//
// Ошибка проверки наличия организаций логируется и трактуется как
// "организации есть": пользователь попадает на вход, а не в приложение.
// Ошибка чтения видимых организаций даёт Loading: без них нельзя
// проверить онбординг, а выдавать Granted вслепую нельзя.
func (s *AccessService) Resolve(ctx context.Context, st session.State, path string) access.Result {
	res := s.resolve(ctx, st, path)
	accessDecisionsTotal.WithLabelValues(res.Decision.String()).Inc()
	return res
}

func (s *AccessService) resolve(ctx context.Context, st session.State, path string) access.Result {
	in := access.Input{
		Loading:               st.Loading,
		User:                  st.User,
		CurrentOrganisationID: st.CurrentOrganisationID,
		Path:                  path,
	}
	if in.Loading {
		return access.Resolve(in)
	}

	exists, err := s.orgs.Exists(ctx)
	if err != nil {
		s.logger.Warn("Проверка наличия организаций не выполнена, считаем что организации есть",
			slog.String("error", err.Error()),
		)
		exists = true
	}
	in.OrganisationsExist = exists

	if exists && st.User.HasOrganisation() {
		if err := s.loadOrganisations(ctx, st, &in); err != nil {
			s.logger.Warn("Не удалось загрузить организации пользователя",
				slog.String("user_id", st.User.ID),
				slog.String("error", err.Error()),
			)
			return access.Result{Decision: access.Loading}
		}
	}

	return access.Resolve(in)
}

// loadOrganisations заполняет сведения о своей и выбранной организациях.
// superadmin видит все организации, поэтому для него AnyVisible следует
// из наличия организаций в системе.
func (s *AccessService) loadOrganisations(ctx context.Context, st session.State, in *access.Input) error {
	own, err := s.orgs.FindVisible(ctx, st.User, *st.User.OrganisationID)
	if err != nil {
		return err
	}
	if own != nil {
		in.Own = &access.OrganisationRef{ID: own.ID, OnboardingCompleted: own.OnboardingCompleted}
	}
	in.AnyVisible = own != nil || st.User.Role == rbac.RoleSuperadmin

	switch {
	case st.CurrentOrganisationID == "":
	case own != nil && own.ID == st.CurrentOrganisationID:
		in.CurrentVisible = true
	default:
		current, err := s.orgs.FindVisible(ctx, st.User, st.CurrentOrganisationID)
		if err != nil {
			return err
		}
		in.CurrentVisible = current != nil
	}
	return nil
}
