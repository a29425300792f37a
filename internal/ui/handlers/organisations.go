// organisations.go — выбор организации и онбординг.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/access"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/session"
	"github.com/tinocursor/swift-garage-sub001/internal/service"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/auth"
	uimiddleware "github.com/tinocursor/swift-garage-sub001/internal/ui/middleware"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/pages"
)

// Organisations — операции с организациями, нужные страницам UI.
type Organisations interface {
	ListVisible(ctx context.Context, user *model.User) ([]*model.Organisation, error)
	FindVisible(ctx context.Context, user *model.User, id string) (*model.Organisation, error)
	Get(ctx context.Context, user *model.User, id string) (*model.Organisation, error)
	CompleteOnboarding(ctx context.Context, actor *model.User, id string, in service.OnboardingInput) (*model.Organisation, error)
	Branding(ctx context.Context, orgID string) (*model.Branding, error)
}

// OrganisationHandler — страницы /organisation-selector и /organisation-onboarding.
type OrganisationHandler struct {
	orgs     Organisations
	sessions *auth.SessionManager
	logger   *slog.Logger
}

// NewOrganisationHandler создаёт новый OrganisationHandler.
func NewOrganisationHandler(orgs Organisations, sessions *auth.SessionManager, logger *slog.Logger) *OrganisationHandler {
	return &OrganisationHandler{
		orgs:     orgs,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "ui_organisations")),
	}
}

// HandleSelector — GET /organisation-selector.
func (h *OrganisationHandler) HandleSelector(w http.ResponseWriter, r *http.Request) {
	st := session.FromContext(r.Context())
	data := pages.SelectorData{Email: st.User.Email, Current: st.CurrentOrganisationID}

	orgs, err := h.orgs.ListVisible(r.Context(), st.User)
	if err != nil {
		h.logger.Warn("Ошибка загрузки организаций", slog.String("error", err.Error()))
		toast, status := failure(err)
		data.Toast = toast
		render(w, r, h.logger, status, pages.OrganisationSelector(data))
		return
	}
	data.Organisations = orgs
	render(w, r, h.logger, http.StatusOK, pages.OrganisationSelector(data))
}

// HandleSelect — POST /organisation-selector: сохраняет выбор в cookie сессии.
// Выбрать можно только видимую пользователю организацию, в том числе
// не попавшую в отображаемый список.
func (h *OrganisationHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	st := session.FromContext(r.Context())
	id := r.PostFormValue("organisation_id")

	org, err := h.orgs.FindVisible(r.Context(), st.User, id)
	if err != nil {
		toast, status := failure(err)
		render(w, r, h.logger, status, pages.OrganisationSelector(pages.SelectorData{
			Email: st.User.Email,
			Toast: toast,
		}))
		return
	}

	if org == nil {
		h.logger.Warn("Попытка выбрать недоступную организацию",
			slog.String("user_id", st.User.ID),
			slog.String("organisation_id", id),
		)
		orgs, _ := h.orgs.ListVisible(r.Context(), st.User)
		toast, status := failure(service.ErrForbidden)
		render(w, r, h.logger, status, pages.OrganisationSelector(pages.SelectorData{
			Email:         st.User.Email,
			Organisations: orgs,
			Current:       st.CurrentOrganisationID,
			Toast:         toast,
		}))
		return
	}

	data := uimiddleware.SessionFromContext(r.Context())
	if data == nil {
		http.Redirect(w, r, access.PathAuth, http.StatusFound)
		return
	}
	data.CurrentOrganisationID = org.ID
	if err := h.sessions.SetSessionCookie(w, data); err != nil {
		h.logger.Error("Ошибка обновления session cookie", slog.String("error", err.Error()))
		http.Error(w, "Ошибка сохранения сессии", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, access.PathDashboard, http.StatusSeeOther)
}

// HandleOnboarding — GET /organisation-onboarding.
func (h *OrganisationHandler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	st := session.FromContext(r.Context())
	data, status := h.onboardingData(r.Context(), st)
	render(w, r, h.logger, status, pages.OrganisationOnboarding(data))
}

// HandleOnboardingSubmit — POST /organisation-onboarding.
func (h *OrganisationHandler) HandleOnboardingSubmit(w http.ResponseWriter, r *http.Request) {
	st := session.FromContext(r.Context())
	in := service.OnboardingInput{
		Phone:   r.PostFormValue("phone"),
		Address: r.PostFormValue("address"),
	}

	org, err := h.orgs.CompleteOnboarding(r.Context(), st.User, onboardingTarget(st), in)
	if err != nil {
		h.logger.Warn("Ошибка завершения онбординга", slog.String("error", err.Error()))
		data, _ := h.onboardingData(r.Context(), st)
		data.Phone, data.Address = in.Phone, in.Address
		toast, status := failure(err)
		data.Toast = toast
		render(w, r, h.logger, status, pages.OrganisationOnboarding(data))
		return
	}

	h.logger.Info("Онбординг организации завершён",
		slog.String("organisation_id", org.ID),
		slog.String("user_id", st.User.ID),
	)
	http.Redirect(w, r, access.PathDashboard, http.StatusSeeOther)
}

func (h *OrganisationHandler) onboardingData(ctx context.Context, st session.State) (pages.OnboardingData, int) {
	data := pages.OnboardingData{
		Email:       st.User.Email,
		CanComplete: rbac.HasAtLeast(st.User.Role, rbac.RoleAdmin),
	}
	org, err := h.orgs.Get(ctx, st.User, onboardingTarget(st))
	if err != nil {
		toast, status := failure(err)
		data.Toast = toast
		return data, status
	}
	data.Organisation = org
	if org.Phone != nil {
		data.Phone = *org.Phone
	}
	if org.Address != nil {
		data.Address = *org.Address
	}
	return data, http.StatusOK
}

// onboardingTarget — организация, онбординг которой проходит пользователь.
func onboardingTarget(st session.State) string {
	if st.User.HasOrganisation() {
		return *st.User.OrganisationID
	}
	return st.CurrentOrganisationID
}
