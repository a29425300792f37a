// setup.go — мастер первоначальной настройки /create-organisation.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/access"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
	"github.com/tinocursor/swift-garage-sub001/internal/service"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/auth"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/pages"
)

// SetupFlow — первоначальная настройка системы.
type SetupFlow interface {
	Status(ctx context.Context) (service.SetupStatus, error)
	Complete(ctx context.Context, data wizard.Data) (*model.Organisation, error)
}

// SetupHandler — страницы мастера. Состояние мастера хранится
// в зашифрованной cookie, ttl отсчитывается от начала прохождения.
type SetupHandler struct {
	setup    SetupFlow
	sessions *auth.SessionManager
	ttl      time.Duration
	logger   *slog.Logger
}

// NewSetupHandler создаёт новый SetupHandler.
func NewSetupHandler(setup SetupFlow, sessions *auth.SessionManager, ttl time.Duration, logger *slog.Logger) *SetupHandler {
	return &SetupHandler{
		setup:    setup,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "ui_setup")),
	}
}

// HandleWizard — GET /create-organisation.
func (h *SetupHandler) HandleWizard(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	wz, _ := h.restore(r, nil)
	render(w, r, h.logger, http.StatusOK, pages.Wizard(pages.WizardData{
		Step: wz.Step(),
		Data: wz.State().Data,
	}))
}

// HandleWizardSubmit — POST /create-organisation: подтверждение шага.
func (h *SetupHandler) HandleWizardSubmit(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Некорректная форма", http.StatusBadRequest)
		return
	}

	var created *model.Organisation
	completer := wizard.CompleterFunc(func(ctx context.Context, data wizard.Data) error {
		org, err := h.setup.Complete(ctx, data)
		created = org
		return err
	})

	wz, expired := h.restore(r, completer)
	if expired {
		h.sessions.ClearWizardCookie(w)
		render(w, r, h.logger, http.StatusOK, pages.Wizard(pages.WizardData{
			Step:  wz.Step(),
			Toast: pages.Toast(pages.ToastWarning, "error.wizard_expired", ""),
		}))
		return
	}

	in := stepInput(r)
	err := wz.Confirm(r.Context(), in)
	if err == nil {
		h.confirmed(w, r, wz, created)
		return
	}

	data := pages.WizardData{Step: wz.Step(), Data: wz.State().Data}
	var verr *wizard.ValidationError
	var terr *wizard.TransitionError
	status := http.StatusUnprocessableEntity
	switch {
	case errors.As(err, &verr):
		data.Data = withSubmitted(data.Data, in)
		data.InvalidField = verr.Field
		data.Toast = pages.Toast(pages.ToastError, "error.validation", "")
	case errors.As(err, &terr):
		// форма от другого шага (вкладка браузера устарела): показываем текущий
		data.Toast = pages.Toast(pages.ToastWarning, "error.validation", "")
	default:
		h.logger.Warn("Ошибка завершения мастера настройки", slog.String("error", err.Error()))
		data.Toast, status = failure(err)
	}
	render(w, r, h.logger, status, pages.Wizard(data))
}

// confirmed сохраняет состояние после подтверждённого шага.
func (h *SetupHandler) confirmed(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard, created *model.Organisation) {
	st := wz.State()
	if st.Step == wizard.StepDone {
		h.sessions.ClearWizardCookie(w)
		h.logger.Info("Мастер настройки завершён",
			slog.String("organisation_id", created.ID),
			slog.String("slug", created.Slug),
		)
		render(w, r, h.logger, http.StatusCreated, pages.Wizard(pages.WizardData{
			Step:         st.Step,
			Data:         st.Data,
			Organisation: created,
		}))
		return
	}

	if err := h.sessions.SetWizardCookie(w, st, h.ttl); err != nil {
		h.logger.Error("Ошибка сохранения состояния мастера", slog.String("error", err.Error()))
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, access.PathCreateOrganisation, http.StatusSeeOther)
}

// available проверяет, что мастер ещё можно пройти. Если нет — redirect на /auth.
func (h *SetupHandler) available(w http.ResponseWriter, r *http.Request) bool {
	status, err := h.setup.Status(r.Context())
	if err != nil {
		h.logger.Warn("Не удалось проверить состояние настройки", slog.String("error", err.Error()))
		toast, code := failure(err)
		render(w, r, h.logger, code, pages.Wizard(pages.WizardData{
			Step:  wizard.StepPlanSelection,
			Toast: toast,
		}))
		return false
	}
	if !status.Available() {
		h.sessions.ClearWizardCookie(w)
		http.Redirect(w, r, access.PathAuth, http.StatusFound)
		return false
	}
	return true
}

// restore восстанавливает мастер из cookie. Без cookie или с повреждённой
// cookie — новый мастер. expired=true, если сохранённый мастер просрочен.
func (h *SetupHandler) restore(r *http.Request, completer wizard.Completer) (*wizard.Wizard, bool) {
	st, err := h.sessions.GetWizardFromRequest(r)
	if err != nil || st == nil {
		return wizard.New(completer), false
	}
	wz, err := wizard.Restore(*st, completer)
	if err != nil {
		return wizard.New(completer), false
	}
	if wz.Expired(h.ttl, time.Now()) {
		return wizard.New(completer), true
	}
	return wz, false
}

// stepInput собирает данные шага из формы по скрытому полю step.
func stepInput(r *http.Request) wizard.Input {
	switch wizard.Step(r.PostFormValue("step")) {
	case wizard.StepAdminAccount:
		return wizard.AdminInput{
			Email:    r.PostFormValue("email"),
			FullName: r.PostFormValue("full_name"),
			Password: r.PostFormValue("password"),
		}
	case wizard.StepOrganisationDetails:
		return wizard.OrganisationInput{
			Name:    r.PostFormValue("name"),
			Slug:    r.PostFormValue("slug"),
			Phone:   r.PostFormValue("phone"),
			Address: r.PostFormValue("address"),
		}
	case wizard.StepBranding:
		return wizard.BrandingInput{
			PrimaryColor: r.PostFormValue("primary_color"),
			LogoURL:      r.PostFormValue("logo_url"),
		}
	default:
		return wizard.PlanInput{Plan: r.PostFormValue("plan")}
	}
}

// withSubmitted подставляет в форму введённые значения отклонённого шага.
// Пароль в форму не возвращается.
func withSubmitted(data wizard.Data, in wizard.Input) wizard.Data {
	switch in := in.(type) {
	case wizard.PlanInput:
		data.Plan = in.Plan
	case wizard.AdminInput:
		data.AdminEmail, data.AdminFullName = in.Email, in.FullName
	case wizard.OrganisationInput:
		data.OrganisationName, data.OrganisationSlug = in.Name, in.Slug
		data.Phone, data.Address = in.Phone, in.Address
	case wizard.BrandingInput:
		data.PrimaryColor, data.LogoURL = in.PrimaryColor, in.LogoURL
	}
	data.AdminPassword = ""
	return data
}
