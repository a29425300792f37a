// setup.go — обработчики первоначальной настройки /api/v1/setup.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
)

// GetSetupStatus — GET /api/v1/setup/status.
func (h *APIHandler) GetSetupStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Setup.Status(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "setup_status")
		return
	}
	resp := SetupStatusDTO{
		SetupComplete:      status.SetupComplete,
		OrganisationsExist: status.OrganisationsExist,
		Available:          status.Available(),
	}
	if cfg, err := h.svc.Setup.Config(r.Context()); err == nil {
		resp.Version = cfg.Version
		resp.CompletedAt = cfg.CompletedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// setupRequest — тело POST /api/v1/setup: все шаги мастера сразу.
type setupRequest struct {
	Plan  string `json:"plan"`
	Admin struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	} `json:"admin"`
	Organisation struct {
		Name    string `json:"name"`
		Slug    string `json:"slug"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	} `json:"organisation"`
	Branding struct {
		PrimaryColor string `json:"primary_color"`
		LogoURL      string `json:"logo_url"`
	} `json:"branding"`
}

// steps раскладывает запрос по шагам мастера в порядке прохождения.
func (req setupRequest) steps() []wizard.Input {
	return []wizard.Input{
		wizard.PlanInput{Plan: req.Plan},
		wizard.AdminInput{Email: req.Admin.Email, FullName: req.Admin.FullName, Password: req.Admin.Password},
		wizard.OrganisationInput{
			Name:    req.Organisation.Name,
			Slug:    req.Organisation.Slug,
			Phone:   req.Organisation.Phone,
			Address: req.Organisation.Address,
		},
		wizard.BrandingInput{PrimaryColor: req.Branding.PrimaryColor, LogoURL: req.Branding.LogoURL},
	}
}

// CompleteSetup — POST /api/v1/setup.
// Проходит мастер настройки за один запрос. Доступно, пока нет организаций.
func (h *APIHandler) CompleteSetup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var created *model.Organisation
	wz := wizard.New(wizard.CompleterFunc(func(ctx context.Context, data wizard.Data) error {
		org, err := h.svc.Setup.Complete(ctx, data)
		created = org
		return err
	}))

	for _, step := range req.steps() {
		if err := wz.Confirm(r.Context(), step); err != nil {
			h.writeServiceError(w, r, err, "complete_setup")
			return
		}
	}

	h.logger.Info("Первоначальная настройка выполнена через API",
		slog.String("organisation_id", created.ID),
	)
	writeJSON(w, http.StatusCreated, mapOrganisation(created))
}
