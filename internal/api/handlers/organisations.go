// organisations.go — обработчики /api/v1/organisations.
package handlers

import (
	"net/http"

	"github.com/tinocursor/swift-garage-sub001/internal/api/middleware"
	"github.com/tinocursor/swift-garage-sub001/internal/service"
)

// ListOrganisations — GET /api/v1/organisations.
// superadmin получает все организации, остальные — свою.
func (h *APIHandler) ListOrganisations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.svc.Organisations.ListVisible(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, "list_organisations")
		return
	}
	items := make([]OrganisationDTO, len(orgs))
	for i, o := range orgs {
		items[i] = mapOrganisation(o)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetOrganisation — GET /api/v1/organisations/{id}.
func (h *APIHandler) GetOrganisation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	org, err := h.svc.Organisations.Get(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, r, err, "get_organisation")
		return
	}
	writeJSON(w, http.StatusOK, mapOrganisation(org))
}

type createOrganisationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Plan string `json:"plan"`
}

// CreateOrganisation — POST /api/v1/organisations.
// Доступ: superadmin.
func (h *APIHandler) CreateOrganisation(w http.ResponseWriter, r *http.Request) {
	var req createOrganisationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	org, err := h.svc.Organisations.Create(r.Context(), middleware.UserFromContext(r.Context()),
		service.CreateOrganisationInput{Name: req.Name, Slug: req.Slug, Plan: req.Plan})
	if err != nil {
		h.writeServiceError(w, r, err, "create_organisation")
		return
	}
	writeJSON(w, http.StatusCreated, mapOrganisation(org))
}

type onboardingRequest struct {
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// CompleteOnboarding — POST /api/v1/organisations/{id}/onboarding.
// Доступ: admin организации, superadmin.
func (h *APIHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req onboardingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	org, err := h.svc.Organisations.CompleteOnboarding(r.Context(), middleware.UserFromContext(r.Context()), id,
		service.OnboardingInput{Phone: req.Phone, Address: req.Address})
	if err != nil {
		h.writeServiceError(w, r, err, "complete_onboarding")
		return
	}
	writeJSON(w, http.StatusOK, mapOrganisation(org))
}

// GetBranding — GET /api/v1/organisations/{id}/branding.
// Доступ: любой пользователь, видящий организацию.
func (h *APIHandler) GetBranding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	// проверка видимости
	if _, err := h.svc.Organisations.Get(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		h.writeServiceError(w, r, err, "get_branding")
		return
	}
	b, err := h.svc.Organisations.Branding(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "get_branding")
		return
	}
	writeJSON(w, http.StatusOK, mapBranding(b))
}
