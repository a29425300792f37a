// users.go — обработчики /api/v1/me и /api/v1/users.
package handlers

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/tinocursor/swift-garage-sub001/internal/api/errors"
	"github.com/tinocursor/swift-garage-sub001/internal/api/middleware"
	"github.com/tinocursor/swift-garage-sub001/internal/service"
)

// GetMe — GET /api/v1/me.
// Возвращает текущего пользователя с итоговой ролью.
func (h *APIHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

// ListUsers — GET /api/v1/users.
// Участники организации. Доступ: admin своей организации, superadmin.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	var orgParam *openapi_types.UUID
	if !bindQuery(w, r, "organisation_id", &orgParam) {
		return
	}
	orgID := ""
	switch {
	case orgParam != nil:
		orgID = orgParam.String()
	case user.HasOrganisation():
		orgID = *user.OrganisationID
	default:
		apierrors.ValidationError(w, "Не указана организация")
		return
	}

	profiles, err := h.svc.Users.ListMembers(r.Context(), user, orgID)
	if err != nil {
		h.writeServiceError(w, r, err, "list_users")
		return
	}

	items := make([]ProfileDTO, len(profiles))
	for i, p := range profiles {
		items[i] = mapProfile(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// updateUserRequest — тело PUT /api/v1/users/{id}.
type updateUserRequest struct {
	Role           string  `json:"role"`
	OrganisationID *string `json:"organisation_id"`
}

// UpdateUser — PUT /api/v1/users/{id}.
// Назначает роль и организацию. Доступ: admin своей организации, superadmin.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.svc.Users.UpdateUser(r.Context(), middleware.UserFromContext(r.Context()), id,
		service.UpdateUserInput{Role: req.Role, OrganisationID: req.OrganisationID})
	if err != nil {
		h.writeServiceError(w, r, err, "update_user")
		return
	}
	writeJSON(w, http.StatusOK, mapProfile(profile))
}
