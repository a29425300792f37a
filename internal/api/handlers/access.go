// access.go — обработчик GET /api/v1/access.
package handlers

import (
	"net/http"

	apierrors "github.com/tinocursor/swift-garage-sub001/internal/api/errors"
	"github.com/tinocursor/swift-garage-sub001/internal/api/middleware"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/session"
)

// ResolveAccess — GET /api/v1/access?path=.
// Решение о доступе для клиентов без HTML: Bearer token необязателен,
// выбранная организация передаётся заголовком X-Organisation-ID.
func (h *APIHandler) ResolveAccess(w http.ResponseWriter, r *http.Request) {
	var path string
	if !bindQuery(w, r, "path", &path) {
		return
	}
	if path == "" {
		apierrors.ValidationError(w, "Параметр path обязателен")
		return
	}

	st := session.State{
		User:                  middleware.UserFromContext(r.Context()),
		CurrentOrganisationID: r.Header.Get(HeaderOrganisationID),
	}
	res := h.svc.Access.Resolve(r.Context(), st, path)

	writeJSON(w, http.StatusOK, AccessResultDTO{
		Decision: res.Decision.String(),
		Redirect: res.Redirect,
	})
}
