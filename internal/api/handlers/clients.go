// clients.go — обработчики /api/v1/clients.
// Чтение — любая роль, запись — employe и выше, удаление — manager и выше.
package handlers

import (
	"net/http"

	"github.com/tinocursor/swift-garage-sub001/internal/service"
)

type clientRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Notes    string `json:"notes"`
}

func (req clientRequest) input() service.ClientInput {
	return service.ClientInput{FullName: req.FullName, Email: req.Email, Phone: req.Phone, Notes: req.Notes}
}

// ListClients — GET /api/v1/clients.
func (h *APIHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := bindPage(w, r)
	if !ok {
		return
	}
	var search string
	if !bindQuery(w, r, "search", &search) {
		return
	}

	clients, total, err := h.svc.Clients.List(r.Context(), caller(r), search, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "list_clients")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(clients, mapClient, total, limit, offset))
}

// GetClient — GET /api/v1/clients/{id}.
func (h *APIHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Clients.Get(r.Context(), caller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "get_client")
		return
	}
	writeJSON(w, http.StatusOK, mapClient(c))
}

// CreateClient — POST /api/v1/clients.
func (h *APIHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.Clients.Create(r.Context(), caller(r), req.input())
	if err != nil {
		h.writeServiceError(w, r, err, "create_client")
		return
	}
	writeJSON(w, http.StatusCreated, mapClient(c))
}

// UpdateClient — PUT /api/v1/clients/{id}.
func (h *APIHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req clientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.Clients.Update(r.Context(), caller(r), id, req.input())
	if err != nil {
		h.writeServiceError(w, r, err, "update_client")
		return
	}
	writeJSON(w, http.StatusOK, mapClient(c))
}

// DeleteClient — DELETE /api/v1/clients/{id}.
func (h *APIHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Clients.Delete(r.Context(), caller(r), id); err != nil {
		h.writeServiceError(w, r, err, "delete_client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
