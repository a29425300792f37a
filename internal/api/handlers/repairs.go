// repairs.go — обработчики /api/v1/repairs.
// Запись — technicien и выше, удаление — manager и выше.
package handlers

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/tinocursor/swift-garage-sub001/internal/service"
)

type repairRequest struct {
	VehicleID   string `json:"vehicle_id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CostCents   int64  `json:"cost_cents"`
}

func (req repairRequest) input() service.RepairInput {
	return service.RepairInput{
		VehicleID:   req.VehicleID,
		Description: req.Description,
		Status:      req.Status,
		CostCents:   req.CostCents,
	}
}

// ListRepairs — GET /api/v1/repairs[?vehicle_id=&status=].
func (h *APIHandler) ListRepairs(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := bindPage(w, r)
	if !ok {
		return
	}
	var (
		vehicleID *openapi_types.UUID
		status    string
	)
	if !bindQuery(w, r, "vehicle_id", &vehicleID) || !bindQuery(w, r, "status", &status) {
		return
	}
	filter := ""
	if vehicleID != nil {
		filter = vehicleID.String()
	}

	repairs, total, err := h.svc.Repairs.List(r.Context(), caller(r), filter, status, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "list_repairs")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(repairs, mapRepair, total, limit, offset))
}

// GetRepair — GET /api/v1/repairs/{id}.
func (h *APIHandler) GetRepair(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rp, err := h.svc.Repairs.Get(r.Context(), caller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "get_repair")
		return
	}
	writeJSON(w, http.StatusOK, mapRepair(rp))
}

// CreateRepair — POST /api/v1/repairs.
func (h *APIHandler) CreateRepair(w http.ResponseWriter, r *http.Request) {
	var req repairRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rp, err := h.svc.Repairs.Create(r.Context(), caller(r), req.input())
	if err != nil {
		h.writeServiceError(w, r, err, "create_repair")
		return
	}
	writeJSON(w, http.StatusCreated, mapRepair(rp))
}

// UpdateRepair — PUT /api/v1/repairs/{id}.
func (h *APIHandler) UpdateRepair(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req repairRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rp, err := h.svc.Repairs.Update(r.Context(), caller(r), id, req.input())
	if err != nil {
		h.writeServiceError(w, r, err, "update_repair")
		return
	}
	writeJSON(w, http.StatusOK, mapRepair(rp))
}

// DeleteRepair — DELETE /api/v1/repairs/{id}.
func (h *APIHandler) DeleteRepair(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Repairs.Delete(r.Context(), caller(r), id); err != nil {
		h.writeServiceError(w, r, err, "delete_repair")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
