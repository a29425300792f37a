// vehicles.go — обработчики /api/v1/vehicles.
package handlers

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/tinocursor/swift-garage-sub001/internal/service"
)

type vehicleRequest struct {
	ClientID string `json:"client_id"`
	Plate    string `json:"plate"`
	Make     string `json:"make"`
	Model    string `json:"model"`
	Year     *int   `json:"year"`
	VIN      string `json:"vin"`
	Mileage  *int   `json:"mileage"`
}

func (req vehicleRequest) input() service.VehicleInput {
	return service.VehicleInput{
		ClientID: req.ClientID,
		Plate:    req.Plate,
		Make:     req.Make,
		Model:    req.Model,
		Year:     req.Year,
		VIN:      req.VIN,
		Mileage:  req.Mileage,
	}
}

// ListVehicles — GET /api/v1/vehicles[?client_id=].
func (h *APIHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := bindPage(w, r)
	if !ok {
		return
	}
	var clientID *openapi_types.UUID
	if !bindQuery(w, r, "client_id", &clientID) {
		return
	}
	filter := ""
	if clientID != nil {
		filter = clientID.String()
	}

	vehicles, total, err := h.svc.Vehicles.List(r.Context(), caller(r), filter, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "list_vehicles")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(vehicles, mapVehicle, total, limit, offset))
}

// GetVehicle — GET /api/v1/vehicles/{id}.
func (h *APIHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Vehicles.Get(r.Context(), caller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "get_vehicle")
		return
	}
	writeJSON(w, http.StatusOK, mapVehicle(v))
}

// CreateVehicle — POST /api/v1/vehicles.
func (h *APIHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.Vehicles.Create(r.Context(), caller(r), req.input())
	if err != nil {
		h.writeServiceError(w, r, err, "create_vehicle")
		return
	}
	writeJSON(w, http.StatusCreated, mapVehicle(v))
}

// UpdateVehicle — PUT /api/v1/vehicles/{id}.
func (h *APIHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req vehicleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.Vehicles.Update(r.Context(), caller(r), id, req.input())
	if err != nil {
		h.writeServiceError(w, r, err, "update_vehicle")
		return
	}
	writeJSON(w, http.StatusOK, mapVehicle(v))
}

// DeleteVehicle — DELETE /api/v1/vehicles/{id}.
func (h *APIHandler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Vehicles.Delete(r.Context(), caller(r), id); err != nil {
		h.writeServiceError(w, r, err, "delete_vehicle")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
