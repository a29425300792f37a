// dashboard.go — обработчик GET /api/v1/dashboard.
package handlers

import "net/http"

// GetDashboard — сводка по организации вызова.
func (h *APIHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard.Stats(r.Context(), caller(r))
	if err != nil {
		h.writeServiceError(w, r, err, "dashboard")
		return
	}
	writeJSON(w, http.StatusOK, mapDashboard(stats))
}
