// stock.go — обработчики /api/v1/stock. Запись и удаление — manager и выше.
package handlers

import (
	"net/http"

	"github.com/tinocursor/swift-garage-sub001/internal/service"
)

type stockRequest struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	MinQuantity    int    `json:"min_quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

func (req stockRequest) input() service.StockInput {
	return service.StockInput{
		SKU:            req.SKU,
		Name:           req.Name,
		Quantity:       req.Quantity,
		MinQuantity:    req.MinQuantity,
		UnitPriceCents: req.UnitPriceCents,
	}
}

// ListStock — GET /api/v1/stock[?low_only=true].
func (h *APIHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := bindPage(w, r)
	if !ok {
		return
	}
	var lowOnly bool
	if !bindQuery(w, r, "low_only", &lowOnly) {
		return
	}

	items, total, err := h.svc.Stock.List(r.Context(), caller(r), lowOnly, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "list_stock")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, mapStockItem, total, limit, offset))
}

// GetStockItem — GET /api/v1/stock/{id}.
func (h *APIHandler) GetStockItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.Stock.Get(r.Context(), caller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "get_stock_item")
		return
	}
	writeJSON(w, http.StatusOK, mapStockItem(item))
}

// CreateStockItem — POST /api/v1/stock.
func (h *APIHandler) CreateStockItem(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.Stock.Create(r.Context(), caller(r), req.input())
	if err != nil {
		h.writeServiceError(w, r, err, "create_stock_item")
		return
	}
	writeJSON(w, http.StatusCreated, mapStockItem(item))
}

// UpdateStockItem — PUT /api/v1/stock/{id}.
func (h *APIHandler) UpdateStockItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req stockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.Stock.Update(r.Context(), caller(r), id, req.input())
	if err != nil {
		h.writeServiceError(w, r, err, "update_stock_item")
		return
	}
	writeJSON(w, http.StatusOK, mapStockItem(item))
}

// AdjustStock — POST /api/v1/stock/{id}/adjust.
// Меняет остаток на delta; остаток не может стать отрицательным.
func (h *APIHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.Stock.Adjust(r.Context(), caller(r), id, req.Delta)
	if err != nil {
		h.writeServiceError(w, r, err, "adjust_stock")
		return
	}
	writeJSON(w, http.StatusOK, mapStockItem(item))
}

// DeleteStockItem — DELETE /api/v1/stock/{id}.
func (h *APIHandler) DeleteStockItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Stock.Delete(r.Context(), caller(r), id); err != nil {
		h.writeServiceError(w, r, err, "delete_stock_item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
