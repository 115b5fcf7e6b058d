package handler

import (
	"net/http"
	"time"

	"github.com/mmeshcher/comedor/internal/model"
	"github.com/mmeshcher/comedor/internal/service"
)

type orderResponse struct {
	UserID     int64                            `json:"user_id"`
	Slot       model.Slot                       `json:"slot"`
	Days       map[model.Day]model.DaySelection `json:"days"`
	TotalPrice model.Money                      `json:"total_price"`
	UpdatedAt  string                           `json:"updated_at"`
}

func newOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		UserID:     o.UserID,
		Slot:       o.Slot,
		Days:       o.Days,
		TotalPrice: o.TotalPrice,
		UpdatedAt:  o.UpdatedAt.Format(time.RFC3339),
	}
}

type orderRequest struct {
	Days map[model.Day]string `json:"days"`
}

// GetMenu возвращает меню недели.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	m, err := h.service.GetMenu(r.Context(), slot)
	if err != nil {
		h.writeError(w, r, "get menu error", err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// GetCatalog возвращает каталог опций по дням.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Catalog(r.Context())
	if err != nil {
		h.writeError(w, r, "get catalog error", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// GetOrder возвращает заказ текущего пользователя на неделю.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), userID, slot)
	if err != nil {
		h.writeError(w, r, "get order error", err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(*o))
}

// PutOrder сохраняет выбор текущего пользователя на неделю.
func (h *Handler) PutOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.placeOrder(w, r, userID, false)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, userID int64, asAdmin bool) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	var req orderRequest
	if !decodeJSON(r, &req) || len(req.Days) == 0 {
		badRequest(w)
		return
	}

	o, err := h.service.PlaceOrder(r.Context(), service.OrderRequest{
		UserID:  userID,
		Slot:    slot,
		Days:    req.Days,
		AsAdmin: asAdmin,
	})
	if err != nil {
		h.writeError(w, r, "place order error", err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(*o))
}

// GetAvailability возвращает, какие дни недели ещё можно изменить.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	week, err := h.service.Availability(r.Context(), slot)
	if err != nil {
		h.writeError(w, r, "get availability error", err)
		return
	}

	writeJSON(w, http.StatusOK, week)
}

type historyResponse struct {
	ClosureID  string                           `json:"closure_id"`
	UserID     int64                            `json:"user_id"`
	Slot       model.Slot                       `json:"slot"`
	Days       map[model.Day]model.DaySelection `json:"days"`
	TotalPrice model.Money                      `json:"total_price"`
	ClosedAt   string                           `json:"closed_at"`
}

func writeHistory(w http.ResponseWriter, records []model.HistoryRecord) {
	if len(records) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]historyResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, historyResponse{
			ClosureID:  rec.ClosureID,
			UserID:     rec.UserID,
			Slot:       rec.Slot,
			Days:       rec.Days,
			TotalPrice: rec.TotalPrice,
			ClosedAt:   rec.ClosedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetHistory возвращает архив заказов текущего пользователя.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	records, err := h.service.History(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "get history error", err)
		return
	}

	writeHistory(w, records)
}
