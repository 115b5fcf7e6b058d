package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/mmeshcher/comedor/internal/model"
	"github.com/mmeshcher/comedor/internal/service"
)

// PutMenu сохраняет меню недели.
func (h *Handler) PutMenu(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	var m model.WeeklyMenu
	if !decodeJSON(r, &m) {
		badRequest(w)
		return
	}
	m.Slot = slot

	saved, err := h.service.PutMenu(r.Context(), m)
	if err != nil {
		h.writeError(w, r, "put menu error", err)
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

type deleteMenuResponse struct {
	DeletedOrders int64 `json:"deleted_orders"`
}

// DeleteMenu удаляет меню недели и заказы на неё.
func (h *Handler) DeleteMenu(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	n, err := h.service.DeleteMenu(r.Context(), slot)
	if err != nil {
		h.writeError(w, r, "delete menu error", err)
		return
	}

	writeJSON(w, http.StatusOK, deleteMenuResponse{DeletedOrders: n})
}

type optionRequest struct {
	Label string `json:"label"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// AddOption добавляет опцию в каталог дня.
func (h *Handler) AddOption(w http.ResponseWriter, r *http.Request) {
	day, ok := dayParam(w, r)
	if !ok {
		return
	}
	var req optionRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	c, err := h.service.AddOption(r.Context(), day, req.Label)
	if err != nil {
		h.writeError(w, r, "add option error", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// RemoveOption удаляет опцию из каталога дня.
func (h *Handler) RemoveOption(w http.ResponseWriter, r *http.Request) {
	day, ok := dayParam(w, r)
	if !ok {
		return
	}
	var req optionRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	c, err := h.service.RemoveOption(r.Context(), day, req.Label)
	if err != nil {
		h.writeError(w, r, "remove option error", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// RenameOption переименовывает опцию в каталоге дня.
func (h *Handler) RenameOption(w http.ResponseWriter, r *http.Request) {
	day, ok := dayParam(w, r)
	if !ok {
		return
	}
	var req optionRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	c, err := h.service.RenameOption(r.Context(), day, req.From, req.To)
	if err != nil {
		h.writeError(w, r, "rename option error", err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// GetPriceConfig возвращает настройки цены.
func (h *Handler) GetPriceConfig(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.PriceConfig(r.Context())
	if err != nil {
		h.writeError(w, r, "get price config error", err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

type priceRequest struct {
	UnitPrice      model.Money  `json:"unit_price"`
	SubsidyPercent *float64     `json:"subsidy_percent"`
	SubsidyAmount  *model.Money `json:"subsidy_amount"`
}

// PutPriceConfig сохраняет цену обеда и компенсацию.
func (h *Handler) PutPriceConfig(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	v, err := h.service.SetPriceConfig(r.Context(), service.PriceUpdate{
		UnitPrice:      req.UnitPrice,
		SubsidyPercent: req.SubsidyPercent,
		SubsidyAmount:  req.SubsidyAmount,
	})
	if err != nil {
		h.writeError(w, r, "put price config error", err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// GetDeadlines возвращает окно приёма заказов.
func (h *Handler) GetDeadlines(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Deadlines(r.Context())
	if err != nil {
		h.writeError(w, r, "get deadlines error", err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// PutDeadlines сохраняет окно приёма заказов.
func (h *Handler) PutDeadlines(w http.ResponseWriter, r *http.Request) {
	var d model.DeadlineConfig
	if !decodeJSON(r, &d) {
		badRequest(w)
		return
	}

	if err := h.service.SetDeadlines(r.Context(), d); err != nil {
		h.writeError(w, r, "put deadlines error", err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// DeleteDeadlines снимает окно приёма заказов.
func (h *Handler) DeleteDeadlines(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearDeadlines(r.Context()); err != nil {
		h.writeError(w, r, "delete deadlines error", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ListOrders возвращает заказы всех пользователей на неделю.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), slot)
	if err != nil {
		h.writeError(w, r, "list orders error", err)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutUserOrder сохраняет выбор пользователя от имени администратора без ограничений по времени.
func (h *Handler) PutUserOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(w, r, "userID")
	if !ok {
		return
	}
	h.placeOrder(w, r, userID, true)
}

// DeleteUserOrder удаляет заказ пользователя на неделю.
func (h *Handler) DeleteUserOrder(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}
	userID, ok := idParam(w, r, "userID")
	if !ok {
		return
	}

	if err := h.service.DeleteOrder(r.Context(), userID, slot); err != nil {
		h.writeError(w, r, "delete order error", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetReport возвращает сводку заказов недели.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	rep, err := h.service.BuildReport(r.Context(), slot)
	if err != nil {
		h.writeError(w, r, "build report error", err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// ExportReport выгружает количество заказов по опциям в CSV.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportCSV(r.Context(), slot, &buf); err != nil {
		h.writeError(w, r, "export report error", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "pedidos-"+string(slot)+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// GetAllHistory возвращает архив заказов всех пользователей.
func (h *Handler) GetAllHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.AllHistory(r.Context())
	if err != nil {
		h.writeError(w, r, "get all history error", err)
		return
	}

	writeHistory(w, records)
}

// CloseWeek вручную закрывает неделю.
func (h *Handler) CloseWeek(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.CloseWeek(r.Context())
	if err != nil {
		h.writeError(w, r, "close week error", err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// ListRolloverRuns возвращает журнал закрытий недели.
func (h *Handler) ListRolloverRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.RolloverRuns(r.Context())
	if err != nil {
		h.writeError(w, r, "list rollover runs error", err)
		return
	}

	writeJSON(w, http.StatusOK, runs)
}
