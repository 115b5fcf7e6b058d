// Package handler содержит HTTP-обработчики API сервиса заказа обедов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/comedor/internal/catalog"
	"github.com/mmeshcher/comedor/internal/middleware"
	"github.com/mmeshcher/comedor/internal/model"
	"github.com/mmeshcher/comedor/internal/policy"
	"github.com/mmeshcher/comedor/internal/repository"
	"github.com/mmeshcher/comedor/internal/rollover"
	"github.com/mmeshcher/comedor/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateUser(ctx context.Context, nu service.NewUser) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	SetUserSubsidy(ctx context.Context, userID int64, mode string) error

	GetMenu(ctx context.Context, slot model.Slot) (*model.WeeklyMenu, error)
	PutMenu(ctx context.Context, m model.WeeklyMenu) (*model.WeeklyMenu, error)
	DeleteMenu(ctx context.Context, slot model.Slot) (int64, error)

	Catalog(ctx context.Context) (model.Catalog, error)
	AddOption(ctx context.Context, day model.Day, label string) (model.Catalog, error)
	RemoveOption(ctx context.Context, day model.Day, label string) (model.Catalog, error)
	RenameOption(ctx context.Context, day model.Day, from, to string) (model.Catalog, error)

	PriceConfig(ctx context.Context) (service.PriceView, error)
	SetPriceConfig(ctx context.Context, upd service.PriceUpdate) (service.PriceView, error)
	Deadlines(ctx context.Context) (model.DeadlineConfig, error)
	SetDeadlines(ctx context.Context, d model.DeadlineConfig) error
	ClearDeadlines(ctx context.Context) error

	Availability(ctx context.Context, slot model.Slot) (map[model.Day]policy.DayState, error)
	PlaceOrder(ctx context.Context, req service.OrderRequest) (*model.Order, error)
	GetOrder(ctx context.Context, userID int64, slot model.Slot) (*model.Order, error)
	DeleteOrder(ctx context.Context, userID int64, slot model.Slot) error
	ListOrders(ctx context.Context, slot model.Slot) ([]model.Order, error)

	BuildReport(ctx context.Context, slot model.Slot) (*service.Report, error)
	ExportCSV(ctx context.Context, slot model.Slot, w io.Writer) error
	History(ctx context.Context, userID int64) ([]model.HistoryRecord, error)
	AllHistory(ctx context.Context) ([]model.HistoryRecord, error)

	CloseWeek(ctx context.Context) (*model.RolloverRun, error)
	RolloverRuns(ctx context.Context) ([]model.RolloverRun, error)
}

// Handler реализует HTTP-обработчики API сервиса заказа обедов.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	metrics        http.Handler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// metricsHandler может быть nil: тогда /metrics не публикуется.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, metricsHandler http.Handler) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		metrics:        metricsHandler,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor сопоставляет ошибку бизнес-логики HTTP-статусу.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, catalog.ErrEmptyLabel):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, service.ErrMenuNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, catalog.ErrLabelNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, catalog.ErrReservedLabel),
		errors.Is(err, catalog.ErrDuplicateLabel),
		errors.Is(err, rollover.ErrNothingToRoll),
		errors.Is(err, policy.ErrSubsidyConfigInconsistent):
		return http.StatusConflict
	case errors.Is(err, policy.ErrDayClosed),
		errors.Is(err, policy.ErrOrderingNotOpen),
		errors.Is(err, policy.ErrWindowClosed),
		errors.Is(err, service.ErrCloseNotAllowedYet):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError отвечает статусом, соответствующим ошибке. Внутренние ошибки журналируются,
// а клиенту возвращается только текст статуса.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		fields := []zap.Field{zap.Error(err), zap.String("path", r.URL.Path)}
		if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
			fields = append(fields, zap.Int64("userID", userID))
		}
		h.logger.Error(op, fields...)
		http.Error(w, http.StatusText(status), status)
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) bool {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func badRequest(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
}

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return userID, ok
}

func slotParam(w http.ResponseWriter, r *http.Request) (model.Slot, bool) {
	slot, err := model.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return "", false
	}
	return slot, true
}

func dayParam(w http.ResponseWriter, r *http.Request) (model.Day, bool) {
	day, err := model.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return "", false
	}
	return day, true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w)
		return 0, false
	}
	return id, true
}
