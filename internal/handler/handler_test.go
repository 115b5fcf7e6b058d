package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/comedor/internal/catalog"
	"github.com/mmeshcher/comedor/internal/middleware"
	"github.com/mmeshcher/comedor/internal/model"
	"github.com/mmeshcher/comedor/internal/policy"
	"github.com/mmeshcher/comedor/internal/repository"
	"github.com/mmeshcher/comedor/internal/rollover"
	"github.com/mmeshcher/comedor/internal/service"
)

type stubService struct {
	authUserID int64
	authErr    error

	admins map[int64]bool

	createdUser service.NewUser
	createID    int64

	orderReq service.OrderRequest
	orderErr error

	ordersResp  []model.Order
	historyResp []model.HistoryRecord
	csv         string

	err error
}

func (s *stubService) CreateUser(ctx context.Context, nu service.NewUser) (int64, error) {
	s.createdUser = nu
	return s.createID, s.err
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	return s.authUserID, s.authErr
}

func (s *stubService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	return s.err
}

func (s *stubService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.User{ID: userID, Login: "ana@comedor.com", DisplayName: "Ana", Role: model.RoleUser}, nil
}

func (s *stubService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.admins[userID], nil
}

func (s *stubService) ListUsers(ctx context.Context) ([]model.User, error) {
	return nil, s.err
}

func (s *stubService) SetUserSubsidy(ctx context.Context, userID int64, mode string) error {
	return s.err
}

func (s *stubService) GetMenu(ctx context.Context, slot model.Slot) (*model.WeeklyMenu, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.WeeklyMenu{Slot: slot}, nil
}

func (s *stubService) PutMenu(ctx context.Context, m model.WeeklyMenu) (*model.WeeklyMenu, error) {
	return &m, s.err
}

func (s *stubService) DeleteMenu(ctx context.Context, slot model.Slot) (int64, error) {
	return 0, s.err
}

func (s *stubService) Catalog(ctx context.Context) (model.Catalog, error) {
	return catalog.Default(), s.err
}

func (s *stubService) AddOption(ctx context.Context, day model.Day, label string) (model.Catalog, error) {
	return model.Catalog{}, s.err
}

func (s *stubService) RemoveOption(ctx context.Context, day model.Day, label string) (model.Catalog, error) {
	return model.Catalog{}, s.err
}

func (s *stubService) RenameOption(ctx context.Context, day model.Day, from, to string) (model.Catalog, error) {
	return model.Catalog{}, s.err
}

func (s *stubService) PriceConfig(ctx context.Context) (service.PriceView, error) {
	return service.PriceView{}, s.err
}

func (s *stubService) SetPriceConfig(ctx context.Context, upd service.PriceUpdate) (service.PriceView, error) {
	return service.PriceView{UnitPrice: upd.UnitPrice, Configured: true}, s.err
}

func (s *stubService) Deadlines(ctx context.Context) (model.DeadlineConfig, error) {
	return model.DeadlineConfig{}, s.err
}

func (s *stubService) SetDeadlines(ctx context.Context, d model.DeadlineConfig) error {
	return s.err
}

func (s *stubService) ClearDeadlines(ctx context.Context) error {
	return s.err
}

func (s *stubService) Availability(ctx context.Context, slot model.Slot) (map[model.Day]policy.DayState, error) {
	return map[model.Day]policy.DayState{model.Monday: {Orderable: true}}, s.err
}

func (s *stubService) PlaceOrder(ctx context.Context, req service.OrderRequest) (*model.Order, error) {
	s.orderReq = req
	if s.orderErr != nil {
		return nil, s.orderErr
	}
	days := make(map[model.Day]model.DaySelection, len(req.Days))
	for d, opt := range req.Days {
		days[d] = model.DaySelection{Option: opt}
	}
	return &model.Order{UserID: req.UserID, Slot: req.Slot, Days: days, TotalPrice: 6400}, nil
}

func (s *stubService) GetOrder(ctx context.Context, userID int64, slot model.Slot) (*model.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Order{UserID: userID, Slot: slot}, nil
}

func (s *stubService) DeleteOrder(ctx context.Context, userID int64, slot model.Slot) error {
	return s.err
}

func (s *stubService) ListOrders(ctx context.Context, slot model.Slot) ([]model.Order, error) {
	return s.ordersResp, s.err
}

func (s *stubService) BuildReport(ctx context.Context, slot model.Slot) (*service.Report, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.Report{Slot: slot}, nil
}

func (s *stubService) ExportCSV(ctx context.Context, slot model.Slot, w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	_, err := io.WriteString(w, s.csv)
	return err
}

func (s *stubService) History(ctx context.Context, userID int64) ([]model.HistoryRecord, error) {
	return s.historyResp, s.err
}

func (s *stubService) AllHistory(ctx context.Context) ([]model.HistoryRecord, error) {
	return s.historyResp, s.err
}

func (s *stubService) CloseWeek(ctx context.Context) (*model.RolloverRun, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.RolloverRun{ID: "run-1", Status: model.RolloverSucceeded}, nil
}

func (s *stubService) RolloverRuns(ctx context.Context) ([]model.RolloverRun, error) {
	return nil, s.err
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth, nil)
}

func authCookie(t *testing.T, h *Handler, userID int64) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, userID)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec
}

func TestRegister_NotExposed(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body := `{"login":"intruso@comedor.com","password":"secreto"}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/user/register", strings.NewReader(body)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogin_Success(t *testing.T) {
	svc := &stubService{
		authUserID: 42,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user@comedor.com",
		Password: "secreto",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("session cookie was not issued")
	}
}

func TestLogin_BadRequest(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_UnauthorizedOnError(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidCredentials,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user@comedor.com",
		Password: "secreto",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/user/logout", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: service.ErrInvalidInput, want: http.StatusBadRequest},
		{err: fmt.Errorf("%w: bad day", service.ErrInvalidInput), want: http.StatusBadRequest},
		{err: catalog.ErrEmptyLabel, want: http.StatusBadRequest},
		{err: service.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{err: repository.ErrUserNotFound, want: http.StatusNotFound},
		{err: service.ErrMenuNotFound, want: http.StatusNotFound},
		{err: service.ErrOrderNotFound, want: http.StatusNotFound},
		{err: catalog.ErrLabelNotFound, want: http.StatusNotFound},
		{err: repository.ErrUserExists, want: http.StatusConflict},
		{err: catalog.ErrReservedLabel, want: http.StatusConflict},
		{err: rollover.ErrNothingToRoll, want: http.StatusConflict},
		{err: policy.ErrSubsidyConfigInconsistent, want: http.StatusConflict},
		{err: policy.ErrDayClosed, want: http.StatusUnprocessableEntity},
		{err: policy.ErrOrderingNotOpen, want: http.StatusUnprocessableEntity},
		{err: policy.ErrWindowClosed, want: http.StatusUnprocessableEntity},
		{err: service.ErrCloseNotAllowedYet, want: http.StatusUnprocessableEntity},
		{err: errors.New("db down"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestMe_RequiresSession(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/user/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.AddCookie(authCookie(t, h, 5))
	rec = serve(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got userResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(5), got.ID)
	assert.Equal(t, "Ana", got.DisplayName)
}

func TestPutOrder(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	body := `{"days":{"monday":"PASTAS C/POSTRE","friday":"NO PEDIR COMIDA ESTE DÍA"}}`
	req := httptest.NewRequest(http.MethodPut, "/api/orders/next", strings.NewReader(body))
	req.AddCookie(authCookie(t, h, 3))

	rec := serve(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, int64(3), svc.orderReq.UserID)
	assert.Equal(t, model.SlotNext, svc.orderReq.Slot)
	assert.False(t, svc.orderReq.AsAdmin)
	assert.Equal(t, "PASTAS C/POSTRE", svc.orderReq.Days[model.Monday])

	var got orderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, model.Money(6400), got.TotalPrice)
	assert.Equal(t, model.DoNotOrder, got.Days[model.Friday].Option)
}

func TestPutOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		orderErr   error
		wantStatus int
	}{
		{name: "closed day", path: "/api/orders/current", body: `{"days":{"monday":"LIGHT"}}`, orderErr: policy.ErrDayClosed, wantStatus: http.StatusUnprocessableEntity},
		{name: "window closed", path: "/api/orders/next", body: `{"days":{"monday":"LIGHT"}}`, orderErr: policy.ErrWindowClosed, wantStatus: http.StatusUnprocessableEntity},
		{name: "no menu", path: "/api/orders/next", body: `{"days":{"monday":"LIGHT"}}`, orderErr: service.ErrMenuNotFound, wantStatus: http.StatusNotFound},
		{name: "empty days", path: "/api/orders/next", body: `{"days":{}}`, wantStatus: http.StatusBadRequest},
		{name: "unknown slot", path: "/api/orders/later", body: `{"days":{"monday":"LIGHT"}}`, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{orderErr: tt.orderErr})

			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			req.AddCookie(authCookie(t, h, 3))

			rec := serve(h, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetHistory_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.AddCookie(authCookie(t, h, 1))

	rec := serve(h, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestGetHistory_JSONResponse(t *testing.T) {
	closed := time.Date(2025, time.March, 8, 15, 0, 0, 0, time.UTC)
	svc := &stubService{
		historyResp: []model.HistoryRecord{
			{
				ClosureID:  "run-1",
				UserID:     1,
				Slot:       model.SlotCurrent,
				Days:       map[model.Day]model.DaySelection{model.Monday: {Option: "LIGHT"}},
				TotalPrice: 6400,
				ClosedAt:   closed,
			},
		},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.AddCookie(authCookie(t, h, 1))

	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []historyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "run-1", got[0].ClosureID)
	assert.Equal(t, closed.Format(time.RFC3339), got[0].ClosedAt)
}

func TestAdminRoutes_Access(t *testing.T) {
	svc := &stubService{admins: map[int64]bool{1: true}}
	h := newTestHandler(t, svc)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/admin/rollover", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/rollover", nil)
	req.AddCookie(authCookie(t, h, 2))
	rec = serve(h, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/rollover", nil)
	req.AddCookie(authCookie(t, h, 1))
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminCreateUser_KeepsAdminSession(t *testing.T) {
	svc := &stubService{admins: map[int64]bool{1: true}, createID: 9}
	h := newTestHandler(t, svc)

	body := `{"login":"beto@comedor.com","password":"secreto","display_name":"Beto","subsidy_mode":"partial"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/users", strings.NewReader(body))
	req.AddCookie(authCookie(t, h, 1))

	rec := serve(h, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, "Beto", svc.createdUser.DisplayName)
	assert.Equal(t, model.SubsidyPartial, svc.createdUser.SubsidyMode)

	var got createUserResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(9), got.ID)
}

func TestAdminPutUserOrder_Override(t *testing.T) {
	svc := &stubService{admins: map[int64]bool{1: true}}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/orders/current/7", strings.NewReader(`{"days":{"monday":"LIGHT"}}`))
	req.AddCookie(authCookie(t, h, 1))

	rec := serve(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), svc.orderReq.UserID)
	assert.Equal(t, model.SlotCurrent, svc.orderReq.Slot)
	assert.True(t, svc.orderReq.AsAdmin)
}

func TestAdminExportReport(t *testing.T) {
	svc := &stubService{admins: map[int64]bool{1: true}, csv: "MENU,LU,MA,MI,JU,VI,TOTAL\n"}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/reports/next/export", nil)
	req.AddCookie(authCookie(t, h, 1))

	rec := serve(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "pedidos-next.csv")
	assert.Equal(t, svc.csv, rec.Body.String())
}

func TestAdminCloseWeek(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "closed", wantStatus: http.StatusOK},
		{name: "too early", err: service.ErrCloseNotAllowedYet, wantStatus: http.StatusUnprocessableEntity},
		{name: "nothing to roll", err: rollover.ErrNothingToRoll, wantStatus: http.StatusConflict},
		{name: "partial rollover", err: &rollover.StepError{Step: rollover.StepArchive, Err: errors.New("disk full")}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{admins: map[int64]bool{1: true}, err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/admin/rollover", nil)
			req.AddCookie(authCookie(t, h, 1))

			rec := serve(h, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "disk full")
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	logger := zap.NewNop()
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "comedor_orders_saved_total 1\n")
	})
	h := NewHandler(&stubService{}, logger, middleware.NewAuthMiddleware("test-secret"), metricsHandler)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "comedor_orders_saved_total")
}
