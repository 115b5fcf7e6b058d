package handler

import (
	"net/http"
	"time"

	"github.com/mmeshcher/comedor/internal/middleware"
	"github.com/mmeshcher/comedor/internal/model"
	"github.com/mmeshcher/comedor/internal/service"
)

type credentialsRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type userResponse struct {
	ID          int64             `json:"id"`
	Login       string            `json:"login"`
	DisplayName string            `json:"display_name"`
	Role        model.Role        `json:"role"`
	SubsidyMode model.SubsidyMode `json:"subsidy_mode"`
	CreatedAt   string            `json:"created_at"`
}

func newUserResponse(u model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Login:       u.Login,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		SubsidyMode: u.SubsidyMode,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
	}
}

// issueSession выдаёт cookie сессии, если это не запрещено контекстом запроса.
func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, userID int64) {
	if middleware.SessionSuppressed(r.Context()) {
		return
	}
	h.authMiddleware.SetAuthCookie(w, userID)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(r, &req) || req.Login == "" || req.Password == "" {
		badRequest(w)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, r, "login user error", err)
		return
	}

	h.issueSession(w, r, userID)
	w.WriteHeader(http.StatusOK)
}

// Logout завершает сессию.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// Me возвращает профиль текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "get user error", err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(*u))
}

type passwordRequest struct {
	Current string `json:"current"`
	New     string `json:"new"`
}

// ChangePassword меняет пароль текущего пользователя.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req passwordRequest
	if !decodeJSON(r, &req) || req.Current == "" || req.New == "" {
		badRequest(w)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.Current, req.New); err != nil {
		h.writeError(w, r, "change password error", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type createUserRequest struct {
	credentialsRequest
	Role        model.Role        `json:"role"`
	SubsidyMode model.SubsidyMode `json:"subsidy_mode"`
}

type createUserResponse struct {
	ID int64 `json:"id"`
}

// CreateUser создаёт учётную запись от имени администратора. Сессия администратора не меняется.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(r, &req) || req.Login == "" || req.Password == "" {
		badRequest(w)
		return
	}

	userID, err := h.service.CreateUser(r.Context(), service.NewUser{
		Login:       req.Login,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		SubsidyMode: req.SubsidyMode,
	})
	if err != nil {
		h.writeError(w, r, "create user error", err)
		return
	}

	h.issueSession(w, r, userID)
	writeJSON(w, http.StatusCreated, createUserResponse{ID: userID})
}

// ListUsers возвращает всех пользователей.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, "list users error", err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, newUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

type subsidyRequest struct {
	Mode string `json:"mode"`
}

// SetUserSubsidy меняет режим компенсации пользователя.
func (h *Handler) SetUserSubsidy(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req subsidyRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	if err := h.service.SetUserSubsidy(r.Context(), userID, req.Mode); err != nil {
		h.writeError(w, r, "set subsidy error", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
