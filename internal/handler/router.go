package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/comedor/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса заказа обедов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/me", h.Me)
			r.Put("/password", h.ChangePassword)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/api/menus/{slot}", h.GetMenu)
		r.Get("/api/catalog", h.GetCatalog)

		r.Get("/api/orders/{slot}", h.GetOrder)
		r.Put("/api/orders/{slot}", h.PutOrder)
		r.Get("/api/orders/{slot}/availability", h.GetAvailability)

		r.Get("/api/history", h.GetHistory)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(custommiddleware.AdminOnly(h.service, h.logger))

		r.Get("/users", h.ListUsers)
		r.With(custommiddleware.SuppressSession).Post("/users", h.CreateUser)
		r.Put("/users/{id}/subsidy", h.SetUserSubsidy)

		r.Put("/menus/{slot}", h.PutMenu)
		r.Delete("/menus/{slot}", h.DeleteMenu)

		r.Post("/catalog/{day}", h.AddOption)
		r.Delete("/catalog/{day}", h.RemoveOption)
		r.Put("/catalog/{day}", h.RenameOption)

		r.Get("/config/price", h.GetPriceConfig)
		r.Put("/config/price", h.PutPriceConfig)
		r.Get("/config/deadlines", h.GetDeadlines)
		r.Put("/config/deadlines", h.PutDeadlines)
		r.Delete("/config/deadlines", h.DeleteDeadlines)

		r.Get("/orders/{slot}", h.ListOrders)
		r.Put("/orders/{slot}/{userID}", h.PutUserOrder)
		r.Delete("/orders/{slot}/{userID}", h.DeleteUserOrder)

		r.Get("/reports/{slot}", h.GetReport)
		r.Get("/reports/{slot}/export", h.ExportReport)

		r.Get("/history", h.GetAllHistory)

		r.Post("/rollover", h.CloseWeek)
		r.Get("/rollover", h.ListRolloverRuns)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
