package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/livreur-console/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware консоли курьера.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.GetDashboard)
		r.Post("/dashboard/refresh", h.RefreshDashboard)
		r.Post("/availability/toggle", h.ToggleAvailability)

		r.Route("/scanner", func(r chi.Router) {
			r.Post("/open", h.OpenScanner)
			r.Post("/manual-entry", h.OpenManualEntry)
			r.Post("/close", h.CloseScanner)
			r.Post("/code", h.SubmitCode)
			r.Post("/payload", h.PushPayload)
		})

		r.Post("/orders/{id}/open", h.OpenOrder)
		r.Post("/detail/close", h.CloseDetail)
		r.Post("/detail/status", h.UpdateStatus)

		r.Get("/history", h.GetHistory)

		r.Get("/theme", h.GetTheme)
		r.Put("/theme", h.ChangeTheme)
		r.Post("/theme/dark", h.ToggleDarkMode)

		r.Get("/categories", h.GetCategories)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
