package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/Motasaith/mern-ecommerce-sub000/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины.
func (h *Handler) SetupRouter(extra ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(extra...)

	r.Get("/healthz", h.Health)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics)
	}

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/track/{trackingID}", h.TrackOrder)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/", h.CreateOrder)
			r.Get("/mine", h.GetMyOrders)
			r.Get("/{id}", h.GetOrder)
			r.Put("/{id}/pay", h.PayOrder)
			r.Put("/{id}/cancel", h.CancelOrder)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(custommiddleware.RequireAdmin)

		r.Get("/orders", h.ListOrders)
		r.Put("/orders/{id}/ship", h.ShipOrder)
		r.Put("/orders/{id}/deliver", h.DeliverOrder)
		r.Get("/dashboard", h.Dashboard)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusNotFound, "not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
