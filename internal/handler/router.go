package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/afiqzak/serai-booking-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса бронирования.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", h.GetRooms)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Get("/", h.GetBookings)

			r.Get("/{id}", h.GetBooking)
			r.Post("/{id}/payment", h.RecordPayment)
			r.Delete("/{id}", h.DeleteBooking)
		})

		r.Get("/stats", h.GetStats)
		r.Get("/calendar", h.GetCalendar)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func pathID(r *http.Request) string {
	return chi.URLParam(r, "id")
}
