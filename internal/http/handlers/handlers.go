package handlers

import (
	"net/http"
	"strconv"

	"github.com/diagnosis/tunisia-tours/internal/http/response"
	"github.com/diagnosis/tunisia-tours/internal/service"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	bookingService service.BookingService
	tourService    service.TourService
}

func New(bookingService service.BookingService, tourService service.TourService) *Handlers {
	return &Handlers{
		bookingService: bookingService,
		tourService:    tourService,
	}
}

// RouteOptions carries the middleware that differs between production and
// tests. Admin is required; Submit wraps POST /api/bookings only.
type RouteOptions struct {
	Admin  func(http.Handler) http.Handler
	Submit []func(http.Handler) http.Handler
}

func (h *Handlers) Mount(r chi.Router, opts RouteOptions) {
	r.Get("/api/status", h.Status)

	r.Route("/api/tours", func(r chi.Router) {
		r.Get("/", h.ListTours)
		r.Get("/{id}", h.GetTour)
	})

	r.With(opts.Submit...).Post("/api/bookings", h.CreateBooking)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(opts.Admin)
		r.Get("/bookings", h.ListBookings)
		r.Get("/bookings/{id}", h.GetBooking)
	})
}

func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Server is running"})
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response.WriteJSON(w, statusCode, data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	response.WriteError(w, statusCode, message, code)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
