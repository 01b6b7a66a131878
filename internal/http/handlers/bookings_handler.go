package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/diagnosis/tunisia-tours/internal/http/response"
	"github.com/diagnosis/tunisia-tours/pkg/logger"
)

const maxBookingBody = 1 << 20

// CreateBooking handles POST /api/bookings. The operator email is sent after
// the response and its outcome never changes the status code.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBookingBody)).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "Invalid booking payload", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON body", response.CodeInvalidJSON)
		return
	}

	booking, err := h.bookingService.CreateBooking(r.Context(), &req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error(), response.CodeInvalidInput)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create booking", response.CodeInternalError)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var status *domain.BookingStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st, ok := domain.ParseBookingStatus(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid status parameter", response.CodeInvalidInput)
			return
		}
		status = &st
	}

	bookings, err := h.bookingService.ListBookings(r.Context(), status, limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list bookings", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve bookings", response.CodeInternalError)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid booking ID", response.CodeInvalidInput)
		return
	}

	booking, err := h.bookingService.GetBooking(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to get booking", "booking_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve booking", response.CodeInternalError)
		return
	}
	if booking == nil {
		writeError(w, http.StatusNotFound, "Booking not found", response.CodeNotFound)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}
