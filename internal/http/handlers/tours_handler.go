package handlers

import (
	"net/http"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/diagnosis/tunisia-tours/internal/http/response"
	"github.com/diagnosis/tunisia-tours/pkg/logger"
)

func (h *Handlers) ListTours(w http.ResponseWriter, r *http.Request) {
	tours, err := h.tourService.ListTours(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list tours", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch tours", response.CodeInternalError)
		return
	}
	if tours == nil {
		tours = []domain.Tour{}
	}
	writeJSON(w, http.StatusOK, tours)
}

func (h *Handlers) GetTour(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid tour ID", response.CodeInvalidInput)
		return
	}

	tour, err := h.tourService.GetTour(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to get tour", "tour_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch tour", response.CodeInternalError)
		return
	}
	if tour == nil {
		writeError(w, http.StatusNotFound, "Tour not found", response.CodeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}
