package service

import (
	"context"
	"strings"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/diagnosis/tunisia-tours/pkg/logger"
)

// TourSource records which part of the submission named the tour.
type TourSource string

const (
	SourceDirect         TourSource = "direct"
	SourceItineraryID    TourSource = "itinerary_id"
	SourceItineraryTitle TourSource = "itinerary_title"
	SourceNone           TourSource = "none"
)

// TourCatalog is the lookup surface the resolver needs. Both methods return
// nil, nil when nothing matches.
type TourCatalog interface {
	GetByID(ctx context.Context, id int64) (*domain.Tour, error)
	GetByTitle(ctx context.Context, title string) (*domain.Tour, error)
}

type Resolution struct {
	TourID *int64
	Source TourSource
}

type TourResolver struct {
	catalog TourCatalog
}

func NewTourResolver(catalog TourCatalog) *TourResolver {
	return &TourResolver{catalog: catalog}
}

// Resolve tries, in order: the top-level tourId, the first itinerary day's
// tourId, then the first itinerary day's tour title. An id only counts if the
// tour exists. Lookup errors are logged and treated as no match, so a booking
// is never refused because its tour reference could not be settled.
func (r *TourResolver) Resolve(ctx context.Context, req *domain.BookingRequest) Resolution {
	if id, ok := candidateID(req.TourID); ok {
		if r.exists(ctx, id, SourceDirect) {
			return Resolution{TourID: &id, Source: SourceDirect}
		}
	}

	days := domain.ParseDays(req.Days.Raw())
	if len(days) == 0 {
		return Resolution{Source: SourceNone}
	}
	first := days[0]

	if id, ok := candidateID(first.TourID); ok {
		if r.exists(ctx, id, SourceItineraryID) {
			return Resolution{TourID: &id, Source: SourceItineraryID}
		}
	}

	title, _ := first.Tour.Text()
	if title = strings.TrimSpace(title); title != "" {
		tour, err := r.catalog.GetByTitle(ctx, title)
		if err != nil {
			logger.WarnContext(ctx, "Tour title lookup failed", "title", title, "error", err)
		} else if tour != nil {
			id := tour.ID
			return Resolution{TourID: &id, Source: SourceItineraryTitle}
		}
	}

	return Resolution{Source: SourceNone}
}

func (r *TourResolver) exists(ctx context.Context, id int64, source TourSource) bool {
	tour, err := r.catalog.GetByID(ctx, id)
	if err != nil {
		logger.WarnContext(ctx, "Tour lookup failed", "tour_id", id, "source", source, "error", err)
		return false
	}
	if tour == nil {
		logger.DebugContext(ctx, "Tour reference does not exist", "tour_id", id, "source", source)
		return false
	}
	return true
}

// candidateID reads a positive integer id. Placeholders browsers serialize
// for empty selects ("undefined", "null") do not count.
func candidateID(f domain.Field) (int64, bool) {
	if !f.Truthy() {
		return 0, false
	}
	if s, ok := f.Text(); ok {
		switch strings.TrimSpace(s) {
		case "", "undefined", "null":
			return 0, false
		}
	}
	id, ok := f.Int()
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
