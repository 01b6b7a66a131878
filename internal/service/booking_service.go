package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/diagnosis/tunisia-tours/internal/repo/postgres"
	"github.com/diagnosis/tunisia-tours/pkg/events"
	"github.com/diagnosis/tunisia-tours/pkg/logger"
	"github.com/diagnosis/tunisia-tours/pkg/metrics"
)

type BookingService interface {
	CreateBooking(ctx context.Context, req *domain.BookingRequest) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ListBookings(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
}

// Dispatcher hands a stored booking to the operator notification path. It
// must not block the caller on delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, b domain.Booking)
}

type bookingService struct {
	bookings postgres.BookingRepo
	resolver *TourResolver
	notifier Dispatcher
	eventBus events.Publisher
}

func NewBookingService(
	bookings postgres.BookingRepo,
	tours TourCatalog,
	notifier Dispatcher,
	eventBus events.Publisher,
) BookingService {
	return &bookingService{
		bookings: bookings,
		resolver: NewTourResolver(tours),
		notifier: notifier,
		eventBus: eventBus,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, req *domain.BookingRequest) (*domain.Booking, error) {
	in, err := NormalizeBooking(req)
	if err != nil {
		metrics.BookingsRejected.WithLabelValues("validation").Inc()
		logger.WarnContext(ctx, "Booking submission rejected", "error", err)
		return nil, err
	}

	if issues := domain.ParseContactDetails(in.ContactDetails).Issues(); len(issues) > 0 {
		logger.WarnContext(ctx, "Booking contact details look incomplete", "issues", issues)
	}

	res := s.resolver.Resolve(ctx, req)
	in.TourID = res.TourID

	booking, err := s.bookings.Create(ctx, in)
	if err != nil {
		metrics.BookingsRejected.WithLabelValues("persistence").Inc()
		logger.ErrorContext(ctx, "Failed to store booking", "error", err)
		return nil, &domain.PersistenceError{Op: "create booking", Err: err}
	}

	ctx = logger.WithBookingID(ctx, booking.ID)
	metrics.BookingsCreated.WithLabelValues(string(res.Source)).Inc()
	logger.InfoContext(ctx, "Booking created",
		"tour_id", booking.TourID,
		"tour_source", res.Source,
		"start_date", booking.StartDate,
		"end_date", booking.EndDate,
	)

	var bookingType *string
	if booking.Type != nil {
		t := string(*booking.Type)
		bookingType = &t
	}
	event := events.BookingCreatedEvent{
		BookingID:     booking.ID,
		TourID:        booking.TourID,
		TourSource:    string(res.Source),
		Type:          bookingType,
		StartDate:     booking.StartDate,
		EndDate:       booking.EndDate,
		DepartureCity: booking.DepartureCity,
		Adults:        booking.Adults,
		Children:      booking.Children,
		CreatedAt:     booking.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.BookingCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking created event", "error", err)
	}

	s.notifier.Dispatch(ctx, *booking)

	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (s *bookingService) ListBookings(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	var (
		list []domain.Booking
		err  error
	)
	if status != nil {
		list, err = s.bookings.ListByStatus(ctx, *status, limit, offset)
	} else {
		list, err = s.bookings.List(ctx, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return list, nil
}
