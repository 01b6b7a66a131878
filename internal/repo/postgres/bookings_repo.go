package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepo interface {
	Create(ctx context.Context, in *domain.NewBooking) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context, limit, offset int) ([]domain.Booking, error)
	ListByStatus(ctx context.Context, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
}

type BookingRepoImpl struct{ pool *pgxpool.Pool }

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepoImpl { return &BookingRepoImpl{pool: pool} }

// BookingInsertCols is the positional column list for Create. Its order is
// the order of the $n arguments below.
const BookingInsertCols = `tour_id, start_date, end_date, departure_city,
adults, children, budget, currency, accommodation,
contact_details, status, days, type`

const bookingCols = `id, tour_id, start_date::text, end_date::text, departure_city,
adults, children, budget::float8, currency, accommodation,
contact_details, status, days, type, created_at`

func (r *BookingRepoImpl) Create(ctx context.Context, in *domain.NewBooking) (*domain.Booking, error) {
	const q = `INSERT INTO bookings (` + BookingInsertCols + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	RETURNING ` + bookingCols

	start, err := time.Parse(domain.DateLayout, in.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start date: %w", err)
	}
	end, err := time.Parse(domain.DateLayout, in.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end date: %w", err)
	}

	status := in.Status
	if status == "" {
		status = domain.BookingPending
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q,
		in.TourID, start, end, in.DepartureCity,
		in.Adults, in.Children, in.Budget, in.Currency, in.Accommodation,
		jsonArg(in.ContactDetails), status, jsonArg(in.Days), in.Type,
	))
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BookingRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *BookingRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.Booking, error) {
	limit, offset = clampPage(limit, offset)
	const q = `SELECT ` + bookingCols + ` FROM bookings ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *BookingRepoImpl) ListByStatus(ctx context.Context, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	limit, offset = clampPage(limit, offset)
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE status=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b        domain.Booking
		contact  []byte
		days     []byte
		bookType *string
	)
	err := row.Scan(
		&b.ID, &b.TourID, &b.StartDate, &b.EndDate, &b.DepartureCity,
		&b.Adults, &b.Children, &b.Budget, &b.Currency, &b.Accommodation,
		&contact, &b.Status, &days, &bookType, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.ContactDetails = json.RawMessage(contact)
	if days != nil {
		b.Days = json.RawMessage(days)
	}
	if bookType != nil {
		t := domain.BookingType(*bookType)
		b.Type = &t
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()
	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// jsonArg binds an empty document as SQL NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var _ BookingRepo = (*BookingRepoImpl)(nil)
