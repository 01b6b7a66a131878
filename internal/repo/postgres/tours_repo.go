package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TourRepo is the read side of the tour catalog.
type TourRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Tour, error)
	GetByTitle(ctx context.Context, title string) (*domain.Tour, error)
	List(ctx context.Context) ([]domain.Tour, error)
}

type TourRepoImpl struct{ pool *pgxpool.Pool }

func NewTourRepo(pool *pgxpool.Pool) *TourRepoImpl { return &TourRepoImpl{pool: pool} }

const tourCols = `id, title, description, duration, price::float8,
images, type, city, languages, rating::float8, accommodation,
highlights, included, "notIncluded"`

func (r *TourRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Tour, error) {
	const q = `SELECT ` + tourCols + ` FROM tours WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTour(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// GetByTitle matches the title exactly. The lowest id wins when titles repeat.
func (r *TourRepoImpl) GetByTitle(ctx context.Context, title string) (*domain.Tour, error) {
	const q = `SELECT ` + tourCols + ` FROM tours WHERE title=$1 ORDER BY id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTour(r.pool.QueryRow(ctx, q, title))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *TourRepoImpl) List(ctx context.Context) ([]domain.Tour, error) {
	const q = `SELECT ` + tourCols + ` FROM tours ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tours := []domain.Tour{}
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, *t)
	}
	return tours, rows.Err()
}

func scanTour(row pgx.Row) (*domain.Tour, error) {
	var t domain.Tour
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Duration, &t.Price,
		&t.Images, &t.Type, &t.City, &t.Languages, &t.Rating, &t.Accommodation,
		&t.Highlights, &t.Included, &t.NotIncluded,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var _ TourRepo = (*TourRepoImpl)(nil)
