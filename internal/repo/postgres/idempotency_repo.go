package postgres

import (
	"context"
	"errors"
	"time"

	mw "github.com/diagnosis/tunisia-tours/pkg/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepo stores replayable responses in Postgres. It backs the
// Idempotency-Key middleware when Redis is not configured.
type IdempotencyRepo interface {
	mw.IdempotencyStore
	CleanupExpired(ctx context.Context) (int64, error)
}

type IdempotencyRepoImpl struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepo(pool *pgxpool.Pool) *IdempotencyRepoImpl {
	return &IdempotencyRepoImpl{pool: pool}
}

// Get returns nil when the key is unknown or expired. Keys arrive hashed.
func (r *IdempotencyRepoImpl) Get(ctx context.Context, key string) (*mw.CachedResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `SELECT status_code, body FROM idempotency_responses WHERE key_hash=$1 AND expires_at > now()`
	var (
		status int
		body   string
	)
	err := r.pool.QueryRow(ctx, q, key).Scan(&status, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mw.CachedResponse{StatusCode: status, Body: []byte(body)}, nil
}

// Reserve inserts a pending row (status_code 0). An expired row for the same
// key is taken over; a live one makes Reserve report false.
func (r *IdempotencyRepoImpl) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `
		INSERT INTO idempotency_responses (key_hash, status_code, body, expires_at)
		VALUES ($1, 0, '', $2)
		ON CONFLICT (key_hash) DO UPDATE SET
			status_code = 0,
			body = '',
			expires_at = EXCLUDED.expires_at
		WHERE idempotency_responses.expires_at <= now()`
	result, err := r.pool.Exec(ctx, q, key, time.Now().Add(ttl))
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// Set stores the final response over the reservation.
func (r *IdempotencyRepoImpl) Set(ctx context.Context, key string, resp mw.CachedResponse, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `
		INSERT INTO idempotency_responses (key_hash, status_code, body, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key_hash) DO UPDATE SET
			status_code = EXCLUDED.status_code,
			body = EXCLUDED.body,
			expires_at = EXCLUDED.expires_at`
	_, err := r.pool.Exec(ctx, q, key, resp.StatusCode, string(resp.Body), time.Now().Add(ttl))
	return err
}

// Release drops a reservation so the key can be retried. Stored responses
// are left alone.
func (r *IdempotencyRepoImpl) Release(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, `DELETE FROM idempotency_responses WHERE key_hash=$1 AND status_code=0`, key)
	return err
}

func (r *IdempotencyRepoImpl) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, `DELETE FROM idempotency_responses WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

var _ IdempotencyRepo = (*IdempotencyRepoImpl)(nil)
