package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/diagnosis/tunisia-tours/pkg/logger"
)

// CachedResponse is what gets replayed for a repeated Idempotency-Key.
type CachedResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

// IdempotencyStore keeps the first successful response per hashed key.
// Reserve claims a key for an in-flight request and reports false when the
// key is already claimed or answered. A reserved key reads back from Get as a
// response with StatusCode 0. Get returns nil, nil on a miss.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// PendingTTL bounds how long a reservation survives a request that never
// finishes.
const PendingTTL = time.Minute

const CodeIdempotencyInProgress = "IDEMPOTENCY_IN_PROGRESS"

// IdempotencyMiddleware replays the stored response when a POST repeats an
// Idempotency-Key. A repeat that arrives while the first request is still
// running gets 409. Store failures let the request through.
func IdempotencyMiddleware(store IdempotencyStore, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			hashedKey := IdempotencyKeyHash(r.URL.Path, key)

			reserved, err := store.Reserve(r.Context(), hashedKey, PendingTTL)
			if err != nil {
				logger.WarnContext(r.Context(), "Idempotency reservation failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				existing, err := store.Get(r.Context(), hashedKey)
				if err != nil {
					logger.WarnContext(r.Context(), "Idempotency lookup failed", "error", err)
				}
				if existing != nil && existing.StatusCode != 0 {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Idempotent-Replayed", "true")
					w.WriteHeader(existing.StatusCode)
					w.Write(existing.Body)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "A request with this Idempotency-Key is still being processed",
					"code":  CodeIdempotencyInProgress,
				})
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			bg := context.WithoutCancel(r.Context())
			if recorder.statusCode >= 200 && recorder.statusCode < 300 {
				resp := CachedResponse{StatusCode: recorder.statusCode, Body: recorder.body}
				if err := store.Set(bg, hashedKey, resp, ttl); err != nil {
					logger.WarnContext(r.Context(), "Idempotency store failed", "error", err)
				}
				return
			}
			// failures stay retryable
			if err := store.Release(bg, hashedKey); err != nil {
				logger.WarnContext(r.Context(), "Idempotency release failed", "error", err)
			}
		})
	}
}

// IdempotencyKeyHash scopes a client key to the route so the same key on
// different endpoints never collides.
func IdempotencyKeyHash(path, key string) string {
	sum := sha256.Sum256([]byte(path + "\x00" + key))
	return fmt.Sprintf("idempotency:%x", sum)
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(body []byte) (int, error) {
	r.body = append(r.body, body...)
	return r.ResponseWriter.Write(body)
}
