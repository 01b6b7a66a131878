package notify

import (
	"context"
	"sync"
	"time"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/diagnosis/tunisia-tours/pkg/logger"
)

type BookingNotifier interface {
	Notify(ctx context.Context, b domain.Booking) Result
}

// Dispatcher runs notifications in the background so the HTTP response never
// waits on mail delivery. Each run gets its own timeout and ignores the
// cancellation of the request that triggered it.
type Dispatcher struct {
	notifier BookingNotifier
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(n BookingNotifier, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{notifier: n, timeout: timeout}
}

func (d *Dispatcher) Dispatch(ctx context.Context, b domain.Booking) {
	ctx = context.WithoutCancel(ctx)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		logger.WarnContext(ctx, "Dispatcher closed, notifying inline", "booking_id", b.ID)
		d.run(ctx, b)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		d.run(ctx, b)
	}()
}

func (d *Dispatcher) run(ctx context.Context, b domain.Booking) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Notification panicked", "booking_id", b.ID, "panic", r)
		}
	}()
	d.notifier.Notify(ctx, b)
}

// Shutdown stops background dispatch and waits for in-flight notifications
// until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
