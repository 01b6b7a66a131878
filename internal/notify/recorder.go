package notify

import (
	"context"
	"time"

	"github.com/diagnosis/tunisia-tours/pkg/events"
	"github.com/diagnosis/tunisia-tours/pkg/logger"
	"github.com/diagnosis/tunisia-tours/pkg/metrics"
)

// Recorder receives the outcome of every notification attempt.
type Recorder interface {
	Record(ctx context.Context, res Result)
}

type LogRecorder struct{}

func (LogRecorder) Record(ctx context.Context, res Result) {
	if res.Sent() {
		logger.InfoContext(ctx, "Operator notified",
			"transport", res.Transport,
			"message_id", res.MessageID,
			"enriched", res.Enriched,
			"duration", res.Duration,
		)
		return
	}
	logger.ErrorContext(ctx, "Operator notification failed",
		"transport", res.Transport,
		"stage", res.Stage,
		"enriched", res.Enriched,
		"error", res.Err,
	)
}

type MetricsRecorder struct{}

func (MetricsRecorder) Record(_ context.Context, res Result) {
	outcome := "sent"
	if !res.Sent() {
		outcome = "failed_" + string(res.Stage)
	}
	metrics.Notifications.WithLabelValues(outcome).Inc()
	metrics.NotificationDuration.Observe(res.Duration.Seconds())
}

// EventRecorder publishes notify.booking.sent or notify.booking.failed.
type EventRecorder struct {
	Bus events.Publisher
}

func (r EventRecorder) Record(ctx context.Context, res Result) {
	evt := events.BookingNotificationEvent{
		BookingID: res.BookingID,
		Transport: res.Transport,
		MessageID: res.MessageID,
		Enriched:  res.Enriched,
		At:        time.Now().UTC(),
	}
	subject := events.NotifyBookingSent
	if !res.Sent() {
		subject = events.NotifyBookingFailed
		evt.Stage = string(res.Stage)
		if res.Err != nil {
			evt.Error = res.Err.Error()
		}
	}
	if err := r.Bus.Publish(ctx, subject, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish notification event", "subject", subject, "error", err)
	}
}

type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, res Result) {
	for _, r := range m {
		r.Record(ctx, res)
	}
}
