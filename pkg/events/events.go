package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/tunisia-tours/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url, clientName string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

// Close flushes pending messages before closing the connection.
func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

// NopPublisher is used when no NATS URL is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, subject string, _ interface{}) error {
	logger.DebugContext(ctx, "Event publishing disabled", "subject", subject)
	return nil
}

func (NopPublisher) Close() error { return nil }

const (
	BookingCreated = "booking.created"

	NotifyBookingSent   = "notify.booking.sent"
	NotifyBookingFailed = "notify.booking.failed"
)

type BookingCreatedEvent struct {
	BookingID     int64     `json:"booking_id"`
	TourID        *int64    `json:"tour_id"`
	TourSource    string    `json:"tour_source"`
	Type          *string   `json:"type"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	DepartureCity string    `json:"departure_city"`
	Adults        int       `json:"adults"`
	Children      int       `json:"children"`
	CreatedAt     time.Time `json:"created_at"`
}

type BookingNotificationEvent struct {
	BookingID int64     `json:"booking_id"`
	Transport string    `json:"transport"`
	MessageID string    `json:"message_id,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error,omitempty"`
	Enriched  bool      `json:"enriched"`
	At        time.Time `json:"at"`
}
