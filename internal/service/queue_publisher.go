// Package service holds adapters between the booking flow and outside
// infrastructure.  The queue publisher turns booking outcomes into broker
// messages; errors are logged and returned so the flow can ignore them.
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/faylib/equipment-calendar/internal/booking"
	"github.com/faylib/equipment-calendar/internal/model"
	q "github.com/faylib/equipment-calendar/internal/queue"
)

// dialTimeout bounds how long a confirm request can wait on a dead broker.
const dialTimeout = 3 * time.Second

type sessionKey struct{}

// WithSessionID tags ctx with the booking session id so published outcomes
// can be correlated with the session that produced them.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// QueuePublisher publishes booking outcomes to RabbitMQ.  It dials per
// message: a booking dialog produces at most a handful of outcomes.
type QueuePublisher struct {
	url    string
	logger *zap.Logger
	now    func() time.Time
}

// NewQueuePublisher returns a publisher for the broker at url.
func NewQueuePublisher(url string, logger *zap.Logger) *QueuePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueuePublisher{url: url, logger: logger, now: time.Now}
}

// OutcomeEvent builds the broker payload for one booking result.
func OutcomeEvent(sessionID string, f booking.Flow, r model.BookingResult, settled time.Time) q.BookingOutcomeEvent {
	var patron string
	if f.Patron != nil {
		patron = strings.TrimSpace(f.Patron.FirstName + " " + f.Patron.LastName)
	}
	return q.BookingOutcomeEvent{
		SessionID:  sessionID,
		GroupID:    r.GroupID,
		GroupName:  r.Name,
		AssetID:    r.AssetID,
		Date:       f.Date,
		Hour:       f.Hour,
		StartTime:  booking.StartTime(f.Date, f.Hour),
		PatronName: patron,
		Success:    r.Success,
		Message:    r.Message,
		SettledAt:  settled.UTC().Format(time.RFC3339),
	}
}

// PublishOutcome implements booking.OutcomePublisher.  Messages are
// persistent and go to the booking.outcome queue through the default
// exchange.
func (p *QueuePublisher) PublishOutcome(ctx context.Context, f booking.Flow, r model.BookingResult) error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		p.logger.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		q.BookingOutcomeQueue, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	); err != nil {
		p.logger.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(OutcomeEvent(sessionID(ctx), f, r, p.now()))
	if err != nil {
		p.logger.Warn("rabbitmq: marshal event failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.BookingOutcomeQueue, false, false, pub); err != nil {
		p.logger.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}
	return nil
}
