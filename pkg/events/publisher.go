package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/noah-isme/harmony-timetable-api/pkg/config"
)

// Routing keys for timetable lifecycle events.
const (
	TypeTimetableSaved     = "timetable.saved"
	TypeTimetablePublished = "timetable.published"
	TypeTimetableArchived  = "timetable.archived"
	TypeTimetableDeleted   = "timetable.deleted"
)

// TimetableEvent is the JSON body published for lifecycle changes.
type TimetableEvent struct {
	Type        string    `json:"type"`
	TimetableID string    `json:"timetable_id"`
	Department  string    `json:"department"`
	Shift       string    `json:"shift"`
	Version     int       `json:"version"`
	Status      string    `json:"status"`
	Dissonance  int       `json:"dissonance"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher emits timetable events.
type Publisher interface {
	Publish(ctx context.Context, event TimetableEvent) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, TimetableEvent) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewAMQPPublisher dials the broker and declares a durable topic exchange.
func NewAMQPPublisher(cfg config.EventsConfig, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	p := newPublisher(ch, cfg.Exchange, cfg.PublishTimeout, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, timeout time.Duration, logger *zap.Logger) *AMQPPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, timeout: timeout, logger: logger}
}

// Publish implements Publisher. The event type is used as routing key.
func (p *AMQPPublisher) Publish(ctx context.Context, event TimetableEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	p.logger.Debug("event published", zap.String("type", event.Type), zap.String("timetable_id", event.TimetableID))
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
