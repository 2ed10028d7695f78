// Package events publishes payment domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"portal-service/internal/config"
	"portal-service/internal/domain/payment"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	RoutingKeyPaymentSucceeded = "payment.succeeded"
	EventTypePaymentSucceeded  = "payment.succeeded"

	exchangeKindTopic = "topic"
	contentTypeJSON   = "application/json"
)

// PaymentSucceeded is the wire payload for RoutingKeyPaymentSucceeded.
type PaymentSucceeded struct {
	EventID         uuid.UUID `json:"event_id"`
	EventType       string    `json:"event_type"`
	OccurredAt      time.Time `json:"occurred_at"`
	PaymentID       uuid.UUID `json:"payment_id"`
	ProjectID       uuid.UUID `json:"project_id"`
	ClientID        uuid.UUID `json:"client_id"`
	GatewayIntentID string    `json:"gateway_intent_id"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	PaymentType     string    `json:"payment_type"`
}

// Publisher sends events on a durable topic exchange. A nil *Publisher is
// valid and drops every event, which is how an unconfigured broker behaves.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
	log      zerolog.Logger
}

// NewPublisher returns nil without error when no broker URL is configured.
func NewPublisher(cfg config.MessagingConfig, log zerolog.Logger) (*Publisher, error) {
	if cfg.RabbitMQURL == "" {
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Exchange,      // name
		exchangeKindTopic, // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log = log.With().Str("component", "events").Str("exchange", cfg.Exchange).Logger()
	log.Info().Msg("RabbitMQ publisher initialized")

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
		log:      log,
	}, nil
}

func NewPaymentSucceeded(p *payment.Payment) PaymentSucceeded {
	return PaymentSucceeded{
		EventID:         uuid.New(),
		EventType:       EventTypePaymentSucceeded,
		OccurredAt:      time.Now().UTC(),
		PaymentID:       p.ID,
		ProjectID:       p.ProjectID,
		ClientID:        p.ClientID,
		GatewayIntentID: p.IntentID(),
		Amount:          p.Amount,
		Currency:        p.Currency,
		PaymentType:     string(p.Type),
	}
}

func (p *Publisher) PublishPaymentSucceeded(ctx context.Context, pay *payment.Payment) error {
	if p == nil || pay == nil {
		return nil
	}

	evt := NewPaymentSucceeded(pay)
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,                 // exchange
		RoutingKeyPaymentSucceeded, // routing key
		false,                      // mandatory
		false,                      // immediate
		amqp.Publishing{
			ContentType:  contentTypeJSON,
			DeliveryMode: amqp.Persistent,
			MessageId:    evt.EventID.String(),
			Timestamp:    evt.OccurredAt,
			Type:         evt.EventType,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", evt.EventType, err)
	}

	p.log.Debug().Str("payment_id", pay.ID.String()).Msg("payment event published")
	return nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
