package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const exchangeName = "mastery.events"

// ResultPublisher publishes scoring outcomes.
type ResultPublisher interface {
	PublishScoreCompleted(ctx context.Context, ev ScoreCompleted) error
	PublishScoreFailed(ctx context.Context, ev ScoreFailed) error
	Close() error
}

// Publisher publishes events to the mastery.events topic exchange.
// When the broker URL is empty, publishing is disabled and every call
// is a logged no-op, so local runs work without a broker.
type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	enabled bool
}

// NewPublisher connects to the broker and declares the exchange.
func NewPublisher(brokerURL string) (*Publisher, error) {
	if brokerURL == "" {
		slog.Warn("broker URL is empty, event publishing is disabled")
		return &Publisher{}, nil
	}

	conn, err := amqp091.Dial(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange: %w", err)
	}

	return &Publisher{conn: conn, channel: channel, enabled: true}, nil
}

// PublishScoreCompleted publishes a completed mastery result.
func (p *Publisher) PublishScoreCompleted(ctx context.Context, ev ScoreCompleted) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	ev.EventType = RouteScoreCompleted
	return p.publish(ctx, RouteScoreCompleted, ev)
}

// PublishScoreFailed publishes a scoring failure.
func (p *Publisher) PublishScoreFailed(ctx context.Context, ev ScoreFailed) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	ev.EventType = RouteScoreFailed
	return p.publish(ctx, RouteScoreFailed, ev)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, payload any) error {
	if !p.enabled {
		slog.Debug("event publishing disabled, skipping", "routing_key", routingKey)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(pubCtx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.Debug("event published", "routing_key", routingKey, "bytes", len(body))
	return nil
}

// Close shuts down the broker connection.
func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
