package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"

	"github.com/edulytic/mastery-service/internal/mastery"
)

const (
	queueName     = "mastery-score-requests"
	prefetchCount = 10
)

// MasteryScorer runs the inference pipeline for one request.
type MasteryScorer interface {
	Score(ctx context.Context, interactions []mastery.Interaction) (map[string]float64, error)
}

// Consumer consumes score requests from the broker, runs the pipeline
// and publishes the outcome. Like the publisher it degrades to a no-op
// when no broker URL is configured.
type Consumer struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	scorer    MasteryScorer
	publisher ResultPublisher
	enabled   bool
}

// NewConsumer connects to the broker and binds the score-request queue.
func NewConsumer(brokerURL string, scorer MasteryScorer, publisher ResultPublisher) (*Consumer, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if brokerURL == "" {
		slog.Warn("broker URL is empty, event consumption is disabled")
		return &Consumer{scorer: scorer, publisher: publisher}, nil
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

	if err := channel.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange: %w", err)
	}

	queue, err := channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, RouteScoreRequested, exchangeName, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("binding queue: %w", err)
	}

	return &Consumer{
		conn:      conn,
		channel:   channel,
		scorer:    scorer,
		publisher: publisher,
		enabled:   true,
	}, nil
}

// Start begins consuming until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if !c.enabled {
		slog.Info("event consumption is disabled")
		return nil
	}

	if err := c.channel.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("setting QoS: %w", err)
	}

	deliveries, err := c.channel.Consume(
		queueName,
		"mastery-service", // consumer tag
		false,             // auto-ack
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("starting consumer: %w", err)
	}

	slog.Info("consuming score requests", "queue", queueName)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					slog.Warn("delivery channel closed")
					return
				}
				if err := c.process(ctx, d.Body); err != nil {
					slog.Error("score request failed", "error", err, "message_id", d.MessageId)
				}
				// Failures are reported as score.failed events, so the
				// message is always acked to avoid poison loops.
				if err := d.Ack(false); err != nil {
					slog.Error("ack failed", "error", err)
				}
			}
		}
	}()
	return nil
}

// process validates, scores and publishes the outcome for one message.
func (c *Consumer) process(ctx context.Context, body []byte) error {
	if err := ValidateScoreRequested(body); err != nil {
		c.reportFailure(ctx, ScoreRequested{}, err)
		return err
	}

	var req ScoreRequested
	if err := json.Unmarshal(body, &req); err != nil {
		c.reportFailure(ctx, req, err)
		return fmt.Errorf("decode score request: %w", err)
	}

	slog.Info("processing score request",
		"event_id", req.EventID,
		"user_id", req.UserID,
		"interactions", len(req.Interactions),
	)

	scores, err := c.scorer.Score(ctx, req.Interactions)
	if err != nil {
		c.reportFailure(ctx, req, err)
		return err
	}

	completed := ScoreCompleted{
		SourceEventID:     req.EventID,
		UserID:            req.UserID,
		MasteryScores:     scores,
		TotalSkills:       len(scores),
		TotalInteractions: len(req.Interactions),
	}
	if c.publisher != nil {
		if err := c.publisher.PublishScoreCompleted(ctx, completed); err != nil {
			return fmt.Errorf("publish result: %w", err)
		}
	}

	slog.Info("score request completed", "event_id", req.EventID, "user_id", req.UserID, "skills", len(scores))
	return nil
}

func (c *Consumer) reportFailure(ctx context.Context, req ScoreRequested, cause error) {
	if c.publisher == nil {
		return
	}
	failed := ScoreFailed{
		SourceEventID: req.EventID,
		UserID:        req.UserID,
		Reason:        cause.Error(),
	}
	if err := c.publisher.PublishScoreFailed(ctx, failed); err != nil {
		slog.Error("failed to publish score failure", "error", err)
	}
}

// Close shuts down the broker connection.
func (c *Consumer) Close() error {
	if !c.enabled {
		return nil
	}
	var errs []error
	if err := c.channel.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
