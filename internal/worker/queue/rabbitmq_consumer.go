package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/models"
)

// DefaultRequester is recorded on review requests that do not name a requester.
const DefaultRequester = "queue"

// ReviewDelivery is one review request taken off the queue.
type ReviewDelivery struct {
	Request models.ReviewRequest
	// RequestedAt is the publisher timestamp, or the delivery time when absent.
	RequestedAt time.Time
	Redelivered bool
	// DecodeErr is set when the body is not a review request. Such deliveries
	// can never succeed and should be acked without running a review.
	DecodeErr error

	Ack     func() error
	Requeue func() error
}

// ReviewRequestConsumer streams review requests from the broker.
type ReviewRequestConsumer interface {
	Consume(ctx context.Context) (<-chan ReviewDelivery, error)
	QueueLength() (int, error)
	Close() error
}

type reviewRequestConsumer struct {
	channel     *amqp.Channel
	queue       string
	consumerTag string
	prefetch    int
	logger      zerolog.Logger
}

func NewReviewRequestConsumer(channel *amqp.Channel, queue, consumerTag string, prefetch int, logger zerolog.Logger) ReviewRequestConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	return &reviewRequestConsumer{
		channel:     channel,
		queue:       queue,
		consumerTag: consumerTag,
		prefetch:    prefetch,
		logger:      logger,
	}
}

func (c *reviewRequestConsumer) Consume(ctx context.Context) (<-chan ReviewDelivery, error) {
	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queue,       // queue
		c.consumerTag, // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s: %w", c.queue, err)
	}

	output := make(chan ReviewDelivery)

	go func() {
		defer close(output)

		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Msg("Stopping review request consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Str("queue", c.queue).Msg("Review request channel closed")
					return
				}

				delivery := toReviewDelivery(msg)
				if delivery.DecodeErr != nil {
					c.logger.Warn().
						Err(delivery.DecodeErr).
						Uint64("delivery_tag", msg.DeliveryTag).
						Msg("Undecodable review request")
				}

				select {
				case output <- delivery:
				case <-ctx.Done():
					if err := delivery.Requeue(); err != nil {
						c.logger.Error().Err(err).Msg("Failed to requeue review request on shutdown")
					}
					return
				}
			}
		}
	}()

	c.logger.Info().
		Str("queue", c.queue).
		Str("consumer_tag", c.consumerTag).
		Int("prefetch", c.prefetch).
		Msg("Review request consumer started")

	return output, nil
}

func toReviewDelivery(msg amqp.Delivery) ReviewDelivery {
	delivery := ReviewDelivery{
		RequestedAt: msg.Timestamp,
		Redelivered: msg.Redelivered,
		Ack:         func() error { return msg.Ack(false) },
		Requeue:     func() error { return msg.Nack(false, true) },
	}
	if delivery.RequestedAt.IsZero() {
		delivery.RequestedAt = time.Now()
	}

	event, err := DecodeReviewRequest(msg.Body)
	if err != nil {
		delivery.DecodeErr = err
		return delivery
	}

	delivery.Request = event.ReviewRequest
	if event.Timestamp > 0 {
		delivery.RequestedAt = time.Unix(event.Timestamp, 0)
	}
	return delivery
}

// DecodeReviewRequest parses a review.requested message body.
func DecodeReviewRequest(body []byte) (models.ReviewRequestedEvent, error) {
	var event models.ReviewRequestedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return models.ReviewRequestedEvent{}, fmt.Errorf("failed to decode review request: %w", err)
	}

	event.RequestedBy = strings.TrimSpace(event.RequestedBy)
	if event.RequestedBy == "" {
		event.RequestedBy = DefaultRequester
	}
	return event, nil
}

func (c *reviewRequestConsumer) QueueLength() (int, error) {
	q, err := c.channel.QueueDeclarePassive(c.queue, true, false, false, false, nil)
	if err != nil {
		return 0, err
	}
	return q.Messages, nil
}

func (c *reviewRequestConsumer) Close() error {
	if c.channel == nil {
		return nil
	}
	if err := c.channel.Cancel(c.consumerTag, false); err != nil {
		return fmt.Errorf("failed to cancel consumer %s: %w", c.consumerTag, err)
	}
	c.logger.Info().Str("consumer_tag", c.consumerTag).Msg("Review request consumer closed")
	return nil
}
