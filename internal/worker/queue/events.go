package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/models"
)

const (
	RoutingKeyReviewRequested   = "review.requested"
	RoutingKeyAssignmentDecided = "assignment.decided"
	RoutingKeyWorkerBanned      = "worker.banned"
	RoutingKeyReviewCompleted   = "review.completed"
)

// EventPublisher emits review events to the message broker.
type EventPublisher interface {
	PublishReviewRequested(ctx context.Context, event models.ReviewRequestedEvent) error
	PublishAssignmentDecided(ctx context.Context, event models.AssignmentDecidedEvent) error
	PublishWorkerBanned(ctx context.Context, event models.WorkerBannedEvent) error
	PublishReviewCompleted(ctx context.Context, event models.ReviewCompletedEvent) error
}

type eventPublisher struct {
	publisher RabbitMQPublisher
	exchange  string
	logger    zerolog.Logger
}

func NewEventPublisher(publisher RabbitMQPublisher, exchange string, logger zerolog.Logger) EventPublisher {
	return &eventPublisher{
		publisher: publisher,
		exchange:  exchange,
		logger:    logger,
	}
}

func (p *eventPublisher) PublishReviewRequested(ctx context.Context, event models.ReviewRequestedEvent) error {
	return p.publish(ctx, RoutingKeyReviewRequested, event)
}

func (p *eventPublisher) PublishAssignmentDecided(ctx context.Context, event models.AssignmentDecidedEvent) error {
	return p.publish(ctx, RoutingKeyAssignmentDecided, event)
}

func (p *eventPublisher) PublishWorkerBanned(ctx context.Context, event models.WorkerBannedEvent) error {
	return p.publish(ctx, RoutingKeyWorkerBanned, event)
}

func (p *eventPublisher) PublishReviewCompleted(ctx context.Context, event models.ReviewCompletedEvent) error {
	return p.publish(ctx, RoutingKeyReviewCompleted, event)
}

func (p *eventPublisher) publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", routingKey, err)
	}

	if err := p.publisher.Publish(ctx, p.exchange, routingKey, body); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", routingKey, err)
	}

	p.logger.Debug().
		Str("exchange", p.exchange).
		Str("routing_key", routingKey).
		Msg("Event published")

	return nil
}

// NopEventPublisher drops every event. Used by the one-shot CLI review.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishReviewRequested(context.Context, models.ReviewRequestedEvent) error {
	return nil
}

func (NopEventPublisher) PublishAssignmentDecided(context.Context, models.AssignmentDecidedEvent) error {
	return nil
}

func (NopEventPublisher) PublishWorkerBanned(context.Context, models.WorkerBannedEvent) error {
	return nil
}

func (NopEventPublisher) PublishReviewCompleted(context.Context, models.ReviewCompletedEvent) error {
	return nil
}
