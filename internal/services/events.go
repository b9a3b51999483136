package services

import (
	"context"
	"log/slog"
	"time"
)

// Product event types.
const (
	EventProductCreated  = "product.created"
	EventProductUpdated  = "product.updated"
	EventProductDeleted  = "product.deleted"
	EventProductReviewed = "product.reviewed"
)

const publishTimeout = 5 * time.Second

// EventPublisher delivers domain events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// publishEvent delivers an event best-effort. The request has already
// succeeded, so failures are only logged.
func publishEvent(ctx context.Context, pub EventPublisher, log *slog.Logger, eventType, key string, payload any) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := pub.Publish(ctx, eventType, key, payload); err != nil {
		log.Warn("failed to publish event", "type", eventType, "key", key, "error", err)
	}
}
