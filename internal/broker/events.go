package broker

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// EventPublisher publishes storefront domain events. A nil publisher is
// valid and drops everything, so event wiring stays optional.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderSubmitted publishes an OrderSubmitted event keyed by order id.
func (ep *EventPublisher) PublishOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error {
	if ep == nil || ep.producer == nil {
		return nil
	}
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}
