// Package eventbus moves domain events between the ledger and its observers,
// either in-process or through RabbitMQ.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foodthrift/paysmallsmall/internal/shared/domain"
)

// Envelope is the wire form of a domain event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	UserID        string          `json:"user_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Consumer handles events for the routing keys it declares.
// The routing key "#" subscribes to everything.
type Consumer interface {
	EventTypes() []string
	Handle(ctx context.Context, event *Envelope) error
}

// ConsumerFunc adapts a function into a Consumer.
type ConsumerFunc struct {
	Types []string
	Fn    func(ctx context.Context, event *Envelope) error
}

func (c ConsumerFunc) EventTypes() []string { return c.Types }

func (c ConsumerFunc) Handle(ctx context.Context, event *Envelope) error {
	return c.Fn(ctx, event)
}

// NewEnvelope wraps a domain event; the event itself becomes the payload.
func NewEnvelope(event domain.DomainEvent) (*Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.RoutingKey(), err)
	}
	meta := event.Metadata()
	return &Envelope{
		EventID:       event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		RoutingKey:    event.RoutingKey(),
		OccurredAt:    event.OccurredAt(),
		UserID:        meta.UserID,
		CorrelationID: meta.CorrelationID,
		Payload:       payload,
	}, nil
}

// DecodePayload unmarshals the payload into v.
func (e *Envelope) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// PublishEvents encodes each event and hands it to the publisher, stopping at
// the first failure.
func PublishEvents(ctx context.Context, publisher Publisher, events ...domain.DomainEvent) error {
	for _, event := range events {
		envelope, err := NewEnvelope(event)
		if err != nil {
			return err
		}
		body, err := json.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		if err := publisher.Publish(ctx, envelope.RoutingKey, body); err != nil {
			return fmt.Errorf("publish %s: %w", envelope.RoutingKey, err)
		}
	}
	return nil
}
