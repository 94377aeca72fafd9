package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/attos/attos-backend/pkg/enums"
	"github.com/attos/attos-backend/pkg/logger"
)

// ErrUnsupportedEvent tells the consumer to ack an event the handler does not care about.
var ErrUnsupportedEvent = errors.New("unsupported event type")

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// ConsumerParams configure a Pub/Sub consumer.
type ConsumerParams struct {
	Name         string
	Subscription receiver
	Handler      Handler
	Idempotency  idempotencyChecker
	Logger       *logger.Logger
}

// Consumer reads envelopes from a subscription and hands each event to Handler once.
type Consumer struct {
	name         string
	subscription receiver
	handler      Handler
	manager      idempotencyChecker
	logg         *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, errors.New("consumer name is required")
	}
	if params.Subscription == nil {
		return nil, errors.New("subscription is required")
	}
	if params.Handler == nil {
		return nil, errors.New("handler is required")
	}
	if params.Idempotency == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		name:         params.Name,
		subscription: params.Subscription,
		handler:      params.Handler,
		manager:      params.Idempotency,
		logg:         params.Logger,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID, "consumer": c.name}
	logCtx := c.logg.WithFields(ctx, fields)

	envelope, err := DecodeMessage(msg)
	if err != nil {
		c.logg.Error(logCtx, "invalid event envelope", err)
		return processResult{}
	}
	fields["event_id"] = envelope.EventID
	fields["event_type"] = envelope.EventType.String()
	fields["aggregate_id"] = envelope.AggregateID
	logCtx = c.logg.WithFields(ctx, fields)

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Warn(logCtx, "invalid event id")
		return processResult{}
	}

	already, err := c.manager.CheckAndMarkProcessed(logCtx, c.name, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := c.handler.Handle(logCtx, envelope); err != nil {
		if errors.Is(err, ErrUnsupportedEvent) {
			c.logg.Debug(logCtx, "event ignored")
			return processResult{}
		}
		c.logg.Error(logCtx, "handler error", err)
		_ = c.manager.Delete(logCtx, c.name, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "event handled")
	return processResult{}
}

// DecodeMessage rebuilds an envelope, falling back to attributes for missing fields.
func DecodeMessage(msg *gcppubsub.Message) (Envelope, error) {
	if msg == nil {
		return Envelope{}, errors.New("nil message")
	}
	var envelope Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	if envelope.EventType == "" {
		envelope.EventType = enums.EventType(strings.TrimSpace(msg.Attributes[AttrEventType]))
	}
	eventType, err := enums.ParseEventType(envelope.EventType.String())
	if err != nil {
		return Envelope{}, fmt.Errorf("event_type: %w", err)
	}
	envelope.EventType = eventType

	if strings.TrimSpace(envelope.EventID) == "" {
		envelope.EventID = strings.TrimSpace(msg.Attributes[AttrEventID])
	}
	if envelope.EventID == "" {
		return Envelope{}, errors.New("event_id missing")
	}

	if strings.TrimSpace(envelope.AggregateID) == "" {
		envelope.AggregateID = strings.TrimSpace(msg.Attributes[AttrAggregateID])
	}
	if envelope.AggregateID == "" {
		return Envelope{}, errors.New("aggregate_id missing")
	}

	if envelope.OccurredAt.IsZero() {
		if raw := strings.TrimSpace(msg.Attributes[AttrOccurredAt]); raw != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				envelope.OccurredAt = parsed
			}
		}
	}
	envelope.OccurredAt = envelope.OccurredAt.UTC()
	return envelope, nil
}
