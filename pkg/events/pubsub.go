package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

const defaultPublishTimeout = 10 * time.Second

// Message attribute names carried next to the JSON envelope.
const (
	AttrEventID     = "event_id"
	AttrEventType   = "event_type"
	AttrAggregateID = "aggregate_id"
	AttrOccurredAt  = "occurred_at"
	AttrVersion     = "version"
)

type topicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// PubSubPublisher sends envelopes to a Google Cloud Pub/Sub topic and waits for the server id.
type PubSubPublisher struct {
	topic   topicPublisher
	timeout time.Duration
}

// NewPubSubPublisher wraps a topic publisher handle.
func NewPubSubPublisher(p *gcppubsub.Publisher) (*PubSubPublisher, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher is required")
	}
	return &PubSubPublisher{topic: &gcpPublisher{Publisher: p}, timeout: defaultPublishTimeout}, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, envelope Envelope) error {
	msg, err := EncodeMessage(envelope)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	result := p.topic.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish %s: %w", envelope.EventType, err)
	}
	return nil
}

// EncodeMessage renders the envelope as a Pub/Sub message.
func EncodeMessage(envelope Envelope) (*gcppubsub.Message, error) {
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			AttrEventID:     envelope.EventID,
			AttrEventType:   envelope.EventType.String(),
			AttrAggregateID: envelope.AggregateID,
			AttrOccurredAt:  envelope.OccurredAt.Format(time.RFC3339Nano),
			AttrVersion:     strconv.Itoa(envelope.Version),
		},
	}, nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
