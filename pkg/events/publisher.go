package events

import (
	"context"

	"go.uber.org/multierr"
)

// Publisher delivers envelopes to some transport.
type Publisher interface {
	Publish(ctx context.Context, envelope Envelope) error
}

// PublisherFunc adapts functions to the Publisher interface.
type PublisherFunc func(ctx context.Context, envelope Envelope) error

// Publish calls the underlying function.
func (fn PublisherFunc) Publish(ctx context.Context, envelope Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

// Multi fans an envelope out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, envelope Envelope) error {
	var err error
	for _, p := range m {
		if p == nil {
			continue
		}
		err = multierr.Append(err, p.Publish(ctx, envelope))
	}
	return err
}

// Nop drops every envelope.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) error { return nil }
