package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/attos/attos-backend/pkg/enums"
)

// Handler consumes envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope Envelope) error

// Handle calls the underlying function.
func (fn HandlerFunc) Handle(ctx context.Context, envelope Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

// Bus dispatches envelopes to in-process handlers synchronously, in
// subscription order. A handler subscribed with an empty type sees every event.
type Bus struct {
	mu       sync.RWMutex
	handlers map[enums.EventType][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[enums.EventType][]Handler)}
}

// Subscribe registers h for eventType.
func (b *Bus) Subscribe(eventType enums.EventType, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish runs every matching handler; one failing handler does not stop the rest.
func (b *Bus) Publish(ctx context.Context, envelope Envelope) error {
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.handlers[envelope.EventType])+len(b.handlers[""]))
	targets = append(targets, b.handlers[envelope.EventType]...)
	targets = append(targets, b.handlers[""]...)
	b.mu.RUnlock()

	var err error
	for _, h := range targets {
		if hErr := h.Handle(ctx, envelope); hErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s handler: %w", envelope.EventType, hErr))
		}
	}
	return err
}
