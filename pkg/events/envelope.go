package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/attos/attos-backend/pkg/enums"
)

// EnvelopeVersion is bumped when the envelope shape changes.
const EnvelopeVersion = 1

// Envelope is the stable wire shape of every domain event.
type Envelope struct {
	EventID     string          `json:"eventId"`
	EventType   enums.EventType `json:"eventType"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Version     int             `json:"version"`
	Data        json.RawMessage `json:"data"`
}

// NewEnvelope encodes data and stamps a time-ordered event id.
func NewEnvelope(eventType enums.EventType, aggregateID string, occurredAt time.Time, data any) (Envelope, error) {
	if !eventType.IsValid() {
		return Envelope{}, fmt.Errorf("unknown event type %q", eventType)
	}
	if aggregateID == "" {
		return Envelope{}, errors.New("aggregate id is required")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Envelope{}, fmt.Errorf("event id: %w", err)
	}
	return Envelope{
		EventID:     id.String(),
		EventType:   eventType,
		AggregateID: aggregateID,
		OccurredAt:  occurredAt.UTC(),
		Version:     EnvelopeVersion,
		Data:        raw,
	}, nil
}

// Decode unmarshals the payload into dst.
func (e Envelope) Decode(dst any) error {
	if len(e.Data) == 0 {
		return errors.New("envelope has no data")
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return nil
}
