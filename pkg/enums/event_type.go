package enums

import "fmt"

// EventType names the domain events emitted by the order lifecycle.
type EventType string

const (
	EventOrderPlaced        EventType = "order.placed"
	EventOrderStageAdvanced EventType = "order.stage_advanced"
	EventOrderDelivered     EventType = "order.delivered"
)

var validEventTypes = []EventType{
	EventOrderPlaced,
	EventOrderStageAdvanced,
	EventOrderDelivered,
}

func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
