package enums

import "fmt"

// DeliveryStage is the fine-grained progress of an order. Stages only move forward.
type DeliveryStage string

const (
	DeliveryStageOrderPlaced DeliveryStage = "order_placed"
	DeliveryStagePreparing   DeliveryStage = "preparing"
	DeliveryStagePickedUp    DeliveryStage = "picked_up"
	DeliveryStageOnTheWay    DeliveryStage = "on_the_way"
	DeliveryStageDelivered   DeliveryStage = "delivered"
)

var deliveryStageSequence = []DeliveryStage{
	DeliveryStageOrderPlaced,
	DeliveryStagePreparing,
	DeliveryStagePickedUp,
	DeliveryStageOnTheWay,
	DeliveryStageDelivered,
}

// DeliveryStages returns the stages in progression order.
func DeliveryStages() []DeliveryStage {
	out := make([]DeliveryStage, len(deliveryStageSequence))
	copy(out, deliveryStageSequence)
	return out
}

// String implements fmt.Stringer.
func (s DeliveryStage) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DeliveryStage.
func (s DeliveryStage) IsValid() bool {
	return s.Index() >= 0
}

// Index returns the position of the stage in the progression, or -1.
func (s DeliveryStage) Index() int {
	for i, candidate := range deliveryStageSequence {
		if candidate == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no further stage follows.
func (s DeliveryStage) IsTerminal() bool {
	return s == DeliveryStageDelivered
}

// Next returns the following stage. ok is false for the terminal stage and unknown values.
func (s DeliveryStage) Next() (DeliveryStage, bool) {
	idx := s.Index()
	if idx < 0 || idx+1 >= len(deliveryStageSequence) {
		return s, false
	}
	return deliveryStageSequence[idx+1], true
}

// Status maps the stage onto the coarse customer-facing status.
func (s DeliveryStage) Status() OrderStatus {
	switch s {
	case DeliveryStageOnTheWay:
		return OrderStatusOutForDelivery
	case DeliveryStageDelivered:
		return OrderStatusDelivered
	default:
		return OrderStatusConfirmed
	}
}

// ParseDeliveryStage converts raw input into a DeliveryStage.
func ParseDeliveryStage(value string) (DeliveryStage, error) {
	for _, candidate := range deliveryStageSequence {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery stage %q", value)
}
