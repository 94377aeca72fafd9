package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/attos/attos-backend/internal/cart"
	"github.com/attos/attos-backend/pkg/enums"
)

// Order is an immutable record of a placed cart plus its delivery progress.
// Only the stage fields change after placement.
type Order struct {
	ID                string              `json:"id"`
	Items             []cart.Line         `json:"items"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	DeliveryFee       decimal.Decimal     `json:"deliveryFee"`
	Tax               decimal.Decimal     `json:"tax"`
	Discount          decimal.Decimal     `json:"discount"`
	Total             decimal.Decimal     `json:"total"`
	PromoCode         string              `json:"promoCode,omitempty"`
	PaymentMethod     enums.PaymentMethod `json:"paymentMethod"`
	Address           string              `json:"address"`
	CreatedAt         time.Time           `json:"createdAt"`
	Status            enums.OrderStatus   `json:"status"`
	DeliveryStage     enums.DeliveryStage `json:"deliveryStage"`
	StageEnteredAt    time.Time           `json:"stageEnteredAt"`
	EstimatedDelivery time.Time           `json:"estimatedDelivery"`
	DeliveredAt       *time.Time          `json:"deliveredAt,omitempty"`
}

// ItemCount sums the quantities of every item.
func (o Order) ItemCount() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

func (o Order) clone() Order {
	items := make([]cart.Line, len(o.Items))
	for i, item := range o.Items {
		if item.OriginalPrice != nil {
			op := *item.OriginalPrice
			item.OriginalPrice = &op
		}
		items[i] = item
	}
	o.Items = items
	if o.DeliveredAt != nil {
		at := *o.DeliveredAt
		o.DeliveredAt = &at
	}
	return o
}

// PlaceOrderInput carries the cart snapshot and the buyer's checkout choices.
type PlaceOrderInput struct {
	Lines         []cart.Line
	Totals        cart.Totals
	Address       string
	PaymentMethod enums.PaymentMethod
}

// PlacedItem is the per-product quantity carried on order.placed events.
type PlacedItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderPlacedEvent is the payload of order.placed.
type OrderPlacedEvent struct {
	OrderID       string              `json:"orderId"`
	Items         []PlacedItem        `json:"items"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	PlacedAt      time.Time           `json:"placedAt"`
}

// StageAdvancedEvent is the payload of order.stage_advanced and order.delivered.
type StageAdvancedEvent struct {
	OrderID string              `json:"orderId"`
	From    enums.DeliveryStage `json:"from"`
	To      enums.DeliveryStage `json:"to"`
	Status  enums.OrderStatus   `json:"status"`
	At      time.Time           `json:"at"`
}

func placedEvent(o Order) OrderPlacedEvent {
	items := make([]PlacedItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, PlacedItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return OrderPlacedEvent{
		OrderID:       o.ID,
		Items:         items,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		PlacedAt:      o.CreatedAt,
	}
}
