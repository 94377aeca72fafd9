package cart

import "github.com/shopspring/decimal"

// Line is one product in the cart. Price and OriginalPrice are captured when
// the product is first added and never re-read from the catalog.
type Line struct {
	ProductID     string           `json:"productId"`
	Name          string           `json:"name"`
	Unit          string           `json:"unit,omitempty"`
	Quantity      int              `json:"quantity"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
}

// Total is price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Savings is (originalPrice - price) * quantity, zero without an original
// price. An original price below the selling price counts against the total.
func (l Line) Savings() decimal.Decimal {
	if l.OriginalPrice == nil {
		return decimal.Zero
	}
	return l.OriginalPrice.Sub(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) clone() Line {
	if l.OriginalPrice != nil {
		op := *l.OriginalPrice
		l.OriginalPrice = &op
	}
	return l
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = l.clone()
	}
	return out
}

// Totals is one consistent summary of the derived cart values.
type Totals struct {
	TotalItems           int             `json:"totalItems"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	Savings              decimal.Decimal `json:"savings"`
	DeliveryFee          decimal.Decimal `json:"deliveryFee"`
	Tax                  decimal.Decimal `json:"tax"`
	PromoCode            string          `json:"promoCode,omitempty"`
	PromoDiscount        decimal.Decimal `json:"promoDiscount"`
	GrandTotal           decimal.Decimal `json:"grandTotal"`
	AmountToFreeDelivery decimal.Decimal `json:"amountToFreeDelivery"`
}

// Snapshot is a deep copy of the cart handed to checkout.
type Snapshot struct {
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}
