package promo

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PricingRules hold the delivery and tax constants applied to every cart.
type PricingRules struct {
	FreeDeliveryThreshold decimal.Decimal
	FlatDeliveryFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultPricingRules: free delivery from 199, otherwise 29, tax 5%.
func DefaultPricingRules() PricingRules {
	return PricingRules{
		FreeDeliveryThreshold: decimal.NewFromInt(199),
		FlatDeliveryFee:       decimal.NewFromInt(29),
		TaxRate:               decimal.RequireFromString("0.05"),
	}
}

func (p PricingRules) Validate() error {
	if p.FreeDeliveryThreshold.IsNegative() {
		return fmt.Errorf("free delivery threshold must be non-negative")
	}
	if p.FlatDeliveryFee.IsNegative() {
		return fmt.Errorf("delivery fee must be non-negative")
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be between 0 and 1")
	}
	return nil
}

// DeliveryFee is zero at or above the threshold and the flat fee below it.
func (p PricingRules) DeliveryFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return p.FlatDeliveryFee
}

// Tax is charged on the subtotal before discounts.
func (p PricingRules) Tax(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	return subtotal.Mul(p.TaxRate).Round(2)
}

// AmountToFreeDelivery is how much more the shopper must add to stop paying the fee.
func (p PricingRules) AmountToFreeDelivery(subtotal decimal.Decimal) decimal.Decimal {
	remaining := p.FreeDeliveryThreshold.Sub(subtotal)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
