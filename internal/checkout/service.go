package checkout

import (
	"context"
	"fmt"

	"github.com/attos/attos-backend/internal/cart"
	"github.com/attos/attos-backend/internal/orders"
	pkgerrors "github.com/attos/attos-backend/pkg/errors"
	"github.com/attos/attos-backend/pkg/logger"
)

// MsgEmptyCart is returned when checkout is attempted with nothing in the cart.
const MsgEmptyCart = "cart is empty"

type cartSession interface {
	Checkout(ctx context.Context, place func(cart.Snapshot) error) error
}

type orderPlacer interface {
	PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (orders.Order, error)
}

// Service executes checkout orchestration.
type Service interface {
	PlaceOrder(ctx context.Context, input Input) (orders.Order, error)
}

// Input captures the buyer's choices at checkout.
type Input struct {
	Address       string
	PaymentMethod string
}

type service struct {
	cart   cartSession
	orders orderPlacer
	logg   *logger.Logger
}

// NewService builds the checkout service.
func NewService(cartSvc cartSession, orderSvc orderPlacer, logg *logger.Logger) (Service, error) {
	if cartSvc == nil {
		return nil, fmt.Errorf("cart required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order manager required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{cart: cartSvc, orders: orderSvc, logg: logg}, nil
}

// PlaceOrder snapshots the cart, records the order and clears the cart as one
// cart operation. The cart is left untouched when the order is rejected.
func (s *service) PlaceOrder(ctx context.Context, input Input) (orders.Order, error) {
	address, err := normalizeAddress(input.Address)
	if err != nil {
		return orders.Order{}, err
	}
	method, err := parsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return orders.Order{}, err
	}

	var order orders.Order
	err = s.cart.Checkout(ctx, func(snapshot cart.Snapshot) error {
		if len(snapshot.Lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, MsgEmptyCart)
		}
		placed, err := s.orders.PlaceOrder(ctx, orders.PlaceOrderInput{
			Lines:         snapshot.Lines,
			Totals:        snapshot.Totals,
			Address:       address,
			PaymentMethod: method,
		})
		if err != nil {
			return err
		}
		order = placed
		return nil
	})
	if err != nil {
		return orders.Order{}, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID), "checkout completed")
	return order, nil
}
