package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attos/attos-backend/internal/cart"
	"github.com/attos/attos-backend/internal/catalog"
	"github.com/attos/attos-backend/internal/orders"
	"github.com/attos/attos-backend/internal/promo"
	"github.com/attos/attos-backend/pkg/enums"
	pkgerrors "github.com/attos/attos-backend/pkg/errors"
)

type nopPersister struct{}

func (nopPersister) Enqueue(string, []byte) {}

type stubOrderPlacer struct {
	calls int
	input orders.PlaceOrderInput
	err   error
}

func (s *stubOrderPlacer) PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (orders.Order, error) {
	s.calls++
	s.input = input
	if s.err != nil {
		return orders.Order{}, s.err
	}
	return orders.Order{ID: "order-1", Items: input.Lines, Total: input.Totals.GrandTotal, PaymentMethod: input.PaymentMethod}, nil
}

func newCart(t *testing.T) *cart.Manager {
	t.Helper()
	evaluator, err := promo.NewEvaluator(promo.Rule{Code: "ATTOS10", Fraction: decimal.RequireFromString("0.10")})
	require.NoError(t, err)
	m, err := cart.NewManager(cart.ManagerParams{
		Pricing:   promo.DefaultPricingRules(),
		Promos:    evaluator,
		Persister: nopPersister{},
	})
	require.NoError(t, err)
	return m
}

func apples() catalog.Product {
	return catalog.Product{ID: "1", Name: "Fresh Apples", Unit: "1 kg", Price: decimal.NewFromInt(129), InStock: true}
}

func TestPlaceOrderClearsCart(t *testing.T) {
	ctx := context.Background()
	c := newCart(t)
	c.AddItem(ctx, apples(), 2)
	_, err := c.ApplyPromo(ctx, "ATTOS10")
	require.NoError(t, err)
	placer := &stubOrderPlacer{}

	svc, err := NewService(c, placer, nil)
	require.NoError(t, err)

	order, err := svc.PlaceOrder(ctx, Input{Address: "  12  MG Road ", PaymentMethod: "UPI"})
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, 1, placer.calls)
	assert.Equal(t, "12 MG Road", placer.input.Address)
	assert.Equal(t, enums.PaymentMethodUPI, placer.input.PaymentMethod)
	assert.Equal(t, "ATTOS10", placer.input.Totals.PromoCode)
	require.Len(t, placer.input.Lines, 1)
	assert.Equal(t, 2, placer.input.Lines[0].Quantity)

	assert.Empty(t, c.Lines())
	assert.Empty(t, c.Totals().PromoCode)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	placer := &stubOrderPlacer{}
	svc, err := NewService(newCart(t), placer, nil)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), Input{Address: "12 MG Road"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, MsgEmptyCart, typed.Message())
	assert.Zero(t, placer.calls)
}

func TestPlaceOrderDefaultsToCashOnDelivery(t *testing.T) {
	ctx := context.Background()
	c := newCart(t)
	c.AddItem(ctx, apples(), 1)
	placer := &stubOrderPlacer{}
	svc, err := NewService(c, placer, nil)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, Input{Address: "12 MG Road"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodCOD, placer.input.PaymentMethod)
}

func TestPlaceOrderRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	c := newCart(t)
	c.AddItem(ctx, apples(), 1)
	placer := &stubOrderPlacer{}
	svc, err := NewService(c, placer, nil)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, Input{Address: " ", PaymentMethod: "cod"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.PlaceOrder(ctx, Input{Address: "12 MG Road", PaymentMethod: "barter"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	assert.Zero(t, placer.calls)
	assert.Len(t, c.Lines(), 1)
}

func TestPlaceOrderKeepsCartWhenOrderFails(t *testing.T) {
	ctx := context.Background()
	c := newCart(t)
	c.AddItem(ctx, apples(), 1)
	placer := &stubOrderPlacer{err: errors.New("boom")}
	svc, err := NewService(c, placer, nil)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, Input{Address: "12 MG Road"})
	require.Error(t, err)
	assert.Len(t, c.Lines(), 1)
}

func TestPlaceOrderWithLifecycleManager(t *testing.T) {
	ctx := context.Background()
	c := newCart(t)
	c.AddItem(ctx, apples(), 2)

	manager, err := orders.NewManager(orders.ManagerParams{
		Timing:    orders.DefaultTiming(),
		Persister: nopPersister{},
	})
	require.NoError(t, err)
	defer manager.Shutdown()

	svc, err := NewService(c, manager, nil)
	require.NoError(t, err)

	order, err := svc.PlaceOrder(ctx, Input{Address: "12 MG Road", PaymentMethod: "card"})
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStageOrderPlaced, order.DeliveryStage)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("270.9")), "got %s", order.Total)
	assert.Len(t, manager.ListOrders(), 1)
	assert.Empty(t, c.Lines())
}

// concurrentAddPlacer adds an item from another goroutine while the order is
// being recorded.
type concurrentAddPlacer struct {
	stubOrderPlacer
	cart  *cart.Manager
	added chan struct{}
}

func (p *concurrentAddPlacer) PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (orders.Order, error) {
	go func() {
		defer close(p.added)
		p.cart.AddItem(ctx, milk(), 1)
	}()
	select {
	case <-p.added:
	case <-time.After(50 * time.Millisecond):
	}
	return p.stubOrderPlacer.PlaceOrder(ctx, input)
}

func milk() catalog.Product {
	return catalog.Product{ID: "2", Name: "Organic Milk", Unit: "1 L", Price: decimal.NewFromInt(68), InStock: true}
}

func TestPlaceOrderKeepsItemAddedDuringCheckout(t *testing.T) {
	ctx := context.Background()
	c := newCart(t)
	c.AddItem(ctx, apples(), 1)
	placer := &concurrentAddPlacer{cart: c, added: make(chan struct{})}
	svc, err := NewService(c, placer, nil)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, Input{Address: "12 MG Road"})
	require.NoError(t, err)
	<-placer.added

	require.Len(t, placer.input.Lines, 1)
	assert.Equal(t, "1", placer.input.Lines[0].ProductID)
	lines := c.Lines()
	require.Len(t, lines, 1, "milk added during checkout must survive the clear")
	assert.Equal(t, "2", lines[0].ProductID)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, &stubOrderPlacer{}, nil)
	assert.Error(t, err)
	_, err = NewService(newCart(t), nil, nil)
	assert.Error(t, err)
}
