package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/attos/attos-backend/internal/catalog"
	"github.com/attos/attos-backend/internal/promo"
	pkgerrors "github.com/attos/attos-backend/pkg/errors"
	"github.com/attos/attos-backend/pkg/logger"
	"github.com/attos/attos-backend/pkg/metrics"
	"github.com/attos/attos-backend/pkg/statestore"
)

type persister interface {
	Enqueue(key string, payload []byte)
}

type promoEvaluator interface {
	Evaluate(code string, subtotal decimal.Decimal) promo.Result
	Apply(code string, subtotal decimal.Decimal) (promo.Result, error)
}

// ManagerParams wire the cart manager.
type ManagerParams struct {
	Pricing   promo.PricingRules
	Promos    promoEvaluator
	Persister persister
	Logger    *logger.Logger
	Metrics   *metrics.LifecycleMetrics
}

// Manager owns the session cart. Lines keep insertion order; every mutation
// hands the full line array to the persister.
type Manager struct {
	pricing   promo.PricingRules
	promos    promoEvaluator
	persister persister
	logg      *logger.Logger
	metrics   *metrics.LifecycleMetrics

	mu        sync.RWMutex
	lines     []Line
	promoCode string
}

// NewManager builds an empty cart.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Promos == nil {
		return nil, fmt.Errorf("promo evaluator required")
	}
	if params.Persister == nil {
		return nil, fmt.Errorf("persister required")
	}
	if err := params.Pricing.Validate(); err != nil {
		return nil, fmt.Errorf("pricing rules: %w", err)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Manager{
		pricing:   params.Pricing,
		promos:    params.Promos,
		persister: params.Persister,
		logg:      logg,
		metrics:   params.Metrics,
	}, nil
}

// Load replaces the cart with what the store holds under the cart key. A
// missing or malformed entry leaves an empty cart.
func (m *Manager) Load(ctx context.Context, store statestore.Store) {
	var stored []Line
	err := statestore.LoadJSON(ctx, store, statestore.KeyCart, &stored)
	switch {
	case err == nil:
	case errors.Is(err, statestore.ErrNotFound):
		stored = nil
	default:
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "stored cart unreadable, starting empty")
		stored = nil
	}

	lines := sanitize(stored)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = lines
	m.promoCode = ""
	m.logg.Info(m.logg.WithField(ctx, "lines", len(lines)), "cart loaded")
}

// sanitize drops lines that break the cart invariants and merges duplicate products.
func sanitize(stored []Line) []Line {
	lines := make([]Line, 0, len(stored))
	for _, l := range stored {
		l.ProductID = strings.TrimSpace(l.ProductID)
		if l.ProductID == "" || l.Quantity <= 0 || l.Price.IsNegative() {
			continue
		}
		if idx := indexOf(lines, l.ProductID); idx >= 0 {
			lines[idx].Quantity += l.Quantity
			continue
		}
		lines = append(lines, l.clone())
	}
	return lines
}

// AddItem adds qty of product. An existing line grows by qty; a new line
// snapshots the product's current price. qty <= 0 changes nothing and returns false.
// Stock is not checked here.
func (m *Manager) AddItem(ctx context.Context, product catalog.Product, qty int) (Line, bool) {
	if qty <= 0 {
		return Line{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := indexOf(m.lines, product.ID)
	if idx >= 0 {
		m.lines[idx].Quantity += qty
	} else {
		line := Line{
			ProductID: product.ID,
			Name:      product.Name,
			Unit:      product.Unit,
			Quantity:  qty,
			Price:     product.Price,
		}
		if product.OriginalPrice != nil {
			op := *product.OriginalPrice
			line.OriginalPrice = &op
		}
		m.lines = append(m.lines, line)
		idx = len(m.lines) - 1
	}
	m.persistLocked(ctx)
	return m.lines[idx].clone(), true
}

// RemoveItem deletes the line for productID, reporting whether it existed.
func (m *Manager) RemoveItem(ctx context.Context, productID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(ctx, productID)
}

func (m *Manager) removeLocked(ctx context.Context, productID string) bool {
	idx := indexOf(m.lines, productID)
	if idx < 0 {
		return false
	}
	m.lines = append(m.lines[:idx], m.lines[idx+1:]...)
	m.persistLocked(ctx)
	return true
}

// SetQuantity updates an existing line. qty <= 0 removes the line. It never
// creates a line; ok is false when productID is not in the cart.
func (m *Manager) SetQuantity(ctx context.Context, productID string, qty int) (Line, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if qty <= 0 {
		return Line{}, m.removeLocked(ctx, productID)
	}
	idx := indexOf(m.lines, productID)
	if idx < 0 {
		return Line{}, false
	}
	m.lines[idx].Quantity = qty
	m.persistLocked(ctx)
	return m.lines[idx].clone(), true
}

// Clear empties the cart and drops the applied promo code.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
	m.promoCode = ""
	m.persistLocked(ctx)
}

// Checkout hands a snapshot to place while holding the cart's write lock and
// empties the cart only when place succeeds. Mutations issued meanwhile wait
// and apply to the emptied cart, so none of them is lost. place must not call
// back into the cart.
func (m *Manager) Checkout(ctx context.Context, place func(Snapshot) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := Snapshot{Lines: cloneLines(m.lines), Totals: m.totalsLocked()}
	if err := place(snapshot); err != nil {
		return err
	}
	m.lines = nil
	m.promoCode = ""
	m.persistLocked(ctx)
	return nil
}

// ApplyPromo validates code against the current subtotal and makes it the
// active code, replacing any earlier one.
func (m *Manager) ApplyPromo(ctx context.Context, code string) (promo.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := m.promos.Apply(code, subtotalOf(m.lines))
	if err != nil {
		outcome := "invalid"
		if pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			outcome = "empty"
		}
		m.metrics.IncPromoAttempt(outcome)
		m.logg.Info(m.logg.WithField(ctx, "promo_code", code), "promo code rejected")
		return promo.Result{}, err
	}
	m.promoCode = result.Code
	m.metrics.IncPromoAttempt("applied")
	return result, nil
}

// ClearPromo removes the active promo code.
func (m *Manager) ClearPromo() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promoCode = ""
}

// Lines returns a copy of the cart lines in insertion order.
func (m *Manager) Lines() []Line {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneLines(m.lines)
}

func (m *Manager) TotalItems() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, l := range m.lines {
		total += l.Quantity
	}
	return total
}

func (m *Manager) Subtotal() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return subtotalOf(m.lines)
}

func (m *Manager) Savings() decimal.Decimal {
	return m.Totals().Savings
}

func (m *Manager) DeliveryFee() decimal.Decimal {
	return m.Totals().DeliveryFee
}

func (m *Manager) Tax() decimal.Decimal {
	return m.Totals().Tax
}

func (m *Manager) PromoDiscount() decimal.Decimal {
	return m.Totals().PromoDiscount
}

func (m *Manager) GrandTotal() decimal.Decimal {
	return m.Totals().GrandTotal
}

// Totals computes every derived value under one read lock.
func (m *Manager) Totals() Totals {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalsLocked()
}

// Snapshot deep-copies lines and totals for order placement.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Lines: cloneLines(m.lines), Totals: m.totalsLocked()}
}

func (m *Manager) totalsLocked() Totals {
	t := Totals{
		Subtotal: decimal.Zero,
		Savings:  decimal.Zero,
	}
	for _, l := range m.lines {
		t.TotalItems += l.Quantity
		t.Subtotal = t.Subtotal.Add(l.Total())
		t.Savings = t.Savings.Add(l.Savings())
	}
	t.DeliveryFee = m.pricing.DeliveryFee(t.Subtotal)
	t.Tax = m.pricing.Tax(t.Subtotal)
	t.AmountToFreeDelivery = m.pricing.AmountToFreeDelivery(t.Subtotal)
	t.PromoDiscount = decimal.Zero
	if m.promoCode != "" {
		// re-evaluated so a minimum-subtotal rule drops out when lines are removed
		result := m.promos.Evaluate(m.promoCode, t.Subtotal)
		if result.Valid {
			t.PromoCode = result.Code
			t.PromoDiscount = result.Discount(t.Subtotal)
		}
	}
	t.GrandTotal = t.Subtotal.Add(t.DeliveryFee).Add(t.Tax).Sub(t.PromoDiscount)
	return t
}

func (m *Manager) persistLocked(ctx context.Context) {
	lines := m.lines
	if lines == nil {
		lines = []Line{}
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		m.logg.Error(ctx, "encode cart", err)
		return
	}
	m.persister.Enqueue(statestore.KeyCart, payload)
}

func subtotalOf(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

func indexOf(lines []Line, productID string) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
