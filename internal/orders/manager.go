package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attos/attos-backend/pkg/enums"
	pkgerrors "github.com/attos/attos-backend/pkg/errors"
	"github.com/attos/attos-backend/pkg/events"
	"github.com/attos/attos-backend/pkg/logger"
	"github.com/attos/attos-backend/pkg/metrics"
	"github.com/attos/attos-backend/pkg/pagination"
	"github.com/attos/attos-backend/pkg/statestore"
)

type persister interface {
	Enqueue(key string, payload []byte)
}

// ManagerParams wire the order lifecycle manager.
type ManagerParams struct {
	Timing    Timing
	Scheduler Scheduler
	Persister persister
	Publisher events.Publisher
	Logger    *logger.Logger
	Metrics   *metrics.LifecycleMetrics
	Now       func() time.Time
}

type pendingTimer struct {
	timer Timer
	stage enums.DeliveryStage
	seq   uint64
}

// Manager owns the order list and drives each order through the delivery
// stages. At most one timer is pending per order; a timer only advances the
// order if it is still in the stage the timer was armed for.
type Manager struct {
	timing    Timing
	scheduler Scheduler
	persister persister
	publisher events.Publisher
	logg      *logger.Logger
	metrics   *metrics.LifecycleMetrics
	now       func() time.Time

	mu     sync.RWMutex
	orders []*Order // newest first
	byID   map[string]*Order
	timers map[string]*pendingTimer
	seq    uint64
	closed bool
}

// NewManager builds an empty order list.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Persister == nil {
		return nil, fmt.Errorf("persister required")
	}
	if err := params.Timing.Validate(); err != nil {
		return nil, fmt.Errorf("timing: %w", err)
	}
	scheduler := params.Scheduler
	if scheduler == nil {
		scheduler = RealScheduler{}
	}
	publisher := params.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		timing:    params.Timing,
		scheduler: scheduler,
		persister: params.Persister,
		publisher: publisher,
		logg:      logg,
		metrics:   params.Metrics,
		now:       now,
		byID:      make(map[string]*Order),
		timers:    make(map[string]*pendingTimer),
	}, nil
}

// PlaceOrder records a new order from a cart snapshot and arms its first stage timer.
func (m *Manager) PlaceOrder(ctx context.Context, input PlaceOrderInput) (Order, error) {
	if len(input.Lines) == 0 {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}
	address := strings.TrimSpace(input.Address)
	if address == "" {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	if !input.PaymentMethod.IsValid() {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"paymentMethod": string(input.PaymentMethod)})
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Order{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order id")
	}

	now := m.now()
	stage := enums.DeliveryStageOrderPlaced
	order := Order{
		ID:                id.String(),
		Items:             input.Lines,
		Subtotal:          input.Totals.Subtotal,
		DeliveryFee:       input.Totals.DeliveryFee,
		Tax:               input.Totals.Tax,
		Discount:          input.Totals.PromoDiscount,
		Total:             input.Totals.GrandTotal,
		PromoCode:         input.Totals.PromoCode,
		PaymentMethod:     input.PaymentMethod,
		Address:           address,
		CreatedAt:         now,
		Status:            stage.Status(),
		DeliveryStage:     stage,
		StageEnteredAt:    now,
		EstimatedDelivery: now.Add(m.timing.LeadTime),
	}
	order = order.clone()

	envelope, envErr := events.NewEnvelope(enums.EventOrderPlaced, order.ID, now, placedEvent(order))

	m.mu.Lock()
	stored := order
	m.orders = append([]*Order{&stored}, m.orders...)
	m.byID[stored.ID] = &stored
	m.armLocked(&stored)
	m.persistLocked(ctx)
	result := stored.clone()
	m.mu.Unlock()

	ctx = m.logg.WithOrderID(ctx, result.ID)
	m.metrics.IncPlaced()
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"items":          result.ItemCount(),
		"total":          result.Total.StringFixed(2),
		"payment_method": result.PaymentMethod.String(),
	}), "order placed")

	if envErr != nil {
		m.logg.Error(ctx, "build order.placed event", envErr)
	} else {
		m.publish(ctx, envelope)
	}
	return result, nil
}

// AdvanceStage moves the order exactly one stage forward and rearms its timer.
// It returns false for unknown orders and for orders already delivered.
func (m *Manager) AdvanceStage(ctx context.Context, orderID string) (Order, bool) {
	m.mu.Lock()
	o, ok := m.byID[orderID]
	if !ok {
		m.mu.Unlock()
		return Order{}, false
	}
	if o.DeliveryStage.IsTerminal() {
		result := o.clone()
		m.mu.Unlock()
		return result, false
	}
	m.cancelLocked(orderID)
	envelopes := m.transitionLocked(ctx, o, m.now())
	m.armLocked(o)
	m.persistLocked(ctx)
	result := o.clone()
	m.mu.Unlock()

	m.publish(ctx, envelopes...)
	return result, true
}

// GetOrder returns a copy of the order.
func (m *Manager) GetOrder(orderID string) (Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.byID[orderID]
	if !ok {
		return Order{}, false
	}
	return o.clone(), true
}

// ListOrders returns copies of every order, newest first.
func (m *Manager) ListOrders() []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o.clone())
	}
	return out
}

// ListOrdersPage returns up to limit orders after cursor, newest first, and
// the cursor for the next page ("" on the last page).
func (m *Manager) ListOrdersPage(params pagination.Params) ([]Order, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if cursor != nil {
		start = len(m.orders)
		for i, o := range m.orders {
			if o.ID == cursor.ID {
				start = i + 1
				break
			}
			// the cursor order may be gone; resume at the first older one
			if o.CreatedAt.Before(cursor.CreatedAt) {
				start = i
				break
			}
		}
	}

	end := min(start+limit, len(m.orders))
	page := make([]Order, 0, end-start)
	for _, o := range m.orders[start:end] {
		page = append(page, o.clone())
	}

	next := ""
	if end < len(m.orders) && len(page) > 0 {
		last := page[len(page)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, next, nil
}

// PendingTimers reports how many stage timers are armed.
func (m *Manager) PendingTimers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.timers)
}

// Tick arms a timer for every undelivered order that has none and returns
// how many it armed. Repeated calls never double-arm or advance anything.
func (m *Manager) Tick(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	armed := 0
	for _, o := range m.orders {
		if o.DeliveryStage.IsTerminal() {
			continue
		}
		if _, ok := m.timers[o.ID]; ok {
			continue
		}
		if m.armLocked(o) {
			armed++
		}
	}
	if armed > 0 {
		m.logg.Warn(m.logg.WithField(ctx, "armed", armed), "stage watchdog rearmed timers")
	}
	return armed
}

// Load replaces the order list with what the store holds under the orders
// key and resumes timers from each order's stage entry time. Overdue orders
// catch up one stage per timer.
func (m *Manager) Load(ctx context.Context, store statestore.Store) {
	var stored []Order
	err := statestore.LoadJSON(ctx, store, statestore.KeyOrders, &stored)
	switch {
	case err == nil:
	case errors.Is(err, statestore.ErrNotFound):
		stored = nil
	default:
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "stored orders unreadable, starting empty")
		stored = nil
	}
	orders := sanitize(stored)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopAllLocked()
	m.orders = orders
	m.byID = make(map[string]*Order, len(orders))
	active := 0
	for _, o := range orders {
		m.byID[o.ID] = o
		if m.armLocked(o) {
			active++
		}
	}
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"orders": len(orders),
		"active": active,
	}), "orders loaded")
}

// Shutdown stops every pending timer. Callbacks that race with it are ignored
// and no timer is armed afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.stopAllLocked()
}

func (m *Manager) onTimer(orderID string, stage enums.DeliveryStage, seq uint64) {
	ctx := m.logg.WithOrderID(context.Background(), orderID)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	pt, ok := m.timers[orderID]
	if !ok || pt.seq != seq {
		m.mu.Unlock()
		return
	}
	delete(m.timers, orderID)
	m.metrics.SetPendingTimers(len(m.timers))

	o, ok := m.byID[orderID]
	if !ok || o.DeliveryStage != stage {
		m.mu.Unlock()
		return
	}
	now := m.now()
	enteredAt := o.StageEnteredAt.Add(m.timing.DwellFor(stage))
	if enteredAt.After(now) {
		enteredAt = now
	}
	envelopes := m.transitionLocked(ctx, o, enteredAt)
	m.armLocked(o)
	m.persistLocked(ctx)
	m.mu.Unlock()

	m.publish(ctx, envelopes...)
}

// transitionLocked moves o one stage forward and returns the events to publish.
func (m *Manager) transitionLocked(ctx context.Context, o *Order, at time.Time) []events.Envelope {
	from := o.DeliveryStage
	to, ok := from.Next()
	if !ok {
		return nil
	}
	o.DeliveryStage = to
	o.Status = to.Status()
	o.StageEnteredAt = at
	if to.IsTerminal() {
		deliveredAt := at
		o.DeliveredAt = &deliveredAt
	}
	m.metrics.IncTransition(to.String())
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"order_id": o.ID,
		"from":     from.String(),
		"to":       to.String(),
	}), "order stage advanced")

	payload := StageAdvancedEvent{OrderID: o.ID, From: from, To: to, Status: o.Status, At: at}
	types := []enums.EventType{enums.EventOrderStageAdvanced}
	if to.IsTerminal() {
		types = append(types, enums.EventOrderDelivered)
	}
	out := make([]events.Envelope, 0, len(types))
	for _, eventType := range types {
		envelope, err := events.NewEnvelope(eventType, o.ID, at, payload)
		if err != nil {
			m.logg.Error(ctx, "build stage event", err)
			continue
		}
		out = append(out, envelope)
	}
	return out
}

// armLocked schedules the next transition for o unless it is delivered,
// already has a timer, or the manager is shut down.
func (m *Manager) armLocked(o *Order) bool {
	if m.closed || o.DeliveryStage.IsTerminal() {
		return false
	}
	if _, ok := m.timers[o.ID]; ok {
		return false
	}
	remaining := m.timing.DwellFor(o.DeliveryStage) - m.now().Sub(o.StageEnteredAt)
	if remaining < 0 {
		remaining = 0
	}
	m.seq++
	seq := m.seq
	orderID, stage := o.ID, o.DeliveryStage
	pt := &pendingTimer{stage: stage, seq: seq}
	m.timers[orderID] = pt
	pt.timer = m.scheduler.AfterFunc(remaining, func() {
		m.onTimer(orderID, stage, seq)
	})
	m.metrics.SetPendingTimers(len(m.timers))
	return true
}

func (m *Manager) cancelLocked(orderID string) {
	pt, ok := m.timers[orderID]
	if !ok {
		return
	}
	if pt.timer != nil {
		pt.timer.Stop()
	}
	delete(m.timers, orderID)
	m.metrics.SetPendingTimers(len(m.timers))
}

func (m *Manager) stopAllLocked() {
	for id, pt := range m.timers {
		if pt.timer != nil {
			pt.timer.Stop()
		}
		delete(m.timers, id)
	}
	m.metrics.SetPendingTimers(0)
}

func (m *Manager) persistLocked(ctx context.Context) {
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		m.logg.Error(ctx, "encode orders", err)
		return
	}
	m.persister.Enqueue(statestore.KeyOrders, payload)
}

func (m *Manager) publish(ctx context.Context, envelopes ...events.Envelope) {
	for _, envelope := range envelopes {
		if err := m.publisher.Publish(ctx, envelope); err != nil {
			m.logg.Error(m.logg.WithField(ctx, "event_type", envelope.EventType.String()), "publish order event", err)
		}
	}
}

// sanitize drops unusable records, repairs derived fields and orders the list newest first.
func sanitize(stored []Order) []*Order {
	seen := make(map[string]bool, len(stored))
	out := make([]*Order, 0, len(stored))
	for i := range stored {
		o := stored[i].clone()
		if o.ID == "" || seen[o.ID] || !o.DeliveryStage.IsValid() {
			continue
		}
		seen[o.ID] = true
		o.Status = o.DeliveryStage.Status()
		if o.StageEnteredAt.IsZero() {
			o.StageEnteredAt = o.CreatedAt
		}
		if o.DeliveryStage.IsTerminal() && o.DeliveredAt == nil {
			at := o.StageEnteredAt
			o.DeliveredAt = &at
		}
		out = append(out, &o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
