package ranking

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/attos/attos-backend/internal/catalog"
	"github.com/attos/attos-backend/internal/orders"
	"github.com/attos/attos-backend/pkg/enums"
	"github.com/attos/attos-backend/pkg/events"
	"github.com/attos/attos-backend/pkg/logger"
)

type productLookup interface {
	Get(id string) (catalog.Product, bool)
}

// Item is one entry of the popularity ranking.
type Item struct {
	Rank      int    `json:"rank"`
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Count     int64  `json:"count"`
}

// Service ranks products by total ordered quantity.
type Service struct {
	counter  Counter
	products productLookup
	logg     *logger.Logger
}

// NewService builds a ranking service. products may be nil; names are then omitted.
func NewService(counter Counter, products productLookup, logg *logger.Logger) (*Service, error) {
	if counter == nil {
		return nil, fmt.Errorf("counter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{counter: counter, products: products, logg: logg}, nil
}

// Record adds qty to productID. Non-positive quantities are ignored.
func (s *Service) Record(ctx context.Context, productID string, qty int) error {
	productID = strings.TrimSpace(productID)
	if productID == "" || qty <= 0 {
		return nil
	}
	return s.counter.Incr(ctx, productID, int64(qty))
}

// RecordOrder counts every item of the order.
func (s *Service) RecordOrder(ctx context.Context, order orders.Order) error {
	var err error
	for _, item := range order.Items {
		err = multierr.Append(err, s.Record(ctx, item.ProductID, item.Quantity))
	}
	return err
}

// Rankings lists products by count, highest first; ties go to the smaller product id.
func (s *Service) Rankings(ctx context.Context) ([]Item, error) {
	counts, err := s.counter.Counts(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(counts))
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		item := Item{ProductID: id, Count: n}
		if s.products != nil {
			if p, ok := s.products.Get(id); ok {
				item.Name = p.Name
			}
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].ProductID < items[j].ProductID
	})
	for i := range items {
		items[i].Rank = i + 1
	}
	return items, nil
}

// Reset drops every count.
func (s *Service) Reset(ctx context.Context) error {
	return s.counter.Reset(ctx)
}

// Rebuild recomputes counts from the full order history.
func (s *Service) Rebuild(ctx context.Context, history []orders.Order) error {
	if err := s.counter.Reset(ctx); err != nil {
		return fmt.Errorf("reset rankings: %w", err)
	}
	var err error
	for _, order := range history {
		err = multierr.Append(err, s.RecordOrder(ctx, order))
	}
	if err != nil {
		return fmt.Errorf("rebuild rankings: %w", err)
	}
	s.logg.Info(s.logg.WithField(ctx, "orders", len(history)), "rankings rebuilt")
	return nil
}

// Handler counts order.placed events and reports every other type as unsupported.
func (s *Service) Handler() events.Handler {
	return events.HandlerFunc(func(ctx context.Context, envelope events.Envelope) error {
		if envelope.EventType != enums.EventOrderPlaced {
			return events.ErrUnsupportedEvent
		}
		var payload orders.OrderPlacedEvent
		if err := envelope.Decode(&payload); err != nil {
			return err
		}
		var err error
		for _, item := range payload.Items {
			err = multierr.Append(err, s.Record(ctx, item.ProductID, item.Quantity))
		}
		return err
	})
}
