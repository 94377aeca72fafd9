package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attos/attos-backend/internal/checkout"
	"github.com/attos/attos-backend/internal/orders"
	"github.com/attos/attos-backend/pkg/config"
	"github.com/attos/attos-backend/pkg/enums"
)

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

// idleScheduler never fires, keeping orders in their current stage.
type idleScheduler struct{}

func (idleScheduler) AfterFunc(time.Duration, func()) orders.Timer { return idleTimer{} }

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func build(t *testing.T, cfg *config.Config) *Session {
	t.Helper()
	s, err := Build(context.Background(), Params{
		Config:     cfg,
		Registerer: prometheus.NewRegistry(),
		Scheduler:  idleScheduler{},
	})
	require.NoError(t, err)
	return s
}

func TestBuildRestoresStateAcrossRestarts(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "attos.db") + "?_busy_timeout=5000"
	cfg := loadConfig(t, map[string]string{
		config.EnvStoreDriver: "sqlite",
		config.EnvDBDSN:       dsn,
	})
	ctx := context.Background()

	first := build(t, cfg)
	apples, ok := first.Catalog.Get("1")
	require.True(t, ok)
	milk, ok := first.Catalog.Get("2")
	require.True(t, ok)

	first.Cart.AddItem(ctx, apples, 2)
	order, err := first.Checkout.PlaceOrder(ctx, checkout.Input{Address: "12 MG Road", PaymentMethod: "upi"})
	require.NoError(t, err)
	first.Cart.AddItem(ctx, milk, 1)
	require.NoError(t, first.Ready(ctx))
	require.NoError(t, first.Close(ctx))

	second := build(t, cfg)
	defer func() { require.NoError(t, second.Close(ctx)) }()

	lines := second.Cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, milk.ID, lines[0].ProductID)

	restored := second.Orders.ListOrders()
	require.Len(t, restored, 1)
	assert.Equal(t, order.ID, restored[0].ID)
	assert.Equal(t, enums.PaymentMethodUPI, restored[0].PaymentMethod)
	assert.Equal(t, 1, second.Orders.PendingTimers())

	items, err := second.Rankings.Rankings(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, apples.ID, items[0].ProductID)
	assert.Equal(t, int64(2), items[0].Count)
}

func TestBuildMemoryStoreFeedsRankingsFromBus(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		config.EnvStoreDriver: "memory",
		config.EnvPromoCodes:  "ATTOS10:0.10,BIG50:0.5@500",
	})
	ctx := context.Background()
	s := build(t, cfg)
	defer func() { require.NoError(t, s.Close(ctx)) }()

	assert.Equal(t, []string{"ATTOS10", "BIG50"}, s.Promos.Codes())

	bread, ok := s.Catalog.Get("4")
	require.True(t, ok)
	s.Cart.AddItem(ctx, bread, 3)
	_, err := s.Checkout.PlaceOrder(ctx, checkout.Input{Address: "12 MG Road"})
	require.NoError(t, err)

	items, err := s.Rankings.Rankings(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].Count)
	assert.NoError(t, s.Flush(ctx))
	assert.NoError(t, s.Ready(ctx))
}

func TestBuildFailsOnMissingCatalog(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		config.EnvStoreDriver: "memory",
		config.EnvCatalogPath: filepath.Join(t.TempDir(), "missing.json"),
	})
	_, err := Build(context.Background(), Params{Config: cfg})
	require.Error(t, err)

	_, err = Build(context.Background(), Params{})
	require.Error(t, err)
}
