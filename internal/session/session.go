// Package session assembles the single shopper session the binaries serve:
// catalog, cart, orders, checkout and rankings over the configured state store.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/attos/attos-backend/internal/cart"
	"github.com/attos/attos-backend/internal/catalog"
	"github.com/attos/attos-backend/internal/checkout"
	"github.com/attos/attos-backend/internal/cron"
	"github.com/attos/attos-backend/internal/orders"
	"github.com/attos/attos-backend/internal/promo"
	"github.com/attos/attos-backend/internal/ranking"
	"github.com/attos/attos-backend/pkg/config"
	"github.com/attos/attos-backend/pkg/db"
	"github.com/attos/attos-backend/pkg/enums"
	"github.com/attos/attos-backend/pkg/events"
	"github.com/attos/attos-backend/pkg/logger"
	"github.com/attos/attos-backend/pkg/metrics"
	"github.com/attos/attos-backend/pkg/migrate"
	"github.com/attos/attos-backend/pkg/pubsub"
	"github.com/attos/attos-backend/pkg/redis"
	"github.com/attos/attos-backend/pkg/statestore"
)

const cronLockName = "cron"

// Params configure Build.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	Registerer prometheus.Registerer
	// Scheduler overrides the stage timer scheduler; nil uses real timers.
	Scheduler orders.Scheduler
}

// Session owns every long-lived component of one shopper session.
type Session struct {
	Config   *config.Config
	Catalog  *catalog.Catalog
	Promos   *promo.Evaluator
	Cart     *cart.Manager
	Orders   *orders.Manager
	Checkout checkout.Service
	Rankings *ranking.Service
	Cron     *cron.Service
	Bus      *events.Bus

	logg     *logger.Logger
	store    statestore.Store
	writer   *statestore.AsyncWriter
	dbClient *db.Client
	redis    *redis.Client
	pubsub   *pubsub.Client
}

// Build wires the session and restores the persisted cart and orders.
func Build(ctx context.Context, params Params) (_ *Session, err error) {
	cfg := params.Config
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	reg := params.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Session{Config: cfg, logg: logg, Bus: events.NewBus()}
	defer func() {
		if err != nil {
			err = multierr.Append(err, s.Close(context.Background()))
		}
	}()

	if err := s.openInfra(ctx); err != nil {
		return nil, err
	}

	s.Catalog, err = catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	rules, err := promo.RulesFromConfig(cfg.Pricing.PromoCodes)
	if err != nil {
		return nil, fmt.Errorf("promo codes: %w", err)
	}
	s.Promos, err = promo.NewEvaluator(rules...)
	if err != nil {
		return nil, fmt.Errorf("promo codes: %w", err)
	}

	lifecycleMetrics := metrics.NewLifecycleMetrics(reg)
	s.writer, err = statestore.NewAsyncWriter(statestore.AsyncWriterParams{
		Store:   s.store,
		Logger:  logg,
		Metrics: metrics.NewStoreMetrics(reg),
	})
	if err != nil {
		return nil, fmt.Errorf("state writer: %w", err)
	}

	s.Cart, err = cart.NewManager(cart.ManagerParams{
		Pricing: promo.PricingRules{
			FreeDeliveryThreshold: cfg.Pricing.FreeDeliveryThreshold,
			FlatDeliveryFee:       cfg.Pricing.DeliveryFee,
			TaxRate:               cfg.Pricing.TaxRate,
		},
		Promos:    s.Promos,
		Persister: s.writer,
		Logger:    logg,
		Metrics:   lifecycleMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("cart: %w", err)
	}

	counter, err := s.rankingCounter()
	if err != nil {
		return nil, err
	}
	s.Rankings, err = ranking.NewService(counter, s.Catalog, logg)
	if err != nil {
		return nil, fmt.Errorf("rankings: %w", err)
	}

	publishers := events.Multi{s.Bus}
	if s.pubsub != nil {
		psPublisher, err := events.NewPubSubPublisher(s.pubsub.OrdersPublisher())
		if err != nil {
			return nil, fmt.Errorf("pubsub publisher: %w", err)
		}
		publishers = append(publishers, psPublisher)
	} else {
		// with Pub/Sub on, the ranking worker owns the counts
		s.Bus.Subscribe(enums.EventOrderPlaced, s.Rankings.Handler())
	}

	s.Orders, err = orders.NewManager(orders.ManagerParams{
		Timing:    orders.TimingFromConfig(cfg.Lifecycle),
		Scheduler: params.Scheduler,
		Persister: s.writer,
		Publisher: publishers,
		Logger:    logg,
		Metrics:   lifecycleMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	s.Checkout, err = checkout.NewService(s.Cart, s.Orders, logg)
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	s.Cart.Load(ctx, s.store)
	s.Orders.Load(ctx, s.store)
	if s.pubsub == nil {
		if err := s.Rankings.Rebuild(ctx, s.Orders.ListOrders()); err != nil {
			logg.Error(ctx, "initial ranking rebuild failed", err)
		}
	}

	if s.Cron, err = s.buildCron(reg); err != nil {
		return nil, err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"store_driver": cfg.Store.Driver,
		"products":     s.Catalog.Len(),
		"promo_codes":  len(s.Promos.Codes()),
		"pubsub":       s.pubsub != nil,
	}), "session ready")
	return s, nil
}

func (s *Session) openInfra(ctx context.Context) error {
	cfg := s.Config
	driver := cfg.Store.DriverKind()

	if driver == enums.StoreDriverRedis || cfg.Redis.Enabled() {
		client, err := redis.New(ctx, cfg.Redis, s.logg)
		if err != nil {
			return fmt.Errorf("bootstrap redis: %w", err)
		}
		s.redis = client
	}

	if cfg.Events.PubSubEnabled {
		client, err := pubsub.NewClient(ctx, cfg.Events, pubsub.RolePublisher, s.logg)
		if err != nil {
			return fmt.Errorf("bootstrap pubsub: %w", err)
		}
		s.pubsub = client
	}

	switch {
	case driver == enums.StoreDriverMemory:
		s.store = statestore.NewMemoryStore()
	case driver == enums.StoreDriverRedis:
		store, err := statestore.NewRedisStore(s.redis, cfg.Store.Namespace)
		if err != nil {
			return err
		}
		s.store = store
	case driver.IsSQL():
		client, err := db.New(ctx, driver, cfg.DB, s.logg)
		if err != nil {
			return fmt.Errorf("bootstrap database: %w", err)
		}
		s.dbClient = client
		if err := migrate.MaybeRun(ctx, cfg, s.logg, client); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		store, err := statestore.NewSQLStore(client.DB(), cfg.Store.Namespace)
		if err != nil {
			return err
		}
		s.store = store
	default:
		return fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
	return nil
}

func (s *Session) rankingCounter() (ranking.Counter, error) {
	if s.redis == nil {
		return ranking.NewMemoryCounter(), nil
	}
	counter, err := ranking.NewRedisCounter(s.redis, s.Config.Store.Namespace)
	if err != nil {
		return nil, fmt.Errorf("ranking counter: %w", err)
	}
	return counter, nil
}

func (s *Session) buildCron(reg prometheus.Registerer) (*cron.Service, error) {
	var lock cron.Lock = &cron.LocalLock{}
	if s.redis != nil {
		redisLock, err := cron.NewRedisLock(s.redis, s.redis.LockKey(cronLockName+":"+s.Config.Store.Namespace), s.Config.Cron.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("cron lock: %w", err)
		}
		lock = redisLock
	}

	watchdog, err := cron.NewStageWatchdogJob(s.logg, s.Orders)
	if err != nil {
		return nil, err
	}
	registry := cron.NewRegistry(watchdog)
	// with Pub/Sub the counts live with the ranking worker; rebuilding here would race it
	if s.pubsub == nil {
		rebuild, err := cron.NewRankingRebuildJob(s.Orders, s.Rankings)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(rebuild); err != nil {
			return nil, err
		}
	}
	s.logg.Info(s.logg.WithField(context.Background(), "jobs", registry.Names()), "cron jobs registered")

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   s.logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: s.Config.Cron.Interval,
	})
	if err != nil {
		return nil, fmt.Errorf("cron service: %w", err)
	}
	return service, nil
}

// Ready pings every backing dependency.
func (s *Session) Ready(ctx context.Context) error {
	var err error
	if s.dbClient != nil {
		err = multierr.Append(err, s.dbClient.Ping(ctx))
	}
	if s.redis != nil {
		err = multierr.Append(err, s.redis.Ping(ctx))
	}
	if s.pubsub != nil {
		err = multierr.Append(err, s.pubsub.Ping(ctx))
	}
	return err
}

// IdempotencyStore returns the HTTP replay store, or nil without Redis.
func (s *Session) IdempotencyStore() redis.IdempotencyStore {
	if s.redis == nil {
		return nil
	}
	return s.redis
}

// Flush waits until every queued state write has reached the store.
func (s *Session) Flush(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Flush(ctx)
}

// Close stops stage timers, flushes pending writes and releases connections.
func (s *Session) Close(ctx context.Context) error {
	if s.Orders != nil {
		s.Orders.Shutdown()
	}
	return s.closeInfra(ctx)
}

func (s *Session) closeInfra(ctx context.Context) error {
	var err error
	if s.writer != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = multierr.Append(err, s.writer.Close(flushCtx))
		cancel()
		s.writer = nil
	}
	if s.pubsub != nil {
		err = multierr.Append(err, s.pubsub.Close())
		s.pubsub = nil
	}
	if s.redis != nil {
		err = multierr.Append(err, s.redis.Close())
		s.redis = nil
	}
	if s.dbClient != nil {
		err = multierr.Append(err, s.dbClient.Close())
		s.dbClient = nil
	}
	return err
}
