package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/attos/attos-backend/internal/ranking"
	"github.com/attos/attos-backend/pkg/config"
	"github.com/attos/attos-backend/pkg/events"
	"github.com/attos/attos-backend/pkg/events/idempotency"
	"github.com/attos/attos-backend/pkg/instance"
	"github.com/attos/attos-backend/pkg/logger"
	"github.com/attos/attos-backend/pkg/pubsub"
	"github.com/attos/attos-backend/pkg/redis"
)

const (
	consumerName  = "ranking-worker"
	metricsAddr   = ":9091"
	shutdownGrace = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: consumerName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: consumerName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"subscription": cfg.Events.OrdersSubscription,
		"instance":     instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "ranking worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "ranking worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	psClient, err := pubsub.NewClient(ctx, cfg.Events, pubsub.RoleSubscriber, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := psClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	counter, err := ranking.NewRedisCounter(redisClient, cfg.Store.Namespace)
	if err != nil {
		return err
	}
	rankings, err := ranking.NewService(counter, nil, logg)
	if err != nil {
		return err
	}

	guard, err := idempotency.NewManager(redisClient, cfg.Events.IdempotencyTTL)
	if err != nil {
		return err
	}

	consumer, err := events.NewConsumer(events.ConsumerParams{
		Name:         consumerName,
		Subscription: psClient.OrdersSubscription(),
		Handler:      rankings.Handler(),
		Idempotency:  guard,
		Logger:       logg,
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logg.Info(ctx, "starting ranking worker")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := consumer.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
