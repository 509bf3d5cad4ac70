package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/giftdrop-backend/internal/catalog"
	"github.com/angelmondragon/giftdrop-backend/internal/chat"
	"github.com/angelmondragon/giftdrop-backend/internal/delivery"
	"github.com/angelmondragon/giftdrop-backend/internal/gateway"
	"github.com/angelmondragon/giftdrop-backend/internal/orders"
	"github.com/angelmondragon/giftdrop-backend/internal/reconciler"
	"github.com/angelmondragon/giftdrop-backend/pkg/config"
	"github.com/angelmondragon/giftdrop-backend/pkg/db"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
	"github.com/angelmondragon/giftdrop-backend/pkg/metrics"
	"github.com/angelmondragon/giftdrop-backend/pkg/migrate"
	"github.com/angelmondragon/giftdrop-backend/pkg/redis"
	"github.com/angelmondragon/giftdrop-backend/pkg/telegram"
)

const lockKeyFormat = "reconciler:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconciler"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "reconciler"

	logg = logger.New(logger.Options{
		ServiceName: "reconciler",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	transport, err := telegram.NewClient(cfg.Telegram.BotToken,
		telegram.WithBaseURL(cfg.Telegram.BaseURL),
		telegram.WithTimeout(cfg.Telegram.RequestTimeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat transport", err)
		os.Exit(1)
	}

	paymentGateway := buildGateway(cfg, logg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	notifier, err := chat.NewNotifier(logg, transport, cfg.Operators)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Logger:    logg,
		Repo:      ordersRepo,
		Catalog:   catalogRepo,
		Gateway:   paymentGateway,
		Notifier:  notifier,
		Operators: cfg.Operators,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	executor, err := delivery.NewExecutor(delivery.ExecutorParams{
		Logger:  logg,
		Repo:    ordersRepo,
		Catalog: catalogRepo,
		Sender:  notifier,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery executor", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewReconcilerMetrics(prometheus.DefaultRegisterer)

	passJob, err := reconciler.NewOrdersPassJob(reconciler.OrdersPassJobParams{
		Logger:       logg,
		Repo:         ordersRepo,
		Orders:       ordersService,
		Gateway:      paymentGateway,
		Deliverer:    executor,
		Metrics:      metricsCollector,
		BatchLimit:   cfg.Reconciler.BatchLimit,
		OrderTimeout: cfg.Reconciler.OrderTimeout,
		AutoConfirm:  cfg.Reconciler.AutoConfirm,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders pass job", err)
		os.Exit(1)
	}

	lock, err := reconciler.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), cfg.Reconciler.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler lock", err)
		os.Exit(1)
	}

	service, err := reconciler.NewService(reconciler.ServiceParams{
		Logger:   logg,
		Registry: reconciler.NewRegistry(passJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Reconciler.PollInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting reconciler")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reconciler stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reconciler shutting down gracefully")
}

func buildGateway(cfg *config.Config, logg *logger.Logger) gateway.Gateway {
	if cfg.Payments.Configured() {
		gw, err := gateway.NewProviderGateway(cfg.Payments, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create payment gateway", err)
			os.Exit(1)
		}
		return gw
	}
	if cfg.Reconciler.DisableDemoSim {
		logg.Warn(context.Background(), "no payment provider configured and demo mode disabled; pending orders wait for manual review")
		return nil
	}
	logg.Warn(context.Background(), "no payment provider configured; using the clock-based simulator")
	return gateway.NewClockBasedSimulator(cfg.Reconciler.DemoDelay, nil)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
