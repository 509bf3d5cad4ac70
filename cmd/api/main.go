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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/giftdrop-backend/api/controllers"
	"github.com/angelmondragon/giftdrop-backend/api/routes"
	"github.com/angelmondragon/giftdrop-backend/internal/catalog"
	"github.com/angelmondragon/giftdrop-backend/internal/chat"
	"github.com/angelmondragon/giftdrop-backend/internal/delivery"
	"github.com/angelmondragon/giftdrop-backend/internal/gateway"
	"github.com/angelmondragon/giftdrop-backend/internal/orders"
	"github.com/angelmondragon/giftdrop-backend/internal/users"
	"github.com/angelmondragon/giftdrop-backend/pkg/config"
	"github.com/angelmondragon/giftdrop-backend/pkg/db"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
	"github.com/angelmondragon/giftdrop-backend/pkg/migrate"
	"github.com/angelmondragon/giftdrop-backend/pkg/redis"
	"github.com/angelmondragon/giftdrop-backend/pkg/telegram"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	usersRepo := users.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

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

	sessions, err := chat.NewSessionStore(redisClient, 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create session store", err)
		os.Exit(1)
	}

	chatRouter, err := chat.NewRouter(chat.RouterParams{
		Logger:    logg,
		Transport: transport,
		Users:     usersRepo,
		Catalog:   catalogService,
		Orders:    ordersService,
		OrderRepo: ordersRepo,
		Sessions:  sessions,
		Notifier:  notifier,
		Operators: cfg.Operators,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create chat router", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config: cfg,
			Logger: logg,
			Pingers: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
			},
			Metrics:    promhttp.Handler(),
			ChatRouter: chatRouter,
			Catalog:    catalogService,
			OrdersRepo: ordersRepo,
			Orders:     ordersService,
			Deliverer:  executor,
		}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}

// buildGateway picks the payment backend. A configured provider wins;
// otherwise the clock-based simulator stands in so the full flow still
// runs, unless demo mode is disabled, which leaves only the manual path.
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
		logg.Warn(context.Background(), "no payment provider configured and demo mode disabled; orders take the manual path")
		return nil
	}
	logg.Warn(context.Background(), "no payment provider configured; using the clock-based simulator")
	return gateway.NewClockBasedSimulator(cfg.Reconciler.DemoDelay, nil)
}
