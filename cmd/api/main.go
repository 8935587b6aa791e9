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
	"go.uber.org/multierr"

	"github.com/resinart/storefront-api/api/routes"
	"github.com/resinart/storefront-api/internal/auth"
	"github.com/resinart/storefront-api/internal/cart"
	"github.com/resinart/storefront-api/internal/checkout"
	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/internal/orders"
	"github.com/resinart/storefront-api/internal/payments"
	"github.com/resinart/storefront-api/internal/products"
	"github.com/resinart/storefront-api/internal/reports"
	"github.com/resinart/storefront-api/internal/reviews"
	"github.com/resinart/storefront-api/internal/stock"
	"github.com/resinart/storefront-api/internal/users"
	"github.com/resinart/storefront-api/pkg/auth/revocation"
	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/db"
	"github.com/resinart/storefront-api/pkg/env"
	"github.com/resinart/storefront-api/pkg/instance"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/mailer"
	"github.com/resinart/storefront-api/pkg/metrics"
	"github.com/resinart/storefront-api/pkg/migrate"
	"github.com/resinart/storefront-api/pkg/redis"
	"github.com/resinart/storefront-api/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return multierr.Append(err, dbClient.Close())
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return multierr.Append(err, dbClient.Close())
	}
	defer func() {
		err = multierr.Combine(err, redisClient.Close(), dbClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	orderMetrics := metrics.NewOrderMetrics(registry)

	mail, err := mailer.New(cfg.Mail, logg)
	if err != nil {
		return err
	}

	notificationRepo := notifications.NewRepository(dbClient.DB())
	dispatcher, err := notifications.NewDispatcher(notificationRepo, mail, logg, notifications.DispatcherOptions{})
	if err != nil {
		return err
	}
	dispatcher.Start()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Append(err, dispatcher.Close(closeCtx))
	}()

	revocations, err := revocation.NewStore(redisClient)
	if err != nil {
		return err
	}

	userRepo := users.NewRepository(dbClient.DB())
	usersService, err := users.NewService(userRepo)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		Revocations:    revocations,
		Notifier:       dispatcher,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		PublicBaseURL:  cfg.App.PublicBaseURL,
	})
	if err != nil {
		return err
	}

	images, err := storage.NewLocal(cfg.Upload, logg)
	if err != nil {
		return err
	}

	productRepo := products.NewRepository(dbClient.DB())
	productService, err := products.NewService(productRepo, images, logg)
	if err != nil {
		return err
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, productRepo, dbClient)
	if err != nil {
		return err
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:     orderRepo,
		Tx:       dbClient,
		Notifier: dispatcher,
		Metrics:  orderMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Carts:    cartRepo,
		Orders:   orderRepo,
		Notifier: dispatcher,
		Metrics:  orderMetrics,
		Shop:     cfg.Shop,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(dbClient.DB()),
		Orders:   orderRepo,
		Notifier: dispatcher,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	reviewService, err := reviews.NewService(reviews.ServiceParams{
		Repo:     reviews.NewRepository(dbClient.DB()),
		Products: productRepo,
		Orders:   orderRepo,
		Tx:       dbClient,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	stockService, err := stock.NewService(stock.ServiceParams{
		Repo:              stock.NewRepository(dbClient.DB()),
		Products:          productRepo,
		Tx:                dbClient,
		Notifier:          dispatcher,
		LowStockThreshold: cfg.Shop.LowStockThreshold,
		Logger:            logg,
	})
	if err != nil {
		return err
	}

	reportService, err := reports.NewService(reports.ServiceParams{
		Repo:               reports.NewRepository(dbClient.DB()),
		Notifier:           dispatcher,
		BudgetAlertPercent: cfg.Reports.BudgetAlertPercent,
		Currency:           cfg.Shop.Currency,
		Logger:             logg,
	})
	if err != nil {
		return err
	}

	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Revocations:   revocations,
		Accounts:      usersService,
		HTTPMetrics:   httpMetrics,
		Gatherer:      registry,
		Auth:          authService,
		Users:         usersService,
		Products:      productService,
		Cart:          cartService,
		Checkout:      checkoutService,
		Orders:        orderService,
		Payments:      paymentService,
		Reviews:       reviewService,
		Stock:         stockService,
		Reports:       reportService,
		Notifications: notificationService,
	})

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
