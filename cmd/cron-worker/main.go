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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/resinart/storefront-api/internal/cron"
	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/internal/orders"
	"github.com/resinart/storefront-api/internal/reports"
	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/db"
	"github.com/resinart/storefront-api/pkg/env"
	"github.com/resinart/storefront-api/pkg/instance"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/mailer"
	"github.com/resinart/storefront-api/pkg/metrics"
	"github.com/resinart/storefront-api/pkg/migrate"
	"github.com/resinart/storefront-api/pkg/redis"
)

const (
	notificationRetention = 90 * 24 * time.Hour
	drainTimeout          = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
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

	mail, err := mailer.New(cfg.Mail, logg)
	if err != nil {
		return err
	}

	notificationRepo := notifications.NewRepository(dbClient.DB())
	dispatcher, err := notifications.NewDispatcher(notificationRepo, mail, logg, notifications.DispatcherOptions{Workers: 2})
	if err != nil {
		return err
	}
	dispatcher.Start()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		err = multierr.Append(err, dispatcher.Close(closeCtx))
	}()

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

	budgetJob, err := cron.NewBudgetSweepJob(cron.BudgetSweepJobParams{
		Logger:  logg,
		Budgets: reportService,
	})
	if err != nil {
		return err
	}
	pendingJob, err := cron.NewPendingOrderJob(cron.PendingOrderJobParams{
		Logger:   logg,
		Orders:   orders.NewRepository(dbClient.DB()),
		Notifier: dispatcher,
		After:    cfg.Cron.PendingOrderAfter,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationRepo,
		Retention:  notificationRetention,
	})
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, "cron", cfg.Cron, logg)
	if err != nil {
		return err
	}

	jobs := cron.NewRegistry(budgetJob, pendingJob, cleanupJob)
	registry := prometheus.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(registry),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
		"interval": cfg.Cron.Interval.String(),
		"jobs":     jobs.Names(),
	})

	if port := env.Get("STOREFRONT_CRON_METRICS_PORT", ""); port != "" {
		metricsServer := &http.Server{
			Addr:              ":" + port,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics server stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}
