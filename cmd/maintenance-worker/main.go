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

	"github.com/dekorekillian57-star/spendo/internal/auth"
	"github.com/dekorekillian57-star/spendo/internal/maintenance"
	"github.com/dekorekillian57-star/spendo/internal/payments"
	"github.com/dekorekillian57-star/spendo/pkg/config"
	"github.com/dekorekillian57-star/spendo/pkg/db"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	"github.com/dekorekillian57-star/spendo/pkg/metrics"
	"github.com/dekorekillian57-star/spendo/pkg/migrate"
	"github.com/dekorekillian57-star/spendo/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "maintenance-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	cfg.Service.Kind = "maintenance-worker"

	logg = logger.New(logger.Options{
		ServiceName: "maintenance-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	requireResource(logg, "dev migrations", migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient))

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gdb := dbClient.DB()
	attemptPrune, err := maintenance.NewLoginAttemptPruneJob(logg, cfg.LoginThrottle.Window,
		auth.NewAttemptRepository(gdb, auth.CustomerAttemptsTable),
		auth.NewAttemptRepository(gdb, auth.AdminAttemptsTable),
	)
	requireResource(logg, "login attempt prune job", err)
	resetPrune, err := maintenance.NewResetTokenPruneJob(logg, auth.NewResetRepository(gdb), cfg.Storefront.PasswordResetTTL)
	requireResource(logg, "reset token prune job", err)
	intentExpiry, err := maintenance.NewIntentExpiryJob(logg, payments.NewIntentRepository(gdb), cfg.Maintenance.PaymentIntentTTL)
	requireResource(logg, "intent expiry job", err)

	lock, err := maintenance.NewRedisLock(redisClient, redisClient.LockKey(fmt.Sprintf("maintenance:%s", cfg.App.Env)), cfg.Maintenance.Interval)
	requireResource(logg, "maintenance lock", err)

	service, err := maintenance.NewService(maintenance.ServiceParams{
		Logger:   logg,
		Registry: maintenance.NewRegistry(attemptPrune, resetPrune, intentExpiry),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Maintenance.Interval,
	})
	requireResource(logg, "maintenance service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting maintenance worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "maintenance worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "maintenance worker shutting down gracefully")
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
