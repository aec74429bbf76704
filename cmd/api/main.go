package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/dekorekillian57-star/spendo/api/middleware"
	"github.com/dekorekillian57-star/spendo/api/routes"
	"github.com/dekorekillian57-star/spendo/internal/auth"
	"github.com/dekorekillian57-star/spendo/internal/cart"
	"github.com/dekorekillian57-star/spendo/internal/catalog"
	"github.com/dekorekillian57-star/spendo/internal/checkout"
	"github.com/dekorekillian57-star/spendo/internal/notifications"
	"github.com/dekorekillian57-star/spendo/internal/orders"
	"github.com/dekorekillian57-star/spendo/internal/payments"
	"github.com/dekorekillian57-star/spendo/internal/users"
	"github.com/dekorekillian57-star/spendo/pkg/auth/session"
	"github.com/dekorekillian57-star/spendo/pkg/config"
	"github.com/dekorekillian57-star/spendo/pkg/db"
	"github.com/dekorekillian57-star/spendo/pkg/events"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	"github.com/dekorekillian57-star/spendo/pkg/mailer"
	"github.com/dekorekillian57-star/spendo/pkg/metrics"
	"github.com/dekorekillian57-star/spendo/pkg/migrate"
	"github.com/dekorekillian57-star/spendo/pkg/paystack"
	"github.com/dekorekillian57-star/spendo/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(logg, "database", err)
	requireResource(logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(logg, "redis", err)

	publisher, err := events.New(ctx, cfg.Kafka, logg)
	requireResource(logg, "event publisher", err)

	defer func() {
		closeErr := multierr.Combine(publisher.Close(), redisClient.Close(), dbClient.Close())
		if closeErr != nil {
			logg.Error(context.Background(), "error releasing resources", closeErr)
		}
	}()

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	gateway, err := paystack.NewClient(ctx, cfg.Paystack, logg, paystack.WithObserver(paymentMetrics.ObserveGateway))
	requireResource(logg, "paystack client", err)

	sender, err := mailer.New(cfg.SMTP, logg)
	requireResource(logg, "mail sender", err)
	notifier, err := notifications.NewService(notifications.ServiceParams{
		Sender:          sender,
		OperationsEmail: cfg.SMTP.AdminEmail,
		PublicBaseURL:   cfg.App.PublicBaseURL,
		Logger:          logg,
	})
	requireResource(logg, "notifications", err)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(logg, "session manager", err)

	gdb := dbClient.DB()
	userRepo := users.NewRepository(gdb)
	orderRepo := orders.NewRepository(gdb)
	intentRepo := payments.NewIntentRepository(gdb)

	catalogService, err := catalog.NewService(catalog.NewRepository(gdb))
	requireResource(logg, "catalog service", err)

	cartService, err := cart.NewService(cart.ServiceParams{
		Users:    cart.NewDBStore(gdb),
		Guests:   cart.NewGuestStore(redisClient, cfg.Storefront.GuestCartTTL),
		Packages: catalogService,
		Logger:   logg,
	})
	requireResource(logg, "cart service", err)

	customerLimits, err := auth.NewThrottle(auth.NewAttemptRepository(gdb, auth.CustomerAttemptsTable), cfg.LoginThrottle)
	requireResource(logg, "customer login throttle", err)
	adminLimits, err := auth.NewThrottle(auth.NewAttemptRepository(gdb, auth.AdminAttemptsTable), cfg.LoginThrottle)
	requireResource(logg, "admin login throttle", err)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          userRepo,
		Admins:         users.NewAdminRepository(gdb),
		CustomerLimits: customerLimits,
		AdminLimits:    adminLimits,
		Resets:         auth.NewResetRepository(gdb),
		SessionManager: sessionManager,
		Cart:           cartService,
		Mailer:         notifier,
		Logger:         logg,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		ResetTTL:       cfg.Storefront.PasswordResetTTL,
	})
	requireResource(logg, "auth service", err)

	userService, err := users.NewService(userRepo, cfg.Password)
	requireResource(logg, "user service", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Cart:        cartService,
		Intents:     intentRepo,
		Accounts:    userRepo,
		Gateway:     gateway,
		Logger:      logg,
		Metrics:     paymentMetrics,
		Currency:    cfg.Storefront.Currency,
		CallbackURL: strings.TrimRight(cfg.App.PublicBaseURL, "/") + cfg.Paystack.CallbackPath,
	})
	requireResource(logg, "checkout service", err)

	paymentService, err := payments.NewService(payments.ServiceParams{
		DB:            dbClient,
		Intents:       intentRepo,
		Orders:        orderRepo,
		Cart:          cartService,
		Gateway:       gateway,
		Notifier:      notifier,
		Publisher:     publisher,
		Dedupe:        redisClient,
		Logger:        logg,
		Metrics:       paymentMetrics,
		Currency:      cfg.Storefront.Currency,
		WebhookSecret: cfg.Paystack.WebhookSigningSecret(),
	})
	requireResource(logg, "payment service", err)

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:      orderRepo,
		Publisher: publisher,
		Logger:    logg,
	})
	requireResource(logg, "order service", err)

	router := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:         dbClient,
		Redis:      redisClient,
		Sessions:   sessionManager,
		GuestStore: middleware.NewGuestCookieStore(cfg.Session),
		Metrics:    promhttp.Handler(),
		Auth:       authService,
		Catalog:    catalogService,
		Cart:       cartService,
		Checkout:   checkoutService,
		Payments:   paymentService,
		Orders:     orderService,
		Users:      userService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
