package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dekorekillian57-star/spendo/api/controllers"
	admincontrollers "github.com/dekorekillian57-star/spendo/api/controllers/admin"
	"github.com/dekorekillian57-star/spendo/api/middleware"
	"github.com/dekorekillian57-star/spendo/internal/auth"
	"github.com/dekorekillian57-star/spendo/internal/cart"
	"github.com/dekorekillian57-star/spendo/internal/catalog"
	"github.com/dekorekillian57-star/spendo/internal/checkout"
	"github.com/dekorekillian57-star/spendo/internal/orders"
	"github.com/dekorekillian57-star/spendo/internal/payments"
	"github.com/dekorekillian57-star/spendo/internal/users"
	"github.com/dekorekillian57-star/spendo/pkg/auth/session"
	"github.com/dekorekillian57-star/spendo/pkg/config"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	pkgredis "github.com/dekorekillian57-star/spendo/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// RedisStore is the slice of the redis client the HTTP layer relies on.
type RedisStore interface {
	pinger
	pkgredis.IdempotencyStore
	pkgredis.RateLimitStore
}

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	DB         pinger
	Redis      RedisStore
	Sessions   session.AccessSessionChecker
	GuestStore sessions.Store
	Metrics    http.Handler
	Auth       auth.Service
	Catalog    catalog.Service
	Cart       cart.Service
	Checkout   checkout.Service
	Payments   payments.Service
	Orders     orders.Service
	Users      users.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewThrottlePolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewThrottlePolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var rateStore pkgredis.RateLimitStore
	var idemStore pkgredis.IdempotencyStore
	if deps.Redis != nil {
		rateStore = deps.Redis
		idemStore = deps.Redis
	}
	idempotent := middleware.Idempotency(idemStore, logg)
	guestStore := deps.GuestStore
	if guestStore == nil {
		guestStore = middleware.NewGuestCookieStore(cfg.Session)
	}
	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	currency := cfg.Storefront.Currency
	pageSize := cfg.Storefront.AdminPageSize

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// Paystack authenticates with an HMAC, not cookies or tokens.
		r.Post("/webhooks/paystack", controllers.PaystackWebhook(deps.Payments, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.GuestSession(guestStore, cfg.Session.CookieName, logg),
				middleware.CSRF(cfg.Session, cfg.App.CORSOrigins, logg),
				middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg),
			)

			r.Get("/csrf", controllers.CSRFToken())

			r.Route("/packages", func(r chi.Router) {
				r.Get("/", controllers.PackageList(deps.Catalog, logg))
				r.Get("/{packageId}", controllers.PackageGet(deps.Catalog, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Cart, currency, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, currency, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, currency, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, currency, logg))
			})

			r.With(idempotent).Post("/checkout", controllers.Checkout(deps.Checkout, logg))
			r.Get("/payments/callback", controllers.PaymentCallback(deps.Payments, logg))
			r.Get("/orders/track", controllers.TrackOrder(deps.Orders, logg))

			r.Route("/auth", func(r chi.Router) {
				r.With(middleware.Throttle(registerPolicy, rateStore, logg), idempotent).
					Post("/register", controllers.AuthRegister(deps.Auth, logg))
				r.With(middleware.Throttle(loginPolicy, rateStore, logg)).
					Post("/login", controllers.AuthLogin(deps.Auth, logg))
				r.With(middleware.RequireUser(logg)).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
				r.With(middleware.Throttle(loginPolicy, rateStore, logg)).
					Post("/password/forgot", controllers.AuthForgotPassword(deps.Auth, logg))
				r.Post("/password/reset", controllers.AuthResetPassword(deps.Auth, logg))
			})

			r.Route("/me", func(r chi.Router) {
				r.Use(middleware.RequireUser(logg), middleware.RequireRole(enums.RoleCustomer, logg))
				r.Get("/", controllers.ProfileFetch(deps.Users, logg))
				r.Put("/", controllers.ProfileUpdate(deps.Users, logg))
				r.Put("/password", controllers.ProfileChangePassword(deps.Users, logg))
				r.Get("/orders", controllers.ProfileOrders(deps.Orders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(middleware.Throttle(loginPolicy, rateStore, logg)).
			Post("/auth/login", controllers.AdminAuthLogin(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, deps.Sessions, logg),
				middleware.RequireRole(enums.RoleAdmin, logg),
			)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", admincontrollers.OrderList(deps.Orders, pageSize, logg))
				r.With(idempotent).Post("/bulk-status", admincontrollers.OrderBulkSetStatus(deps.Orders, logg))
				r.With(idempotent).Post("/bulk-delete", admincontrollers.OrderBulkDelete(deps.Orders, logg))
				r.Get("/{orderId}", admincontrollers.OrderDetail(deps.Orders, logg))
				r.Patch("/{orderId}/status", admincontrollers.OrderSetStatus(deps.Orders, logg))
				r.Delete("/{orderId}", admincontrollers.OrderDelete(deps.Orders, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", admincontrollers.UserList(deps.Users, pageSize, logg))
				r.With(idempotent).Post("/bulk-delete", admincontrollers.UserBulkDelete(deps.Users, logg))
				r.Delete("/{userId}", admincontrollers.UserDelete(deps.Users, logg))
			})

			r.Route("/packages", func(r chi.Router) {
				r.With(idempotent).Post("/", admincontrollers.PackageCreate(deps.Catalog, logg))
				r.Put("/{packageId}", admincontrollers.PackageUpdate(deps.Catalog, logg))
				r.Delete("/{packageId}", admincontrollers.PackageDelete(deps.Catalog, logg))
			})
		})
	})

	return r
}
