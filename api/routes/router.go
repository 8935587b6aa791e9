package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcontrollers "github.com/resinart/storefront-api/api/controllers/auth"
	cartcontrollers "github.com/resinart/storefront-api/api/controllers/cart"
	healthcontrollers "github.com/resinart/storefront-api/api/controllers/health"
	notificationcontrollers "github.com/resinart/storefront-api/api/controllers/notifications"
	ordercontrollers "github.com/resinart/storefront-api/api/controllers/orders"
	paymentcontrollers "github.com/resinart/storefront-api/api/controllers/payments"
	productcontrollers "github.com/resinart/storefront-api/api/controllers/products"
	reportcontrollers "github.com/resinart/storefront-api/api/controllers/reports"
	reviewcontrollers "github.com/resinart/storefront-api/api/controllers/reviews"
	stockcontrollers "github.com/resinart/storefront-api/api/controllers/stock"
	usercontrollers "github.com/resinart/storefront-api/api/controllers/users"
	"github.com/resinart/storefront-api/api/middleware"
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
	"github.com/resinart/storefront-api/pkg/auth/revocation"
	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/metrics"
	pkgredis "github.com/resinart/storefront-api/pkg/redis"
)

// multipart framing on top of the raw image bytes
const uploadOverhead = 64 << 10

// Deps carries everything the HTTP surface needs. Nil services answer 500.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          healthcontrollers.Pinger
	Redis       *pkgredis.Client
	Revocations revocation.Checker
	Accounts    middleware.AccountChecker
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Auth          auth.Service
	Users         usercontrollers.Service
	Products      products.Service
	Cart          cart.Service
	Checkout      checkout.Service
	Orders        orders.Service
	Payments      payments.Service
	Reviews       reviews.Service
	Stock         stock.Service
	Reports       reports.Service
	Notifications notifications.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
		middleware.StackTraces(!cfg.App.IsProd()),
	)

	loginPolicy := middleware.NewLoginRateLimitPolicy(cfg.AuthRateLimit)
	registerPolicy := middleware.NewRegisterRateLimitPolicy(cfg.AuthRateLimit)
	rateLimit := func(policy middleware.AuthRateLimitPolicy) func(http.Handler) http.Handler {
		if deps.Redis == nil {
			return passthrough
		}
		return middleware.AuthRateLimit(policy, deps.Redis, logg)
	}

	var idemStore pkgredis.IdempotencyStore
	checks := []healthcontrollers.Check{{Name: "db", Pinger: deps.DB}}
	if deps.Redis != nil {
		idemStore = deps.Redis
		checks = append(checks, healthcontrollers.Check{Name: "redis", Pinger: deps.Redis})
	}
	idempotent := middleware.Idempotency(idemStore, logg)
	authenticated := middleware.Auth(cfg.JWT, deps.Revocations, deps.Accounts, logg)
	adminOnly := middleware.RequireAdmin(logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", healthcontrollers.Live(cfg.App.Env))
		r.Get("/ready", healthcontrollers.Ready(cfg.App.Env, logg, checks...))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	publicPath := "/" + strings.Trim(cfg.Upload.PublicPath, "/")
	r.Handle(publicPath+"/*", http.StripPrefix(publicPath+"/", http.FileServer(http.Dir(cfg.Upload.Dir))))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(rateLimit(registerPolicy)).Post("/register", authcontrollers.Register(deps.Auth, logg))
			r.With(rateLimit(loginPolicy)).Post("/login", authcontrollers.Login(deps.Auth, logg))
			r.Post("/forgot-password", authcontrollers.ForgotPassword(deps.Auth, logg))
			r.Post("/reset-password", authcontrollers.ResetPassword(deps.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Get("/me", authcontrollers.Me(deps.Auth, logg))
				r.Put("/profile", authcontrollers.UpdateProfile(deps.Auth, logg))
				r.Put("/change-password", authcontrollers.ChangePassword(deps.Auth, logg))
				r.Post("/logout", authcontrollers.Logout(deps.Auth, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productcontrollers.List(deps.Products, logg))
			r.Get("/{id}", productcontrollers.Get(deps.Products, logg))
			r.Get("/{id}/reviews", reviewcontrollers.List(deps.Reviews, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.With(idempotent).Post("/{id}/reviews", reviewcontrollers.Create(deps.Reviews, logg))

				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					r.Post("/", productcontrollers.Create(deps.Products, logg))
					r.Put("/{id}", productcontrollers.Update(deps.Products, logg))
					r.Delete("/{id}", productcontrollers.Delete(deps.Products, logg))
					r.With(middleware.MaxBodyBytes(cfg.Upload.MaxBytes()+uploadOverhead)).
						Post("/{id}/image", productcontrollers.UploadImage(deps.Products, cfg.Upload.MaxBytes(), logg))
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Get(deps.Cart, logg))
				r.Delete("/", cartcontrollers.Clear(deps.Cart, logg))
				r.Post("/items", cartcontrollers.AddItem(deps.Cart, logg))
				r.Put("/items/{productId}", cartcontrollers.UpdateItem(deps.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.RemoveItem(deps.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(idempotent).Post("/", ordercontrollers.Place(deps.Checkout, logg))
				r.Get("/my-orders", ordercontrollers.MyOrders(deps.Orders, logg))
				r.Get("/{id}", ordercontrollers.Get(deps.Orders, logg))
				r.Get("/{id}/tracking", ordercontrollers.Tracking(deps.Orders, logg))
				r.With(idempotent).Put("/{id}/cancel", ordercontrollers.Cancel(deps.Orders, logg))

				r.With(adminOnly).Get("/", ordercontrollers.List(deps.Orders, logg))
				r.With(adminOnly).Put("/{id}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/order/{orderId}", paymentcontrollers.ByOrder(deps.Payments, logg))
				r.With(adminOnly).Put("/{id}/status", paymentcontrollers.UpdateStatus(deps.Payments, logg))
			})

			r.Delete("/reviews/{id}", reviewcontrollers.Delete(deps.Reviews, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationcontrollers.List(deps.Notifications, logg))
				r.Put("/read-all", notificationcontrollers.MarkAllRead(deps.Notifications, logg))
				r.Put("/{id}/read", notificationcontrollers.MarkRead(deps.Notifications, logg))
				r.Delete("/{id}", notificationcontrollers.Delete(deps.Notifications, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Get("/users", usercontrollers.List(deps.Users, logg))
				r.Put("/users/{id}/status", usercontrollers.SetStatus(deps.Users, logg))

				r.Route("/stock", func(r chi.Router) {
					r.Get("/low", stockcontrollers.LowStock(deps.Stock, logg))
					r.Put("/{productId}", stockcontrollers.Adjust(deps.Stock, logg))
					r.Get("/{productId}/movements", stockcontrollers.Movements(deps.Stock, logg))
				})

				r.Route("/reports", func(r chi.Router) {
					r.With(idempotent).Post("/expenses", reportcontrollers.RecordExpense(deps.Reports, logg))
					r.Get("/expenses", reportcontrollers.ListExpenses(deps.Reports, logg))
					r.Delete("/expenses/{id}", reportcontrollers.DeleteExpense(deps.Reports, logg))
					r.Put("/budgets", reportcontrollers.UpsertBudget(deps.Reports, logg))
					r.Get("/budgets", reportcontrollers.ListBudgets(deps.Reports, logg))
					r.Get("/summary", reportcontrollers.Summary(deps.Reports, logg))
					r.Get("/summary.pdf", reportcontrollers.SummaryPDF(deps.Reports, logg))
				})
			})
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
