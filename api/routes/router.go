package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avilesluna/stockroom-backend/api/controllers"
	"github.com/avilesluna/stockroom-backend/api/middleware"
	authsvc "github.com/avilesluna/stockroom-backend/internal/auth"
	"github.com/avilesluna/stockroom-backend/internal/dashboard"
	"github.com/avilesluna/stockroom-backend/internal/orders"
	product "github.com/avilesluna/stockroom-backend/internal/products"
	supplier "github.com/avilesluna/stockroom-backend/internal/suppliers"
	"github.com/avilesluna/stockroom-backend/internal/users"
	"github.com/avilesluna/stockroom-backend/pkg/auth/session"
	"github.com/avilesluna/stockroom-backend/pkg/config"
	"github.com/avilesluna/stockroom-backend/pkg/db"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	"github.com/avilesluna/stockroom-backend/pkg/logger"
	"github.com/avilesluna/stockroom-backend/pkg/metrics"
	"github.com/avilesluna/stockroom-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       db.Pinger
	Redis          *redis.Client
	SessionChecker session.AccessSessionChecker
	Metrics        *metrics.HTTPMetrics
	Gatherer       prometheus.Gatherer

	AuthService      authsvc.Service
	UserService      users.Service
	ProductService   product.Service
	SupplierService  supplier.Service
	OrderService     orders.Service
	DashboardService dashboard.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	var redisPinger redis.Pinger
	var idemStore redis.IdempotencyStore
	if deps.Redis != nil {
		redisPinger = deps.Redis
		idemStore = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, redisPinger))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.ProductService, logg))
			r.Post("/", controllers.ProductCreate(deps.ProductService, logg))
			r.Get("/low-stock", controllers.ProductLowStock(deps.ProductService, logg))
			r.Route("/{productID}", func(r chi.Router) {
				r.Get("/", controllers.ProductDetail(deps.ProductService, logg))
				r.Patch("/", controllers.ProductUpdate(deps.ProductService, logg))
				r.Delete("/", controllers.ProductDelete(deps.ProductService, logg))
				r.Post("/stock", controllers.ProductAdjustStock(deps.ProductService, logg))
			})
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", controllers.SupplierList(deps.SupplierService, logg))
			r.Post("/", controllers.SupplierCreate(deps.SupplierService, logg))
			r.Route("/{supplierID}", func(r chi.Router) {
				r.Get("/", controllers.SupplierDetail(deps.SupplierService, logg))
				r.Patch("/", controllers.SupplierUpdate(deps.SupplierService, logg))
				r.Delete("/", controllers.SupplierDelete(deps.SupplierService, logg))
				r.Post("/balance", controllers.SupplierAdjustBalance(deps.SupplierService, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.OrderService, logg))
			r.Post("/", controllers.OrderCreate(deps.OrderService, logg))
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(deps.OrderService, logg))
				r.Patch("/", controllers.OrderUpdate(deps.OrderService, logg))
				r.Delete("/", controllers.OrderDelete(deps.OrderService, logg))
				r.Post("/status", controllers.OrderTransition(deps.OrderService, logg))
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", controllers.UserMe(deps.UserService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin.String()))
				r.Get("/", controllers.UserList(deps.UserService, logg))
				r.Post("/", controllers.UserCreate(deps.UserService, logg))
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", controllers.DashboardSummary(deps.DashboardService, logg))
			r.Get("/revenue", controllers.DashboardRevenue(deps.DashboardService, logg))
		})
	})

	return r
}
