package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/caseflow-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/caseflow-backend/api/controllers/orders"
	reportcontrollers "github.com/angelmondragon/caseflow-backend/api/controllers/reports"
	"github.com/angelmondragon/caseflow-backend/api/middleware"
	"github.com/angelmondragon/caseflow-backend/internal/orders"
	"github.com/angelmondragon/caseflow-backend/internal/reporting"
	"github.com/angelmondragon/caseflow-backend/pkg/config"
	"github.com/angelmondragon/caseflow-backend/pkg/db"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
	"github.com/angelmondragon/caseflow-backend/pkg/logger"
	"github.com/angelmondragon/caseflow-backend/pkg/redis"
)

// RedisDeps is the redis surface used by the HTTP layer.
type RedisDeps interface {
	redis.Pinger
	redis.RateLimiter
	redis.IdempotencyStore
}

const ordersPath = "/api/v1/orders"

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient RedisDeps,
	ordersSvc orders.Service,
	reportingSvc reporting.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	ordersPolicy := middleware.NewRateLimitPolicy("orders", time.Minute, cfg.Orders.RateLimitPerMinute)
	ordersIdempotency := middleware.IdempotencyRule{
		Method:  http.MethodPost,
		Pattern: ordersPath,
		TTL:     cfg.Idempotency.OrdersTTL,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/ping", controllers.PrivatePing())

		r.With(
			middleware.RateLimit(ordersPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg, ordersIdempotency),
		).Post("/orders", ordercontrollers.Create(ordersSvc, cfg.Orders.AllowCatalogRecovery, logg))
		r.Get("/orders/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
		r.Post("/prices/preview", ordercontrollers.PreviewPrices(ordersSvc, logg))

		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.ActorRoleDistributorAdmin, enums.ActorRoleDistributorStaff, enums.ActorRoleBuyer))
			r.Get("/profitability", reportcontrollers.Profitability(reportingSvc, logg))
			r.Get("/sales-mix", reportcontrollers.SalesMix(reportingSvc, logg))
		})
	})

	return r
}
