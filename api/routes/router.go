package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/clips-backend/api/controllers"
	"github.com/angelmondragon/clips-backend/api/middleware"
	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/clips-backend/pkg/redis"
)

// cacheStore is the redis surface the router needs: idempotency replay, the
// apply limiter and the readiness probe.
type cacheStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type ledgerService interface {
	controllers.LedgerService
	ExpireIfDue(ctx context.Context, businessID uuid.UUID) (bool, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	tokens middleware.TokenVerifier,
	dbP controllers.Pinger,
	cache cacheStore,
	catalogService controllers.CatalogService,
	ledgerSvc ledgerService,
	usageService controllers.UsageService,
	consumptionService controllers.ConsumptionService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cache))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(tokens, logg))
		r.Use(middleware.RequireRole(enums.RoleBusiness, logg))
		r.Use(middleware.Idempotency(cache, logg))
		r.Use(middleware.LazySweep(ledgerSvc, cfg.Ledger.SweepTimeout, logg))

		r.Route("/clips", func(r chi.Router) {
			r.Get("/plans", controllers.BusinessListPlans(catalogService, logg))
			r.Get("/plans/{planId}", controllers.GetPlan(catalogService, logg))
			r.Post("/plans/{planId}/request", controllers.BusinessRequestPlan(ledgerSvc, logg))
			r.Get("/me", controllers.BusinessActivePlan(ledgerSvc, logg))
			r.Get("/history", controllers.BusinessUsageHistory(usageService, logg))
		})

		r.With(middleware.ApplyRateLimit(cfg.ApplyLimit, cache, logg)).
			Post("/projects/{projectId}/apply", controllers.BusinessApplyToProject(consumptionService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(tokens, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
		r.Use(middleware.Idempotency(cache, logg))

		r.Route("/clips", func(r chi.Router) {
			r.Route("/plans", func(r chi.Router) {
				r.Get("/", controllers.AdminListPlans(catalogService, logg))
				r.Post("/", controllers.AdminCreatePlan(catalogService, logg))
				r.Get("/{planId}", controllers.GetPlan(catalogService, logg))
				r.Patch("/{planId}", controllers.AdminUpdatePlan(catalogService, logg))
				r.Delete("/{planId}", controllers.AdminDeletePlan(catalogService, logg))
			})
			r.Post("/assignments", controllers.AdminAssignPlan(ledgerSvc, logg))
			r.Post("/renewals", controllers.AdminRenewPlan(ledgerSvc, logg))
			r.Post("/refills", controllers.AdminRefill(ledgerSvc, logg))
			r.Route("/purchases", func(r chi.Router) {
				r.Get("/", controllers.AdminListPurchases(ledgerSvc, logg))
				r.Get("/{clipId}", controllers.AdminGetPurchase(ledgerSvc, logg))
				r.Patch("/{clipId}/payment", controllers.AdminUpdatePayment(ledgerSvc, logg))
			})
		})
		r.Route("/businesses/{businessId}/clips", func(r chi.Router) {
			r.Get("/history", controllers.AdminBusinessUsageHistory(usageService, logg))
			r.Get("/expiry", controllers.AdminExpiryPreview(ledgerSvc, logg))
		})
	})

	return r
}
