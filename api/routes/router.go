package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paylivhq/payliv-backend/api/controllers"
	webhookcontrollers "github.com/paylivhq/payliv-backend/api/controllers/webhooks"
	"github.com/paylivhq/payliv-backend/api/middleware"
	internalassets "github.com/paylivhq/payliv-backend/internal/assets"
	internaldropship "github.com/paylivhq/payliv-backend/internal/dropship"
	internalledger "github.com/paylivhq/payliv-backend/internal/ledger"
	internalorders "github.com/paylivhq/payliv-backend/internal/orders"
	internalpayouts "github.com/paylivhq/payliv-backend/internal/payouts"
	internalwebhooks "github.com/paylivhq/payliv-backend/internal/webhooks"
	"github.com/paylivhq/payliv-backend/pkg/config"
	"github.com/paylivhq/payliv-backend/pkg/db"
	"github.com/paylivhq/payliv-backend/pkg/logger"
	"github.com/paylivhq/payliv-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	webhookSvc *internalwebhooks.Service,
	paydunyaParser internalwebhooks.Parser,
	cinetpayParser internalwebhooks.Parser,
	ordersSvc *internalorders.Service,
	finalizer internalorders.Finalizer,
	dropshipSvc *internaldropship.Service,
	payoutsSvc *internalpayouts.Service,
	ledgerSvc *internalledger.Service,
	assetsSvc *internalassets.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Provider callbacks authenticate with their own signatures, never with
	// gateway identity headers.
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/paydunya", webhookcontrollers.Handle(webhookSvc, paydunyaParser, logg))
		r.Post("/cinetpay", webhookcontrollers.Handle(webhookSvc, cinetpayParser, logg))
	})

	// Auth subrequest for the file gateway serving signed downloads.
	r.Get("/downloads/authorize", controllers.AuthorizeDownload(assetsSvc, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		// Storefront endpoints: the customer proves entitlement with order
		// data, not an account.
		r.Post("/orders", controllers.CreateOrder(ordersSvc, logg))
		r.Get("/orders/{id}", controllers.GetOrder(ordersSvc, logg))
		r.Get("/orders/{id}/assets", controllers.OrderDownloads(assetsSvc, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireActor(logg))
			r.Get("/stores/{id}/orders", controllers.ListStoreOrders(ordersSvc, logg))
			r.Get("/ledger/balance", controllers.MyBalance(ledgerSvc, logg))
			r.Post("/payouts", controllers.RequestPayout(payoutsSvc, logg))
			r.Get("/payouts", controllers.MyPayouts(payoutsSvc, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, middleware.RoleSupplier, middleware.RoleAdmin))
			r.Get("/dropship/items", controllers.SupplierDropshipItems(dropshipSvc, logg))
			r.Patch("/dropship/items/{id}/status", controllers.AdvanceDropshipItem(dropshipSvc, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.RequireRole(logg, middleware.RoleAdmin))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/orders/{id}/status", controllers.AdminSetOrderStatus(ordersSvc, logg))
		r.Post("/orders/{id}/finalize", controllers.AdminFinalizeOrder(ordersSvc, finalizer, logg))
		r.Get("/payouts", controllers.AdminPendingPayouts(payoutsSvc, logg))
		r.Post("/payouts/{id}/status", controllers.AdminDecidePayout(payoutsSvc, logg))
		r.Post("/ledger/adjust", controllers.AdminAdjustLedger(ledgerSvc, logg))
	})

	return r
}
