package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/procurehub/backend/api/controllers"
	"github.com/procurehub/backend/api/middleware"
	basketsvc "github.com/procurehub/backend/internal/basket"
	catalogsvc "github.com/procurehub/backend/internal/catalog"
	contactsvc "github.com/procurehub/backend/internal/contacts"
	jobsvc "github.com/procurehub/backend/internal/jobs"
	ordersvc "github.com/procurehub/backend/internal/orders"
	"github.com/procurehub/backend/pkg/config"
	"github.com/procurehub/backend/pkg/enums"
	"github.com/procurehub/backend/pkg/logger"
	"github.com/procurehub/backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisClient *redis.Client,
	catalogService catalogsvc.Service,
	basketService basketsvc.Service,
	contactService contactsvc.Service,
	orderService ordersvc.Service,
	jobService jobsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	// a typed nil *redis.Client would defeat the middlewares' nil checks
	browseLimit := middleware.BrowseRateLimit(cfg.RateLimit, nil, logg)
	idempotency := middleware.Idempotency(nil, logg)
	var cachePinger controllers.Pinger
	if redisClient != nil {
		browseLimit = middleware.BrowseRateLimit(cfg.RateLimit, redisClient, logg)
		idempotency = middleware.Idempotency(redisClient, logg)
		cachePinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbPinger, cachePinger))
	})

	// public catalog browsing
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Use(browseLimit)

		r.Get("/products", controllers.ListProducts(catalogService, logg))
		r.Get("/products/{listingID}", controllers.GetProduct(catalogService, logg))
		r.Get("/categories", controllers.ListCategories(catalogService, logg))
		r.Get("/shops", controllers.ListShops(catalogService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(idempotency)

		r.Route("/basket", func(r chi.Router) {
			r.Use(middleware.RequireUserType(enums.UserTypeBuyer, logg))

			r.Get("/", controllers.BasketView(basketService, logg))
			r.Post("/items", controllers.BasketAdd(basketService, logg))
			r.Delete("/items/{listingID}", controllers.BasketRemove(basketService, logg))
			r.Delete("/", controllers.BasketClear(basketService, logg))
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Use(middleware.RequireUserType(enums.UserTypeBuyer, logg))

			r.Post("/", controllers.ContactCreate(contactService, logg))
			r.Get("/", controllers.ContactList(contactService, logg))
			r.Put("/{contactID}", controllers.ContactUpdate(contactService, logg))
			r.Delete("/{contactID}", controllers.ContactDelete(contactService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireUserType(enums.UserTypeBuyer, logg))

			r.Post("/", controllers.PlaceOrder(orderService, logg))
			r.Get("/", controllers.ListMyOrders(orderService, logg))
			r.Get("/{orderID}", controllers.GetMyOrder(orderService, logg))
		})

		r.Route("/partner", func(r chi.Router) {
			r.Use(middleware.RequireUserType(enums.UserTypeShop, logg))

			r.Get("/state", controllers.PartnerState(catalogService, logg))
			r.Post("/state", controllers.SetPartnerState(catalogService, logg))
			r.Post("/import", controllers.SubmitImport(jobService, logg))
			r.Post("/export", controllers.SubmitExport(jobService, logg))
			r.Get("/orders", controllers.PartnerOrders(orderService, logg))
			r.Post("/orders/{orderID}/state", controllers.UpdateOrderState(orderService, logg))
			r.Get("/low-stock", controllers.LowStock(orderService, logg))
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/{jobID}", controllers.GetJob(jobService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireUserType(enums.UserTypeStaff, logg))

			r.Get("/stats", controllers.AdminStats(orderService, logg))
		})
	})

	return r
}
