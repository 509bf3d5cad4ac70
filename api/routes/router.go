package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/giftdrop-backend/api/controllers"
	"github.com/angelmondragon/giftdrop-backend/api/middleware"
	"github.com/angelmondragon/giftdrop-backend/internal/catalog"
	"github.com/angelmondragon/giftdrop-backend/internal/chat"
	"github.com/angelmondragon/giftdrop-backend/internal/orders"
	"github.com/angelmondragon/giftdrop-backend/pkg/config"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
)

// RouterParams carry everything the HTTP surface serves.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Pingers    map[string]controllers.Pinger
	Metrics    http.Handler
	ChatRouter *chat.Router
	Catalog    catalog.Service
	OrdersRepo orders.Repository
	Orders     orders.Service
	Deliverer  controllers.Deliverer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Pingers))
	})
	r.Get("/healthz", controllers.HealthLive(cfg))

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics)
	}

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/chat/{token}", controllers.ChatWebhook(params.ChatRouter, cfg.Telegram.WebhookSecret, logg))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.OperatorAuth(cfg.Operators, logg))

		r.Get("/orders", controllers.ListOrders(params.OrdersRepo, logg))
		r.Post("/orders/{id}/confirm", controllers.ConfirmOrder(params.Orders, logg))
		r.Post("/orders/{id}/decline", controllers.DeclineOrder(params.Orders, logg))
		r.Post("/orders/{id}/deliver", controllers.DeliverOrder(params.Deliverer, logg))

		r.Get("/items", controllers.ListItems(params.Catalog, logg))
		r.Post("/items", controllers.CreateItem(params.Catalog, logg))
	})

	return r
}
