package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tanvirc/bazarly-backend/api/controllers"
	"github.com/tanvirc/bazarly-backend/api/middleware"
	"github.com/tanvirc/bazarly-backend/internal/notifications"
	"github.com/tanvirc/bazarly-backend/internal/orders"
	"github.com/tanvirc/bazarly-backend/pkg/config"
	"github.com/tanvirc/bazarly-backend/pkg/db"
	"github.com/tanvirc/bazarly-backend/pkg/logger"
	pkgredis "github.com/tanvirc/bazarly-backend/pkg/redis"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	DBPinger      db.Pinger
	RedisPinger   pkgredis.Pinger
	Idempotency   pkgredis.IdempotencyStore
	Orders        *orders.Service
	Notifications *notifications.Repository
}

// NewRouter assembles the HTTP surface.
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Identity(logg),
		middleware.Idempotency(deps.Idempotency, logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireCustomer(logg))
			r.Post("/", controllers.PlaceOrder(deps.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
			r.Post("/{orderId}/payment", controllers.ConfirmPayment(deps.Orders, logg))
		})

		r.Route("/rider/deliveries", func(r chi.Router) {
			r.Use(middleware.RequireRider(logg))
			r.Get("/", controllers.BrowseDeliveries(deps.Orders, logg))
			r.Post("/{deliveryId}/accept", controllers.AcceptDelivery(deps.Orders, logg))
			r.Post("/{deliveryId}/schedule", controllers.ScheduleDelivery(deps.Orders, logg))
			r.Post("/{deliveryId}/arrive", controllers.MarkArrival(deps.Orders, logg))
			r.Post("/{deliveryId}/cancel", controllers.RiderCancelDelivery(deps.Orders, logg))
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Get("/restorable", controllers.ListRestorableOrders(deps.Orders, logg))
			r.Post("/{orderId}/restore", controllers.RestoreOrderStock(deps.Orders, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	return r
}
