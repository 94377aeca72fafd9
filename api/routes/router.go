package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attos/attos-backend/api/controllers"
	"github.com/attos/attos-backend/api/middleware"
	"github.com/attos/attos-backend/internal/session"
	"github.com/attos/attos-backend/pkg/logger"
	"github.com/attos/attos-backend/pkg/metrics"
)

// NewRouter mounts the health, metrics and shopper API routes over one session.
func NewRouter(
	sess *session.Session,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
) http.Handler {
	cfg := sess.Config

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Metrics(httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, sess.Ready, logg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Inline so the idempotency rules see the fully resolved route pattern.
	idempotent := middleware.Idempotency(sess.IdempotencyStore(), logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(sess.Catalog, sess.Catalog.Categories))
		r.Get("/products/{productID}", controllers.GetProduct(sess.Catalog, logg))

		r.Get("/cart", controllers.GetCart(sess.Cart))
		r.Delete("/cart", controllers.ClearCart(sess.Cart))
		r.With(idempotent).Post("/cart/items", controllers.AddCartItem(sess.Cart, sess.Catalog, logg))
		r.Put("/cart/items/{productID}", controllers.UpdateCartItem(sess.Cart, logg))
		r.Delete("/cart/items/{productID}", controllers.RemoveCartItem(sess.Cart, logg))
		r.With(idempotent).Post("/cart/promo", controllers.ApplyPromo(sess.Cart, logg))
		r.Delete("/cart/promo", controllers.RemovePromo(sess.Cart))

		r.With(idempotent).Post("/orders", controllers.PlaceOrder(sess.Checkout, logg))
		r.Get("/orders", controllers.ListOrders(sess.Orders, logg))
		r.Get("/orders/{orderID}", controllers.GetOrder(sess.Orders, logg))

		r.Get("/rankings", controllers.ListRankings(sess.Rankings, logg))
	})

	return r
}
