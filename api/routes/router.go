package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/digikart/digikart-backend/api/controllers"
	"github.com/digikart/digikart-backend/api/controllers/webhooks"
	"github.com/digikart/digikart-backend/api/middleware"
	"github.com/digikart/digikart-backend/pkg/config"
	"github.com/digikart/digikart-backend/pkg/logger"
	"github.com/digikart/digikart-backend/pkg/redis"
)

// Params carries everything the router wires together.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Idempotency redis.IdempotencyStore
	Registry    *prometheus.Registry

	Health   *controllers.HealthController
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Coupons  *controllers.CouponController
	Wallet   *controllers.WalletController
	Razorpay *webhooks.RazorpayController
}

// New builds the HTTP routing tree. Webhooks and health stay outside the
// authenticated group; everything under /api/v1 requires a bearer token and
// the payment routes additionally require an idempotency key.
func New(params Params) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer(params.Logger))
	r.Use(middleware.RequestID(params.Logger))
	r.Use(middleware.Logging(params.Logger))

	r.Get("/health/live", params.Health.Live)
	r.Get("/health/ready", params.Health.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))

	r.Post("/api/v1/webhooks/razorpay", params.Razorpay.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(params.Config.JWT, params.Logger))
		r.Use(middleware.Idempotency(params.Idempotency, params.Logger))

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", params.Checkout.Start)
			r.Get("/{orderId}", params.Checkout.Status)
			r.Post("/{orderId}/payment-order", params.Checkout.CreatePaymentOrder)
			r.Post("/{orderId}/verify", params.Checkout.Complete)
			r.Post("/{orderId}/cancel", params.Checkout.Cancel)
			r.Post("/{orderId}/payment-failed", params.Checkout.MarkPaymentFailed)
			r.Post("/{orderId}/retry", params.Checkout.Retry)
		})

		r.Route("/orders/{orderId}/coupon", func(r chi.Router) {
			r.Post("/", params.Coupons.Apply)
			r.Post("/auto", params.Coupons.AutoApply)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", params.Wallet.Overview)
			r.Post("/topup", params.Wallet.TopUp)
			r.Post("/topup/verify", params.Wallet.VerifyTopUp)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", params.Cart.List)
			r.Post("/items", params.Cart.AddItem)
			r.Delete("/items/{itemId}", params.Cart.RemoveItem)
		})
	})

	return r
}
