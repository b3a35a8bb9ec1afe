package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/digikart/digikart-backend/api/controllers"
	"github.com/digikart/digikart-backend/api/controllers/webhooks"
	"github.com/digikart/digikart-backend/internal/webhooks/razorpay"
	"github.com/digikart/digikart-backend/pkg/config"
	"github.com/digikart/digikart-backend/pkg/logger"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func testRouter(dbErr, redisErr error) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "digikart", ExpirationMinutes: 60},
	}
	return New(Params{
		Config:      cfg,
		Logger:      logg,
		Idempotency: nil,
		Registry:    prometheus.NewRegistry(),
		Health:      controllers.NewHealthController(stubPinger{err: dbErr}, stubPinger{err: redisErr}, logg),
		Cart:        controllers.NewCartController(nil, logg),
		Checkout:    controllers.NewCheckoutController(nil, nil, nil, logg),
		Coupons:     controllers.NewCouponController(nil, logg),
		Wallet:      controllers.NewWalletController(nil, logg),
		Razorpay:    webhooks.NewRazorpayController(razorpay.NewService(razorpay.ServiceParams{Logger: logg}), logg),
	})
}

func TestHealthLive(t *testing.T) {
	router := testRouter(nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthReadyReportsDependencyFailure(t *testing.T) {
	router := testRouter(errors.New("connection refused"), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := testRouter(nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAPIGroupRequiresAuth(t *testing.T) {
	router := testRouter(nil, nil)
	for _, path := range []string{"/api/v1/cart", "/api/v1/wallet"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", path, rec.Code)
		}
	}
}

func TestWebhookRouteIsPublicButSigned(t *testing.T) {
	router := testRouter(nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/razorpay", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	// No auth challenge: the route is public. The missing gateway signature
	// is what gets rejected.
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
