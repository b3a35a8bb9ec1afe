package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/digikart/digikart-backend/api/controllers"
	"github.com/digikart/digikart-backend/api/controllers/webhooks"
	"github.com/digikart/digikart-backend/api/routes"
	"github.com/digikart/digikart-backend/internal/cart"
	"github.com/digikart/digikart-backend/internal/checkout"
	"github.com/digikart/digikart-backend/internal/coupons"
	"github.com/digikart/digikart-backend/internal/customers"
	"github.com/digikart/digikart-backend/internal/notifications"
	"github.com/digikart/digikart-backend/internal/orders"
	"github.com/digikart/digikart-backend/internal/products"
	"github.com/digikart/digikart-backend/internal/wallet"
	razorpaywebhooks "github.com/digikart/digikart-backend/internal/webhooks/razorpay"
	"github.com/digikart/digikart-backend/pkg/config"
	"github.com/digikart/digikart-backend/pkg/db"
	"github.com/digikart/digikart-backend/pkg/gateway"
	"github.com/digikart/digikart-backend/pkg/logger"
	"github.com/digikart/digikart-backend/pkg/metrics"
	"github.com/digikart/digikart-backend/pkg/migrate"
	"github.com/digikart/digikart-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "digikart"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, "no .env file loaded, relying on process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "loading configuration", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "digikart",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server exited", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			logg.Error(ctx, "closing database", closeErr)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			logg.Error(ctx, "closing redis", closeErr)
		}
	}()

	paymentGateway, err := gateway.NewRazorpay(ctx, cfg.Razorpay, logg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	gormDB := dbClient.DB()
	orderRepo := orders.NewRepository(gormDB)
	if err := orderRepo.EnsureOrderNumberFloor(ctx, cfg.Checkout.OrderNumberOffset); err != nil {
		return err
	}
	productRepo := products.NewRepository(gormDB)
	customerRepo := customers.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	couponRepo := coupons.NewRepository(gormDB)
	walletRepo := wallet.NewRepository(gormDB)

	var mailer notifications.Mailer
	if cfg.SMTP.Enabled() {
		mailer = notifications.NewSMTPMailer(cfg.SMTP)
	} else {
		logg.Warn(ctx, "smtp not configured, order emails disabled")
	}
	notificationSvc := notifications.NewService(notifications.ServiceParams{
		Mailer:    mailer,
		Customers: customerRepo,
		Logger:    logg,
	})

	cartSvc := cart.NewService(cart.ServiceParams{
		Repo:     cartRepo,
		Products: productRepo,
		Logger:   logg,
	})

	couponSvc := coupons.NewService(coupons.ServiceParams{
		DB:     dbClient,
		Repo:   couponRepo,
		Orders: orderRepo,
		Logger: logg,
	})

	walletSvc := wallet.NewService(wallet.ServiceParams{
		DB:       dbClient,
		Repo:     walletRepo,
		Gateway:  paymentGateway,
		Logger:   logg,
		MinTopUp: cfg.Wallet.MinTopUpAmount(),
		Currency: cfg.Wallet.Currency,
	})

	checkoutSvc := checkout.NewService(checkout.ServiceParams{
		DB:            dbClient,
		Orders:        orderRepo,
		Cart:          cartRepo,
		Products:      productRepo,
		Coupons:       couponSvc,
		Gateway:       paymentGateway,
		Notifications: notificationSvc,
		Logger:        logg,
		Currency:      cfg.Checkout.Currency,
		RetryWindow:   cfg.Checkout.RetryWindow,
		RetryCooldown: cfg.Checkout.RetryCooldown,
	})

	reconciler := razorpaywebhooks.NewService(razorpaywebhooks.ServiceParams{
		DB:            dbClient,
		Orders:        orderRepo,
		Coupons:       couponSvc,
		Cart:          cartRepo,
		Notifications: notificationSvc,
		Gateway:       paymentGateway,
		Logger:        logg,
		Metrics:       webhookMetrics,
	})

	router := routes.New(routes.Params{
		Config:      cfg,
		Logger:      logg,
		Idempotency: redisClient,
		Registry:    registry,
		Health:      controllers.NewHealthController(dbClient, redisClient, logg),
		Cart:        controllers.NewCartController(cartSvc, logg),
		Checkout:    controllers.NewCheckoutController(checkoutSvc, couponSvc, checkoutMetrics, logg),
		Coupons:     controllers.NewCouponController(couponSvc, logg),
		Wallet:      controllers.NewWalletController(walletSvc, logg),
		Razorpay:    webhooks.NewRazorpayController(reconciler, logg),
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", server.Addr), "api server listening")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var result error
	if err := server.Shutdown(shutdownCtx); err != nil {
		result = multierr.Append(result, err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		result = multierr.Append(result, err)
	}
	return result
}
