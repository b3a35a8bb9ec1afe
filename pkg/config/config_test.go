package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DIGIKART_APP_ENV", "dev")
	t.Setenv("DIGIKART_DB_DSN", "postgres://localhost:5432/digikart")
	t.Setenv("DIGIKART_JWT_SECRET", "sekrit")
	t.Setenv("DIGIKART_RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("DIGIKART_RAZORPAY_KEY_SECRET", "rzp_test_secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.App.IsDev() {
		t.Fatalf("expected dev environment")
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("unexpected default port %q", cfg.App.Port)
	}
	if cfg.Checkout.RetryWindow != 24*time.Hour {
		t.Fatalf("unexpected retry window %s", cfg.Checkout.RetryWindow)
	}
	if cfg.Checkout.RetryCooldown != 5*time.Minute {
		t.Fatalf("unexpected retry cooldown %s", cfg.Checkout.RetryCooldown)
	}
	if cfg.Wallet.MinTopUp != "1" {
		t.Fatalf("unexpected wallet minimum %q", cfg.Wallet.MinTopUp)
	}
}

func TestLoadRequiresCoreSettings(t *testing.T) {
	t.Setenv("DIGIKART_APP_ENV", "")
	t.Setenv("DIGIKART_DB_DSN", "")
	t.Setenv("DIGIKART_JWT_SECRET", "")
	t.Setenv("DIGIKART_RAZORPAY_KEY_ID", "")
	t.Setenv("DIGIKART_RAZORPAY_KEY_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when required settings are missing")
	}
}

func TestWalletMinTopUpAmount(t *testing.T) {
	cfg := WalletConfig{MinTopUp: "250.50"}
	if !cfg.MinTopUpAmount().Equal(decimal.RequireFromString("250.50")) {
		t.Fatalf("unexpected minimum %s", cfg.MinTopUpAmount())
	}
	for _, bad := range []string{"", "abc", "-5"} {
		cfg := WalletConfig{MinTopUp: bad}
		if !cfg.MinTopUpAmount().Equal(decimal.NewFromInt(1)) {
			t.Fatalf("minimum for %q should fall back to 1, got %s", bad, cfg.MinTopUpAmount())
		}
	}
}

func TestJWTAccessTokenTTL(t *testing.T) {
	cfg := JWTConfig{ExpirationMinutes: 30}
	if cfg.AccessTokenTTL() != 30*time.Minute {
		t.Fatalf("unexpected ttl %s", cfg.AccessTokenTTL())
	}
	if (JWTConfig{}).AccessTokenTTL() != time.Hour {
		t.Fatalf("zero config should default to an hour")
	}
}
