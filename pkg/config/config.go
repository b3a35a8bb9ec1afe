package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/digikart/digikart-backend/pkg/enums"
)

// EnvPrefix is the envconfig namespace for all storefront settings.
const EnvPrefix = "DIGIKART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Config is the full runtime configuration for the storefront backend.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	SMTP         SMTPConfig
	Checkout     CheckoutConfig
	Wallet       WalletConfig
	FeatureFlags FeatureFlagsConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DIGIKART_APP_ENV" required:"true"`
	Port         string `envconfig:"DIGIKART_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"DIGIKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DIGIKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN             string        `envconfig:"DIGIKART_DB_DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"DIGIKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DIGIKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DIGIKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DIGIKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DIGIKART_REDIS_URL"`
	Address      string        `envconfig:"DIGIKART_REDIS_ADDR"`
	Password     string        `envconfig:"DIGIKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"DIGIKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DIGIKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DIGIKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIGIKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DIGIKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DIGIKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DIGIKART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DIGIKART_JWT_ISSUER" default:"digikart"`
	ExpirationMinutes int    `envconfig:"DIGIKART_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type RazorpayConfig struct {
	KeyID         string `envconfig:"DIGIKART_RAZORPAY_KEY_ID" required:"true"`
	KeySecret     string `envconfig:"DIGIKART_RAZORPAY_KEY_SECRET" required:"true"`
	WebhookSecret string `envconfig:"DIGIKART_RAZORPAY_WEBHOOK_SECRET"`
}

type SMTPConfig struct {
	Host     string `envconfig:"DIGIKART_SMTP_HOST"`
	Port     int    `envconfig:"DIGIKART_SMTP_PORT" default:"587"`
	Username string `envconfig:"DIGIKART_SMTP_USERNAME"`
	Password string `envconfig:"DIGIKART_SMTP_PASSWORD"`
	From     string `envconfig:"DIGIKART_SMTP_FROM" default:"orders@digikart.example"`
}

// Enabled reports whether outbound mail is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

type CheckoutConfig struct {
	Currency          enums.Currency `envconfig:"DIGIKART_CHECKOUT_CURRENCY" default:"INR"`
	RetryWindow       time.Duration  `envconfig:"DIGIKART_CHECKOUT_RETRY_WINDOW" default:"24h"`
	RetryCooldown     time.Duration  `envconfig:"DIGIKART_CHECKOUT_RETRY_COOLDOWN" default:"5m"`
	OrderNumberOffset int64          `envconfig:"DIGIKART_CHECKOUT_ORDER_NUMBER_OFFSET" default:"10000"`
}

type WalletConfig struct {
	MinTopUp string         `envconfig:"DIGIKART_WALLET_MIN_TOPUP" default:"1"`
	Currency enums.Currency `envconfig:"DIGIKART_WALLET_CURRENCY" default:"INR"`
}

// MinTopUpAmount parses the configured minimum, falling back to 1 when the
// value is not a valid decimal.
func (w WalletConfig) MinTopUpAmount() decimal.Decimal {
	amount, err := decimal.NewFromString(w.MinTopUp)
	if err != nil || amount.Sign() <= 0 {
		return decimal.NewFromInt(1)
	}
	return amount
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DIGIKART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DIGIKART_AUTO_MIGRATE" default:"false"`
}
