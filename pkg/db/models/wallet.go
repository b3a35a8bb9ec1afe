package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digikart/digikart-backend/pkg/enums"
)

// Wallet is the per-customer stored-value balance. Balance never goes below
// zero; mutations happen only inside the wallet service transaction.
type Wallet struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:idx_wallets_customer"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	Currency   enums.Currency  `gorm:"column:currency;type:text;not null;default:'INR'"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// WalletTransaction is the immutable movement log. GatewayPaymentID is the
// idempotency key for top-ups: a redelivered confirmation for the same payment
// must not produce a second row.
type WalletTransaction struct {
	ID               uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID         uuid.UUID                     `gorm:"column:wallet_id;type:uuid;not null"`
	Amount           decimal.Decimal               `gorm:"column:amount;type:numeric(12,2);not null"`
	Type             enums.WalletTransactionType   `gorm:"column:type;type:text;not null"`
	Status           enums.WalletTransactionStatus `gorm:"column:status;type:text;not null"`
	GatewayOrderID   string                        `gorm:"column:gateway_order_id"`
	GatewayPaymentID string                        `gorm:"column:gateway_payment_id;not null;uniqueIndex:idx_wallet_transactions_payment"`
	CreatedAt        time.Time                     `gorm:"column:created_at;autoCreateTime"`
}
