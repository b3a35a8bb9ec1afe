package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digikart/digikart-backend/pkg/enums"
)

// Coupon is the discount definition managed by admins and redeemed at checkout.
type Coupon struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string             `gorm:"column:code;not null;uniqueIndex:idx_coupons_code"`
	Type             enums.CouponType   `gorm:"column:type;type:text;not null"`
	Status           enums.CouponStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Discount         decimal.Decimal    `gorm:"column:discount;type:numeric(12,2);not null"`
	MinAmount        decimal.Decimal    `gorm:"column:min_amount;type:numeric(12,2);not null;default:0"`
	MaxDiscount      decimal.Decimal    `gorm:"column:max_discount;type:numeric(12,2);not null;default:0"`
	UsageLimit       int                `gorm:"column:usage_limit;not null;default:0"`
	UsagePerCustomer int                `gorm:"column:usage_per_customer;not null;default:0"`
	AutoApply        bool               `gorm:"column:auto_apply;not null;default:false"`
	StartsAt         *time.Time         `gorm:"column:starts_at"`
	EndsAt           *time.Time         `gorm:"column:ends_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// CouponUsage is the redemption ledger row. At most one row exists per order;
// it is created only when the order becomes paid and deleted on reversal.
type CouponUsage struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID       uuid.UUID       `gorm:"column:coupon_id;type:uuid;not null"`
	CustomerID     uuid.UUID       `gorm:"column:customer_id;type:uuid;not null"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_coupon_usages_order"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	OrderTotal     decimal.Decimal `gorm:"column:order_total;type:numeric(12,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
