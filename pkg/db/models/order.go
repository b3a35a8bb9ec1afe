package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digikart/digikart-backend/pkg/enums"
)

// Order is the transactional aggregate for a customer purchase. Rows are never
// deleted; cancellation and failure are statuses, not removals.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	OrderNumber    int64             `gorm:"column:order_number;not null;uniqueIndex:idx_orders_order_number"`
	OrderTotal     decimal.Decimal   `gorm:"column:order_total;type:numeric(12,2);not null"`
	Status         enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Currency       enums.Currency    `gorm:"column:currency;type:text;not null;default:'INR'"`
	CouponID       *uuid.UUID        `gorm:"column:coupon_id;type:uuid"`
	GatewayOrderID *string           `gorm:"column:gateway_order_id"`
	IP             string            `gorm:"column:ip"`
	UserAgent      string            `gorm:"column:user_agent"`
	Channel        string            `gorm:"column:channel"`
	Items          []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Totals         []OrderTotal      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History        []OrderHistory    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is the immutable snapshot of one purchased option, with the price
// captured at checkout time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	OptionID    uuid.UUID       `gorm:"column:option_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	OptionName  string          `gorm:"column:option_name;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderTotal is one entry of the ordered totals breakdown. The total-coded
// entry always mirrors Order.OrderTotal.
type OrderTotal struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID        `gorm:"column:order_id;type:uuid;not null"`
	Code      enums.TotalsCode `gorm:"column:code;type:text;not null"`
	Value     decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	SortOrder int              `gorm:"column:sort_order;not null"`
}

// OrderHistory is the append-only audit trail. Order.Status always equals the
// status of the most recent entry.
type OrderHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Comment   string            `gorm:"column:comment;not null"`
	Notify    bool              `gorm:"column:notify;not null;default:false"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
