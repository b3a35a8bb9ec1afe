package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product option sitting in a customer's cart. Digital goods
// carry no quantity; an option is either in the cart or not.
type CartItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:idx_cart_items_customer_option,priority:1"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	OptionID   uuid.UUID `gorm:"column:option_id;type:uuid;not null;uniqueIndex:idx_cart_items_customer_option,priority:2"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
