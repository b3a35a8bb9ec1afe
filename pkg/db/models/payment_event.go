package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/digikart/digikart-backend/pkg/enums"
)

// PaymentEvent is the processed-webhook ledger. The (order_id, gateway_event_id)
// uniqueness constraint turns redelivery detection into an atomic
// check-and-insert instead of a read-then-write over history comments.
type PaymentEvent struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_payment_events_order_event,priority:1"`
	GatewayEventID   string             `gorm:"column:gateway_event_id;not null;uniqueIndex:idx_payment_events_order_event,priority:2"`
	Event            enums.WebhookEvent `gorm:"column:event;type:text;not null"`
	GatewayPaymentID string             `gorm:"column:gateway_payment_id"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
}
