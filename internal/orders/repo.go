package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digikart/digikart-backend/pkg/db/models"
	"github.com/digikart/digikart-backend/pkg/enums"
)

// Repository is the persistence surface for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) error
	Save(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForCustomer(ctx context.Context, id, customerID uuid.UUID) (*models.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)

	AppendHistory(ctx context.Context, entry *models.OrderHistory) error
	ReplaceTotals(ctx context.Context, orderID uuid.UUID, totals []models.OrderTotal) error

	NextOrderNumber(ctx context.Context) (int64, error)
	EnsureOrderNumberFloor(ctx context.Context, floor int64) error
	PurchasedOptionIDs(ctx context.Context, customerID uuid.UUID, optionIDs []uuid.UUID) ([]uuid.UUID, error)

	CreatePaymentEvent(ctx context.Context, event *models.PaymentEvent) error
	HasPaymentEvent(ctx context.Context, orderID uuid.UUID, gatewayEventID string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Save persists the order's own columns. Associations are written through
// their dedicated methods so history stays append-only.
func (r *repository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Omit("Items", "Totals", "History").
		Save(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Totals", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForCustomer(ctx context.Context, id, customerID uuid.UUID) (*models.Order, error) {
	order, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (r *repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, order.ID)
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ReplaceTotals(ctx context.Context, orderID uuid.UUID, totals []models.OrderTotal) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderTotal{}).Error; err != nil {
		return err
	}
	if len(totals) == 0 {
		return nil
	}
	for i := range totals {
		totals[i].OrderID = orderID
	}
	return tx.Create(&totals).Error
}

// NextOrderNumber atomically increments and returns the order number counter.
func (r *repository) NextOrderNumber(ctx context.Context) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).
		Raw("UPDATE counters SET value = value + 1 WHERE name = ? RETURNING value", models.CounterOrderNumber).
		Scan(&value).Error
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, errors.New("order number counter missing")
	}
	return value, nil
}

// EnsureOrderNumberFloor lifts the counter to the configured offset so the
// first allocated number starts above it. Counters already past the floor are
// left alone.
func (r *repository) EnsureOrderNumberFloor(ctx context.Context, floor int64) error {
	if floor <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec("UPDATE counters SET value = ? WHERE name = ? AND value < ?",
			floor, models.CounterOrderNumber, floor).Error
}

// PurchasedOptionIDs returns, in one aggregation, which of the given options
// the customer already bought in any paid order. Digital files are sold once
// per customer.
func (r *repository) PurchasedOptionIDs(ctx context.Context, customerID uuid.UUID, optionIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(optionIDs) == 0 {
		return nil, nil
	}
	var owned []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Distinct("order_items.option_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.customer_id = ?", customerID).
		Where("orders.status = ?", enums.OrderStatusPaid).
		Where("order_items.option_id IN ?", optionIDs).
		Pluck("order_items.option_id", &owned).Error
	if err != nil {
		return nil, err
	}
	return owned, nil
}

func (r *repository) CreatePaymentEvent(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) HasPaymentEvent(ctx context.Context, orderID uuid.UUID, gatewayEventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("order_id = ? AND gateway_event_id = ?", orderID, gatewayEventID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
