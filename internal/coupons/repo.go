package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digikart/digikart-backend/pkg/db/models"
	"github.com/digikart/digikart-backend/pkg/enums"
)

// UsageCounts holds the three eligibility counts checked before a coupon is
// applied. They are computed in a single query so the numbers are mutually
// consistent under concurrent redemptions.
type UsageCounts struct {
	TotalRedemptions    int64
	CustomerRedemptions int64
	OrderRedemptions    int64
}

// Repository persists coupon definitions and the redemption ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, coupon *models.Coupon) error
	Update(ctx context.Context, coupon *models.Coupon) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindAutoApply(ctx context.Context) (*models.Coupon, error)
	ClearAutoApplyExcept(ctx context.Context, keepID uuid.UUID) error

	UsageCounts(ctx context.Context, couponID, customerID, orderID uuid.UUID) (*UsageCounts, error)
	CreateUsage(ctx context.Context, usage *models.CouponUsage) error
	FindUsageByOrder(ctx context.Context, orderID uuid.UUID) (*models.CouponUsage, error)
	DeleteUsageByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) Update(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ? AND status = ?", code, enums.CouponStatusActive).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindAutoApply(ctx context.Context) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("auto_apply = ? AND status = ?", true, enums.CouponStatusActive).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ClearAutoApplyExcept unsets the auto-apply flag on every other coupon. The
// partial unique index on coupons(auto_apply) backstops this against
// concurrent admin writes.
func (r *repository) ClearAutoApplyExcept(ctx context.Context, keepID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("auto_apply = ? AND id <> ?", true, keepID).
		Update("auto_apply", false).Error
}

// UsageCounts loads all three counts in one statement so limit checks never
// read the ledger at two different points in time.
func (r *repository) UsageCounts(ctx context.Context, couponID, customerID, orderID uuid.UUID) (*UsageCounts, error) {
	var counts UsageCounts
	err := r.db.WithContext(ctx).
		Raw(`SELECT
			COUNT(*) FILTER (WHERE coupon_id = @coupon) AS total_redemptions,
			COUNT(*) FILTER (WHERE coupon_id = @coupon AND customer_id = @customer) AS customer_redemptions,
			COUNT(*) FILTER (WHERE order_id = @order) AS order_redemptions
		FROM coupon_usages
		WHERE coupon_id = @coupon OR order_id = @order`,
			map[string]any{"coupon": couponID, "customer": customerID, "order": orderID}).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *repository) CreateUsage(ctx context.Context, usage *models.CouponUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repository) FindUsageByOrder(ctx context.Context, orderID uuid.UUID) (*models.CouponUsage, error) {
	var usage models.CouponUsage
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&usage).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

func (r *repository) DeleteUsageByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.CouponUsage{})
	return res.RowsAffected, res.Error
}
