package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/digikart/digikart-backend/internal/orders"
	pkgdb "github.com/digikart/digikart-backend/pkg/db"
	"github.com/digikart/digikart-backend/pkg/db/models"
	"github.com/digikart/digikart-backend/pkg/enums"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Result describes a successful application.
type Result struct {
	CouponID       uuid.UUID       `json:"couponId"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	OrderTotal     decimal.Decimal `json:"orderTotal"`
}

// Service owns coupon redemption: eligibility, discount math, the usage
// ledger, and the admin-side definition rules.
type Service struct {
	db     txRunner
	repo   Repository
	orders orders.Repository
	logger *logger.Logger
}

type ServiceParams struct {
	DB     txRunner
	Repo   Repository
	Orders orders.Repository
	Logger *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{
		db:     params.DB,
		repo:   params.Repo,
		orders: params.Orders,
		logger: params.Logger,
	}
}

// Apply redeems a coupon code against a pending order. The order's totals are
// rewritten, but no ledger row is created here; the usage budget is consumed
// only when the order is paid.
func (s *Service) Apply(ctx context.Context, customerID, orderID uuid.UUID, code string) (*Result, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	order, err := s.orders.FindByIDForCustomer(ctx, orderID, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	coupon, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	return s.applyCoupon(ctx, order, coupon, customerID)
}

// AutoApply tries the single auto-apply coupon against the order. Ineligibility
// is not an error: the order is simply left untouched and nil is returned.
func (s *Service) AutoApply(ctx context.Context, customerID, orderID uuid.UUID) (*Result, error) {
	order, err := s.orders.FindByIDForCustomer(ctx, orderID, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	coupon, err := s.repo.FindAutoApply(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load auto-apply coupon")
	}

	result, err := s.applyCoupon(ctx, order, coupon, customerID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeDependency && typed.Code() != pkgerrors.CodeInternal {
			s.logger.Info(ctx, "auto-apply coupon not eligible: "+typed.Message())
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) applyCoupon(ctx context.Context, order *models.Order, coupon *models.Coupon, customerID uuid.UUID) (*Result, error) {
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "coupons only apply to pending orders, order is %s", order.Status)
	}
	if order.CouponID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has a coupon applied")
	}
	if !withinWindow(coupon, time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not currently active")
	}

	subtotal := orders.Subtotal(order)
	if subtotal.LessThan(coupon.MinAmount) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "order subtotal below coupon minimum of %s", coupon.MinAmount)
	}
	if coupon.Type == enums.CouponTypeFixed && coupon.Discount.GreaterThan(coupon.MinAmount) {
		// Stored-data invariant re-checked at use time.
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fixed coupon discount exceeds its minimum amount")
	}

	counts, err := s.repo.UsageCounts(ctx, coupon.ID, customerID, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon usage counts")
	}
	if counts.OrderRedemptions > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already redeemed a coupon")
	}
	if coupon.UsageLimit > 0 && counts.TotalRedemptions >= int64(coupon.UsageLimit) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")
	}
	if coupon.UsagePerCustomer > 0 && counts.CustomerRedemptions >= int64(coupon.UsagePerCustomer) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit for this customer reached")
	}

	discount := Discount(coupon, subtotal)
	totals, total := orders.BuildTotals(subtotal, discount)

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txOrders := s.orders.WithTx(tx)
		if err := txOrders.ReplaceTotals(ctx, order.ID, totals); err != nil {
			return err
		}
		order.CouponID = &coupon.ID
		order.OrderTotal = total
		return txOrders.Save(ctx, order)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply coupon to order")
	}

	return &Result{
		CouponID:       coupon.ID,
		Code:           coupon.Code,
		DiscountAmount: discount,
		OrderTotal:     total,
	}, nil
}

// Reverse removes the order's redemption: the ledger row goes away (no-op when
// absent) and the totals return to the pre-discount subtotal. Runs inside the
// caller's transaction when one is given.
func (s *Service) Reverse(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if _, err := s.repo.WithTx(tx).DeleteUsageByOrder(ctx, order.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon usage")
	}
	if order.CouponID == nil {
		return nil
	}

	subtotal := orders.Subtotal(order)
	totals, total := orders.BuildTotals(subtotal, decimal.Zero)

	txOrders := s.orders.WithTx(tx)
	if err := txOrders.ReplaceTotals(ctx, order.ID, totals); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset order totals")
	}
	order.CouponID = nil
	order.OrderTotal = total
	if err := txOrders.Save(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order after coupon reversal")
	}
	entry := &models.OrderHistory{
		OrderID: order.ID,
		Status:  order.Status,
		Comment: "Coupon reversed, totals restored to subtotal",
	}
	if err := txOrders.AppendHistory(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append reversal history")
	}
	order.History = append(order.History, *entry)
	return nil
}

// Commit writes the usage ledger row for a couponed order that just became
// paid. Redelivered confirmations hit either the pre-check or the unique
// order index and leave a single row behind.
func (s *Service) Commit(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order.CouponID == nil {
		return nil
	}

	repo := s.repo.WithTx(tx)
	if _, err := repo.FindUsageByOrder(ctx, order.ID); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check coupon usage")
	}

	usage := &models.CouponUsage{
		ID:             uuid.New(),
		CouponID:       *order.CouponID,
		CustomerID:     order.CustomerID,
		OrderID:        order.ID,
		DiscountAmount: discountFromTotals(order),
		OrderTotal:     order.OrderTotal,
	}
	if err := repo.CreateUsage(ctx, usage); err != nil {
		if pkgdb.IsUniqueViolation(err, "idx_coupon_usages_order") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon usage")
	}
	return nil
}

// Create registers a new coupon definition.
func (s *Service) Create(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = strings.TrimSpace(strings.ToUpper(coupon.Code))
	if err := validateDefinition(coupon); err != nil {
		return err
	}
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if coupon.AutoApply {
			if err := repo.ClearAutoApplyExcept(ctx, coupon.ID); err != nil {
				return err
			}
		}
		return repo.Create(ctx, coupon)
	})
	if err != nil {
		if pkgdb.IsUniqueViolation(err, "idx_coupons_code") {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		if pkgdb.IsUniqueViolation(err, "idx_coupons_auto_apply_single") {
			return pkgerrors.New(pkgerrors.CodeConflict, "another coupon is already auto-apply")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return nil
}

// Update rewrites an existing coupon definition under the same rules as Create.
func (s *Service) Update(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = strings.TrimSpace(strings.ToUpper(coupon.Code))
	if err := validateDefinition(coupon); err != nil {
		return err
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if coupon.AutoApply {
			if err := repo.ClearAutoApplyExcept(ctx, coupon.ID); err != nil {
				return err
			}
		}
		return repo.Update(ctx, coupon)
	})
	if err != nil {
		if pkgdb.IsUniqueViolation(err, "idx_coupons_code") {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		if pkgdb.IsUniqueViolation(err, "idx_coupons_auto_apply_single") {
			return pkgerrors.New(pkgerrors.CodeConflict, "another coupon is already auto-apply")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	return nil
}

// Discount computes the amount a coupon takes off the given subtotal, clamped
// by the coupon's max discount and by the subtotal itself.
func Discount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.Type {
	case enums.CouponTypePercentage:
		discount = subtotal.Mul(coupon.Discount).Div(decimal.NewFromInt(100)).Round(2)
	default:
		discount = coupon.Discount
	}
	if coupon.MaxDiscount.GreaterThan(decimal.Zero) && discount.GreaterThan(coupon.MaxDiscount) {
		discount = coupon.MaxDiscount
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount
}

func validateDefinition(coupon *models.Coupon) error {
	if coupon.Code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !coupon.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid coupon type %q", coupon.Type)
	}
	if !coupon.Discount.GreaterThan(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon discount must be positive")
	}
	if coupon.Type == enums.CouponTypePercentage && coupon.Discount.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if coupon.Type == enums.CouponTypeFixed && coupon.Discount.GreaterThan(coupon.MinAmount) {
		return pkgerrors.New(pkgerrors.CodeValidation, "fixed coupon discount cannot exceed its minimum order amount")
	}
	if coupon.MinAmount.IsNegative() || coupon.MaxDiscount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon amounts cannot be negative")
	}
	return nil
}

func withinWindow(coupon *models.Coupon, now time.Time) bool {
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return false
	}
	if coupon.EndsAt != nil && now.After(*coupon.EndsAt) {
		return false
	}
	return true
}

func discountFromTotals(order *models.Order) decimal.Decimal {
	for _, total := range order.Totals {
		if total.Code == enums.TotalsCodeCouponDiscount {
			return total.Value.Neg()
		}
	}
	return decimal.Zero
}
