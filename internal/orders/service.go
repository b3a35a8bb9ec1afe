package orders

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/digikart/digikart-backend/pkg/db/models"
	"github.com/digikart/digikart-backend/pkg/enums"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
)

// Transition moves the order to a new status through the legal-transition
// table, appending the history entry that keeps the status/history invariant.
// Anything outside the table is rejected with a state conflict.
func Transition(ctx context.Context, repo Repository, order *models.Order, to enums.OrderStatus, comment string, notify bool) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "order is required")
	}
	if !enums.CanTransition(order.Status, to) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order cannot move from %s to %s", order.Status, to).
			WithDetails(map[string]any{"from": order.Status.String(), "to": to.String()})
	}

	entry := &models.OrderHistory{
		OrderID: order.ID,
		Status:  to,
		Comment: comment,
		Notify:  notify,
	}
	if err := repo.AppendHistory(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}

	order.Status = to
	if err := repo.Save(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order status")
	}
	order.History = append(order.History, *entry)
	return nil
}

// BuildTotals produces the ordered totals breakdown for a subtotal and an
// optional coupon discount. The returned total always equals the value callers
// must store as the order total.
func BuildTotals(subtotal, couponDiscount decimal.Decimal) ([]models.OrderTotal, decimal.Decimal) {
	totals := []models.OrderTotal{
		{Code: enums.TotalsCodeSubtotal, Value: subtotal, SortOrder: 1},
	}
	total := subtotal
	if couponDiscount.GreaterThan(decimal.Zero) {
		totals = append(totals, models.OrderTotal{
			Code:      enums.TotalsCodeCouponDiscount,
			Value:     couponDiscount.Neg(),
			SortOrder: 2,
		})
		total = subtotal.Sub(couponDiscount)
	}
	totals = append(totals, models.OrderTotal{
		Code:      enums.TotalsCodeTotal,
		Value:     total,
		SortOrder: 3,
	})
	return totals, total
}

// Subtotal recomputes the pre-discount sum from the captured line items.
func Subtotal(order *models.Order) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range order.Items {
		sum = sum.Add(item.Price)
	}
	return sum
}

// HasHistorySince reports whether any history entry with the given comment
// fragment was appended after the cutoff. The retry cooldown rides on this.
func HasHistorySince(order *models.Order, commentFragment string, cutoff time.Time) bool {
	for _, entry := range order.History {
		if entry.CreatedAt.After(cutoff) && strings.Contains(entry.Comment, commentFragment) {
			return true
		}
	}
	return false
}

// HistoryReferences reports whether any history entry with the target status
// already embeds the given gateway identifier. Events recorded before the
// processed-event ledger existed are recognized through this.
func HistoryReferences(order *models.Order, status enums.OrderStatus, gatewayID string) bool {
	if gatewayID == "" {
		return false
	}
	for _, entry := range order.History {
		if entry.Status == status && strings.Contains(entry.Comment, gatewayID) {
			return true
		}
	}
	return false
}
