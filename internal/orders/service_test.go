package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/digikart/digikart-backend/pkg/db/models"
	"github.com/digikart/digikart-backend/pkg/enums"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
)

type fakeRepository struct {
	Repository
	history []models.OrderHistory
	saved   *models.Order
}

func (f *fakeRepository) AppendHistory(ctx context.Context, entry *models.OrderHistory) error {
	f.history = append(f.history, *entry)
	return nil
}

func (f *fakeRepository) Save(ctx context.Context, order *models.Order) error {
	f.saved = order
	return nil
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func TestTransitionLegalMove(t *testing.T) {
	repo := &fakeRepository{}
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending}

	if err := Transition(context.Background(), repo, order, enums.OrderStatusPaid, "payment captured (pay_1)", true); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if order.Status != enums.OrderStatusPaid {
		t.Fatalf("order status not updated: %s", order.Status)
	}
	if len(repo.history) != 1 || repo.history[0].Status != enums.OrderStatusPaid {
		t.Fatalf("history entry missing: %+v", repo.history)
	}
	if repo.saved == nil {
		t.Fatalf("order was not saved")
	}
	if len(order.History) != 1 {
		t.Fatalf("in-memory history should track the append")
	}
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	tests := []struct {
		from enums.OrderStatus
		to   enums.OrderStatus
	}{
		{enums.OrderStatusPaid, enums.OrderStatusPending},
		{enums.OrderStatusCancelled, enums.OrderStatusPaid},
		{enums.OrderStatusRefunded, enums.OrderStatusPending},
		{enums.OrderStatusFailed, enums.OrderStatusPaid},
		{enums.OrderStatusAuthorized, enums.OrderStatusCancelled},
	}
	for _, tt := range tests {
		repo := &fakeRepository{}
		order := &models.Order{ID: uuid.New(), Status: tt.from}
		err := Transition(context.Background(), repo, order, tt.to, "x", false)
		if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
			t.Fatalf("%s -> %s should be a state conflict, got %v", tt.from, tt.to, err)
		}
		if len(repo.history) != 0 {
			t.Fatalf("illegal transition must not append history")
		}
		if order.Status != tt.from {
			t.Fatalf("illegal transition must not mutate status")
		}
	}
}

func TestTransitionAllowsRetryFromFailed(t *testing.T) {
	repo := &fakeRepository{}
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusFailed}
	if err := Transition(context.Background(), repo, order, enums.OrderStatusPending, "retry attempted", false); err != nil {
		t.Fatalf("failed -> pending should be legal: %v", err)
	}
}

func TestBuildTotalsWithDiscount(t *testing.T) {
	subtotal := decimal.NewFromInt(200)
	discount := decimal.NewFromInt(20)

	totals, total := BuildTotals(subtotal, discount)

	if !total.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("total = %s, want 180", total)
	}
	if len(totals) != 3 {
		t.Fatalf("expected subtotal/couponDiscount/total entries, got %d", len(totals))
	}
	if totals[1].Code != enums.TotalsCodeCouponDiscount || !totals[1].Value.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("discount entry wrong: %+v", totals[1])
	}
	// the total-coded entry must mirror the returned order total
	if totals[2].Code != enums.TotalsCodeTotal || !totals[2].Value.Equal(total) {
		t.Fatalf("total entry must equal order total: %+v", totals[2])
	}
}

func TestBuildTotalsWithoutDiscount(t *testing.T) {
	totals, total := BuildTotals(decimal.NewFromInt(50), decimal.Zero)
	if len(totals) != 2 {
		t.Fatalf("no discount entry expected, got %d entries", len(totals))
	}
	if !total.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("total = %s, want 50", total)
	}
}

func TestSubtotalSumsLineItems(t *testing.T) {
	order := &models.Order{Items: []models.OrderItem{
		{Price: decimal.NewFromInt(120)},
		{Price: decimal.NewFromInt(80)},
	}}
	if !Subtotal(order).Equal(decimal.NewFromInt(200)) {
		t.Fatalf("subtotal = %s, want 200", Subtotal(order))
	}
}

func TestHasHistorySince(t *testing.T) {
	now := time.Now()
	order := &models.Order{History: []models.OrderHistory{
		{Comment: "payment retry attempted", CreatedAt: now.Add(-10 * time.Minute)},
		{Comment: "payment retry attempted", CreatedAt: now.Add(-2 * time.Minute)},
	}}
	if !HasHistorySince(order, "retry attempted", now.Add(-5*time.Minute)) {
		t.Fatalf("recent retry marker should be found")
	}
	if HasHistorySince(order, "retry attempted", now.Add(-1*time.Minute)) {
		t.Fatalf("no marker within the last minute")
	}
}

func TestHistoryReferences(t *testing.T) {
	order := &models.Order{History: []models.OrderHistory{
		{Status: enums.OrderStatusPaid, Comment: "payment captured via webhook (pay_123)"},
	}}
	if !HistoryReferences(order, enums.OrderStatusPaid, "pay_123") {
		t.Fatalf("gateway id embedded in history should be recognized")
	}
	if HistoryReferences(order, enums.OrderStatusPaid, "pay_999") {
		t.Fatalf("unrelated gateway id should not match")
	}
	if HistoryReferences(order, enums.OrderStatusPaid, "") {
		t.Fatalf("empty gateway id should never match")
	}
}
