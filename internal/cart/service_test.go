package cart

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/digikart/digikart-backend/internal/products"
	"github.com/digikart/digikart-backend/pkg/db/models"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/logger"
)

type fakeRepository struct {
	items  []models.CartItem
	addErr error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]models.CartItem, error) {
	var out []models.CartItem
	for _, item := range f.items {
		if item.CustomerID == customerID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeRepository) Add(_ context.Context, item *models.CartItem) error {
	if f.addErr != nil {
		return f.addErr
	}
	for _, existing := range f.items {
		if existing.CustomerID == item.CustomerID && existing.OptionID == item.OptionID {
			return errors.New(`duplicate key value violates unique constraint "idx_cart_items_customer_option"`)
		}
	}
	f.items = append(f.items, *item)
	return nil
}

func (f *fakeRepository) Remove(_ context.Context, customerID, itemID uuid.UUID) (int64, error) {
	for i, item := range f.items {
		if item.ID == itemID && item.CustomerID == customerID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeRepository) Clear(_ context.Context, customerID uuid.UUID) error {
	var kept []models.CartItem
	for _, item := range f.items {
		if item.CustomerID != customerID {
			kept = append(kept, item)
		}
	}
	f.items = kept
	return nil
}

type fakeCatalog struct {
	options map[uuid.UUID]products.ResolvedOption
}

func (f *fakeCatalog) FindOption(_ context.Context, optionID uuid.UUID) (*products.ResolvedOption, error) {
	r, ok := f.options[optionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (f *fakeCatalog) ResolveOptions(_ context.Context, optionIDs []uuid.UUID) ([]products.ResolvedOption, error) {
	var out []products.ResolvedOption
	for _, id := range optionIDs {
		if r, ok := f.options[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func catalogWith(option models.ProductOption, product models.Product) *fakeCatalog {
	return &fakeCatalog{options: map[uuid.UUID]products.ResolvedOption{
		option.ID: {Option: option, Product: product},
	}}
}

func testService(repo Repository, catalog products.Repository) *Service {
	return NewService(ServiceParams{
		Repo:     repo,
		Products: catalog,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
}

func TestAddItemIsIdempotentPerOption(t *testing.T) {
	product := models.Product{ID: uuid.New(), Name: "Synth Pack", Active: true}
	option := models.ProductOption{ID: uuid.New(), ProductID: product.ID, Name: "WAV", Price: decimal.NewFromInt(200)}
	repo := &fakeRepository{}
	svc := testService(repo, catalogWith(option, product))
	customerID := uuid.New()

	if err := svc.AddItem(context.Background(), customerID, option.ID); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := svc.AddItem(context.Background(), customerID, option.ID); err != nil {
		t.Fatalf("second add should be a no-op, got %v", err)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected 1 cart item, got %d", len(repo.items))
	}
}

func TestAddItemUnknownOption(t *testing.T) {
	svc := testService(&fakeRepository{}, &fakeCatalog{options: map[uuid.UUID]products.ResolvedOption{}})

	err := svc.AddItem(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestOverviewSumsResolvedLines(t *testing.T) {
	product := models.Product{ID: uuid.New(), Name: "Synth Pack", Active: true}
	option := models.ProductOption{ID: uuid.New(), ProductID: product.ID, Name: "WAV", Price: decimal.RequireFromString("149.50")}
	staleOption := uuid.New()

	customerID := uuid.New()
	repo := &fakeRepository{items: []models.CartItem{
		{ID: uuid.New(), CustomerID: customerID, ProductID: product.ID, OptionID: option.ID},
		{ID: uuid.New(), CustomerID: customerID, ProductID: uuid.New(), OptionID: staleOption},
	}}
	svc := testService(repo, catalogWith(option, product))

	overview, err := svc.Overview(context.Background(), customerID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(overview.Lines) != 1 {
		t.Fatalf("stale option should be dropped, got %d lines", len(overview.Lines))
	}
	if !overview.Subtotal.Equal(decimal.RequireFromString("149.50")) {
		t.Fatalf("subtotal = %s", overview.Subtotal)
	}
}

func TestRemoveItemMiss(t *testing.T) {
	svc := testService(&fakeRepository{}, &fakeCatalog{})

	err := svc.RemoveItem(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
