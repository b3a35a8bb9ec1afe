package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/digikart/digikart-backend/internal/products"
	pkgdb "github.com/digikart/digikart-backend/pkg/db"
	"github.com/digikart/digikart-backend/pkg/db/models"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/logger"
)

// Line is a cart item resolved against the catalog.
type Line struct {
	ItemID      uuid.UUID       `json:"itemId"`
	ProductID   uuid.UUID       `json:"productId"`
	OptionID    uuid.UUID       `json:"optionId"`
	ProductName string          `json:"productName"`
	OptionName  string          `json:"optionName"`
	Price       decimal.Decimal `json:"price"`
}

// Overview is the cart as the storefront renders it.
type Overview struct {
	Lines    []Line          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Service manages the per-customer cart. Checkout reads it to build orders and
// the payment reconciler clears it once an order is paid.
type Service struct {
	repo     Repository
	products products.Repository
	logger   *logger.Logger
}

type ServiceParams struct {
	Repo     Repository
	Products products.Repository
	Logger   *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{
		repo:     params.Repo,
		products: params.Products,
		logger:   params.Logger,
	}
}

// Overview resolves the cart against the catalog. Items whose product has
// been deactivated since they were added are silently dropped from the view.
func (s *Service) Overview(ctx context.Context, customerID uuid.UUID) (*Overview, error) {
	items, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}

	optionIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		optionIDs = append(optionIDs, item.OptionID)
	}
	resolved, err := s.products.ResolveOptions(ctx, optionIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cart options")
	}

	byOption := make(map[uuid.UUID]products.ResolvedOption, len(resolved))
	for _, r := range resolved {
		byOption[r.Option.ID] = r
	}

	overview := &Overview{Lines: []Line{}, Subtotal: decimal.Zero}
	for _, item := range items {
		r, ok := byOption[item.OptionID]
		if !ok {
			continue
		}
		overview.Lines = append(overview.Lines, Line{
			ItemID:      item.ID,
			ProductID:   r.Product.ID,
			OptionID:    r.Option.ID,
			ProductName: r.Product.Name,
			OptionName:  r.Option.Name,
			Price:       r.Option.Price,
		})
		overview.Subtotal = overview.Subtotal.Add(r.Option.Price)
	}
	return overview, nil
}

// AddItem puts a product option in the cart. Re-adding an option the cart
// already holds is treated as a no-op rather than a conflict.
func (s *Service) AddItem(ctx context.Context, customerID, optionID uuid.UUID) error {
	resolved, err := s.products.FindOption(ctx, optionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product option not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve product option")
	}

	item := &models.CartItem{
		ID:         uuid.New(),
		CustomerID: customerID,
		ProductID:  resolved.Product.ID,
		OptionID:   resolved.Option.ID,
	}
	if err := s.repo.Add(ctx, item); err != nil {
		if pkgdb.IsUniqueViolation(err, "idx_cart_items_customer_option") {
			s.logger.Info(ctx, "cart item already present, skipping")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return nil
}

// RemoveItem drops one item from the customer's cart.
func (s *Service) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) error {
	affected, err := s.repo.Remove(ctx, customerID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

// Clear empties the cart, optionally inside a caller-owned transaction.
func (s *Service) Clear(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error {
	if err := s.repo.WithTx(tx).Clear(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
