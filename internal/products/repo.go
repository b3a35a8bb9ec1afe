package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digikart/digikart-backend/pkg/db/models"
)

// ResolvedOption joins a purchasable option with its parent product, which is
// what checkout needs to snapshot line items.
type ResolvedOption struct {
	Option  models.ProductOption
	Product models.Product
}

// Repository reads the product catalog. The storefront core never writes it.
type Repository interface {
	FindOption(ctx context.Context, optionID uuid.UUID) (*ResolvedOption, error)
	ResolveOptions(ctx context.Context, optionIDs []uuid.UUID) ([]ResolvedOption, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindOption(ctx context.Context, optionID uuid.UUID) (*ResolvedOption, error) {
	resolved, err := r.ResolveOptions(ctx, []uuid.UUID{optionID})
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &resolved[0], nil
}

// ResolveOptions loads the given options along with their active parent
// products. Options whose product is inactive are absent from the result, so
// callers can tell a stale cart from a resolvable one by comparing lengths.
func (r *repository) ResolveOptions(ctx context.Context, optionIDs []uuid.UUID) ([]ResolvedOption, error) {
	if len(optionIDs) == 0 {
		return nil, nil
	}

	var options []models.ProductOption
	err := r.db.WithContext(ctx).
		Where("id IN ?", optionIDs).
		Find(&options).Error
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, nil
	}

	productIDs := make([]uuid.UUID, 0, len(options))
	for _, opt := range options {
		productIDs = append(productIDs, opt.ProductID)
	}

	var parents []models.Product
	err = r.db.WithContext(ctx).
		Where("id IN ? AND active = ?", productIDs, true).
		Find(&parents).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Product, len(parents))
	for _, p := range parents {
		byID[p.ID] = p
	}

	resolved := make([]ResolvedOption, 0, len(options))
	for _, opt := range options {
		parent, ok := byID[opt.ProductID]
		if !ok {
			continue
		}
		resolved = append(resolved, ResolvedOption{Option: opt, Product: parent})
	}
	return resolved, nil
}
