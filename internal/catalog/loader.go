// Package catalog loads the product catalog and derives the visible subset
// for a search query and selected category.
package catalog

import (
	"context"
	"errors"

	"mattress-store/internal/domain"
	"mattress-store/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Loader reads products and categories and joins them into items
type Loader struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	logger     *zap.Logger
}

// NewLoader creates a catalog loader
func NewLoader(products repository.ProductRepository, categories repository.CategoryRepository, logger *zap.Logger) *Loader {
	return &Loader{
		products:   products,
		categories: categories,
		logger:     logger,
	}
}

// Load returns every product, newest first, joined with its category name.
// On failure it returns an empty slice and a *domain.FetchError.
func (l *Loader) Load(ctx context.Context) ([]domain.Item, error) {
	categoryNames, err := l.categoryNames(ctx)
	if err != nil {
		return []domain.Item{}, err
	}

	products, err := l.products.List(ctx, repository.SortOrderDesc)
	if err != nil {
		l.logger.Error("Failed to load products", zap.Error(err))
		return []domain.Item{}, &domain.FetchError{Op: "load products", Err: err}
	}

	return Join(products, categoryNames), nil
}

// Get returns a single product joined with its category name
func (l *Loader) Get(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	product, err := l.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return domain.Item{}, err
		}
		l.logger.Error("Failed to load product", zap.String("product_id", id.String()), zap.Error(err))
		return domain.Item{}, &domain.FetchError{Op: "load product", Err: err}
	}

	var categoryName *string
	if product.CategoryID != nil {
		category, err := l.categories.FindByID(ctx, *product.CategoryID)
		switch {
		case err == nil:
			categoryName = &category.Name
		case errors.Is(err, repository.ErrCategoryNotFound):
			// dangling reference resolves to no category
		default:
			l.logger.Error("Failed to load category", zap.Error(err))
			return domain.Item{}, &domain.FetchError{Op: "load category", Err: err}
		}
	}

	return domain.NewItem(*product, categoryName), nil
}

func (l *Loader) categoryNames(ctx context.Context) (map[uuid.UUID]string, error) {
	categories, err := l.categories.List(ctx)
	if err != nil {
		l.logger.Error("Failed to load categories", zap.Error(err))
		return nil, &domain.FetchError{Op: "load catalog categories", Err: err}
	}

	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

// Join attaches category names to products, keeping their order.
// Products whose category reference does not resolve get a nil name.
func Join(products []*domain.Product, categoryNames map[uuid.UUID]string) []domain.Item {
	items := make([]domain.Item, 0, len(products))

	for _, p := range products {
		var categoryName *string
		if p.CategoryID != nil {
			if name, ok := categoryNames[*p.CategoryID]; ok {
				categoryName = &name
			}
		}
		items = append(items, domain.NewItem(*p, categoryName))
	}

	return items
}
