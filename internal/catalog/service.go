package catalog

import (
	"context"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// Service handles catalog business rules.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns products sorted by name, optionally filtered by a
// case-insensitive name/SKU substring.
func (s *Service) List(ctx context.Context, search string) ([]Product, error) {
	return s.repo.List(ctx, search)
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new product.
func (s *Service) Create(ctx context.Context, input CreateProductInput) (Product, error) {
	if input.Name == "" {
		return Product{}, shared.Validationf("Name and price are required")
	}
	if input.SalePrice < 0 {
		return Product{}, shared.Validationf("Price cannot be negative")
	}
	if input.Stock < 0 || input.MinStock < 0 {
		return Product{}, ErrNegativeStock
	}
	return s.repo.Create(ctx, input)
}

// Update replaces a product's attributes.
func (s *Service) Update(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	if input.Name == "" {
		return Product{}, shared.Validationf("Name and price are required")
	}
	if input.SalePrice < 0 {
		return Product{}, shared.Validationf("Price cannot be negative")
	}
	if input.Stock < 0 || input.MinStock < 0 {
		return Product{}, ErrNegativeStock
	}
	return s.repo.Update(ctx, id, input)
}

// Delete removes a product from the catalog.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// AdjustStock applies a manual stock delta. The delta may be negative but the
// resulting stock may not be.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int64) (Product, error) {
	return s.repo.AdjustStock(ctx, id, delta)
}
