package catalog

import (
	"time"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// Product is a sellable item with on-hand stock.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku,omitempty"`
	SalePrice float64   `json:"salePrice"`
	Stock     int64     `json:"stock"`
	MinStock  int64     `json:"minStock"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LowStock reports whether the product has fallen to or below its
// configured minimum. A zero minimum disables the check.
func (p Product) LowStock() bool {
	return p.MinStock > 0 && p.Stock <= p.MinStock
}

// ErrNegativeStock rejects any stock mutation that would take stock below zero.
var ErrNegativeStock = &shared.ValidationError{Reason: "Stock cannot be negative"}

// CreateProductInput carries fields for creating a product.
type CreateProductInput struct {
	Name      string
	SKU       string
	SalePrice float64
	Stock     int64
	MinStock  int64
}

// UpdateProductInput carries fields for updating a product.
type UpdateProductInput struct {
	Name      string
	SKU       string
	SalePrice float64
	Stock     int64
	MinStock  int64
}
