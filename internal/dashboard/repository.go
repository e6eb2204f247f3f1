package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/catalog"
)

// Repository runs read-only rollup queries over the other stores.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SalesSince returns the total and count of invoices dated at or after t.
func (r *Repository) SalesSince(ctx context.Context, t time.Time) (float64, int64, error) {
	var total float64
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total), 0), COUNT(*) FROM invoices WHERE date >= $1`, t,
	).Scan(&total, &count)
	return total, count, err
}

// LowStockCount counts products at or below their configured minimum.
func (r *Repository) LowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE min_stock > 0 AND stock <= min_stock`,
	).Scan(&count)
	return count, err
}

// Outstanding sums positive customer balances and counts those customers.
func (r *Repository) Outstanding(ctx context.Context) (float64, int64, error) {
	var total float64
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0), COUNT(*) FROM customers WHERE balance > 0`,
	).Scan(&total, &count)
	return total, count, err
}

// LowStockProducts lists products at or below their minimum, lowest stock first.
func (r *Repository) LowStockProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(sku, ''), sale_price, stock, min_stock, created_at, updated_at
FROM products
WHERE min_stock > 0 AND stock <= min_stock
ORDER BY stock ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.SalePrice, &p.Stock, &p.MinStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
