package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// Repository defines data access for products.
type Repository interface {
	List(ctx context.Context, search string) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, input CreateProductInput) (Product, error)
	Update(ctx context.Context, id int64, input UpdateProductInput) (Product, error)
	Delete(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, id int64, delta int64) (Product, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, name, sku, sale_price, stock, min_stock, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var sku pgtype.Text
	err := row.Scan(&p.ID, &p.Name, &sku, &p.SalePrice, &p.Stock, &p.MinStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.SKU = sku.String
	return p, nil
}

func (r *repository) List(ctx context.Context, search string) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if search != "" {
		query += ` WHERE name ILIKE $1 OR sku ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, input CreateProductInput) (Product, error) {
	now := time.Now()
	row := r.pool.QueryRow(ctx, `INSERT INTO products (name, sku, sale_price, stock, min_stock, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
RETURNING `+productColumns,
		input.Name, nullText(input.SKU), input.SalePrice, input.Stock, input.MinStock, now)
	p, err := scanProduct(row)
	if isUniqueViolation(err) {
		return Product{}, shared.Conflictf("SKU must be unique")
	}
	return p, err
}

func (r *repository) Update(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products
SET name = $2, sku = $3, sale_price = $4, stock = $5, min_stock = $6, updated_at = NOW()
WHERE id = $1
RETURNING `+productColumns,
		id, input.Name, nullText(input.SKU), input.SalePrice, input.Stock, input.MinStock)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	if isUniqueViolation(err) {
		return Product{}, shared.Conflictf("SKU must be unique")
	}
	return p, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AdjustStock applies a conditional delta so stock can never go negative,
// regardless of concurrent adjustments or sales.
func (r *repository) AdjustStock(ctx context.Context, id int64, delta int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products
SET stock = stock + $2, updated_at = NOW()
WHERE id = $1 AND stock + $2 >= 0
RETURNING `+productColumns, id, delta)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the product is missing or the delta would go negative.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Product{}, getErr
		}
		return Product{}, ErrNegativeStock
	}
	return p, err
}

func nullText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
