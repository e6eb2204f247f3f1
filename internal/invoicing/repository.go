package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/ledger"
	"github.com/tillpoint/tillpoint/internal/platform/db"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// ErrNumberTaken reports an invoice number collision. The service retries
// with a fresh number.
var ErrNumberTaken = errors.New("invoicing: invoice number already taken")

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations used inside the invoice creation
// transaction. Product rows are locked in ascending id order and the customer
// row after them, so concurrent sales acquire locks in a consistent order.
type TxRepository interface {
	GetProductsForUpdate(ctx context.Context, ids []int64) (map[int64]catalog.Product, error)
	DeductStock(ctx context.Context, productID, quantity int64) error
	GetCustomerForUpdate(ctx context.Context, id int64) (ledger.Customer, error)
	UpdateCustomerBalance(ctx context.Context, id int64, balance float64) error
	InsertCreditEntry(ctx context.Context, entry ledger.CreditEntry) error
	InsertInvoice(ctx context.Context, invoice Invoice) (int64, error)
	InsertInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const invoiceColumns = `id, number, date, customer_id, COALESCE(customer_name, ''), is_credit, total`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var customerID pgtype.Int8
	err := row.Scan(&inv.ID, &inv.Number, &inv.Date, &customerID, &inv.CustomerName, &inv.IsCredit, &inv.Total)
	if err != nil {
		return Invoice{}, err
	}
	if customerID.Valid {
		inv.CustomerID = &customerID.Int64
	}
	return inv, nil
}

// List returns invoices in the date window, newest first, with items.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := []any{}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range invoices {
		items, err := r.listItems(ctx, invoices[i].ID)
		if err != nil {
			return nil, err
		}
		invoices[i].Items = items
	}
	return invoices, nil
}

// Get returns a single invoice with items.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.ErrNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	items, err := r.listItems(ctx, inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

func (r *Repository) listItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, product_name, quantity, price, line_total
FROM invoice_items
WHERE invoice_id = $1
ORDER BY id ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []InvoiceItem{}
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.Price, &item.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t *txRepository) GetProductsForUpdate(ctx context.Context, ids []int64) (map[int64]catalog.Product, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, name, COALESCE(sku, ''), sale_price, stock, min_stock, created_at, updated_at
FROM products
WHERE id = ANY($1)
ORDER BY id ASC
FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[int64]catalog.Product)
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.SalePrice, &p.Stock, &p.MinStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

func (t *txRepository) DeductStock(ctx context.Context, productID, quantity int64) error {
	result, err := t.tx.Exec(ctx, `UPDATE products
SET stock = stock - $2, updated_at = NOW()
WHERE id = $1 AND stock >= $2`, productID, quantity)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return catalog.ErrNegativeStock
	}
	return nil
}

func (t *txRepository) GetCustomerForUpdate(ctx context.Context, id int64) (ledger.Customer, error) {
	var c ledger.Customer
	err := t.tx.QueryRow(ctx, `SELECT id, name, COALESCE(phone, ''), COALESCE(address, ''), balance, created_at, updated_at
FROM customers WHERE id = $1 FOR UPDATE`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Balance, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Customer{}, shared.ErrNotFound
	}
	return c, err
}

func (t *txRepository) UpdateCustomerBalance(ctx context.Context, id int64, balance float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE customers SET balance = $2, updated_at = NOW() WHERE id = $1`, id, balance)
	return err
}

func (t *txRepository) InsertCreditEntry(ctx context.Context, entry ledger.CreditEntry) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO credit_entries (customer_id, date, description, debit, credit, balance_after)
VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.CustomerID, entry.Date, entry.Description, entry.Debit, entry.Credit, entry.BalanceAfter)
	return err
}

func (t *txRepository) InsertInvoice(ctx context.Context, invoice Invoice) (int64, error) {
	var customerID pgtype.Int8
	if invoice.CustomerID != nil {
		customerID = pgtype.Int8{Int64: *invoice.CustomerID, Valid: true}
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO invoices (number, date, customer_id, customer_name, is_credit, total)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		invoice.Number, invoice.Date, customerID, invoice.CustomerName, invoice.IsCredit, invoice.Total).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrNumberTaken
	}
	return id, err
}

func (t *txRepository) InsertInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error {
	for _, item := range items {
		if _, err := t.tx.Exec(ctx, `INSERT INTO invoice_items (invoice_id, product_id, product_name, quantity, price, line_total)
VALUES ($1, $2, $3, $4, $5, $6)`,
			invoiceID, item.ProductID, item.ProductName, item.Quantity, item.Price, item.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
