package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/platform/db"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Repository persists customers and credit entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used when a balance
// update and a ledger append must land together.
type TxRepository interface {
	GetCustomerForUpdate(ctx context.Context, id int64) (Customer, error)
	UpdateCustomerBalance(ctx context.Context, id int64, balance float64) error
	InsertCreditEntry(ctx context.Context, entry CreditEntry) (CreditEntry, error)
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

const customerColumns = `id, name, COALESCE(phone, ''), COALESCE(address, ''), balance, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Balance, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListCustomers returns all customers sorted by name.
func (r *Repository) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// GetCustomer returns a single customer.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	return c, err
}

// CreateCustomer inserts a customer with a zero opening balance.
func (r *Repository) CreateCustomer(ctx context.Context, input CustomerInput) (Customer, error) {
	now := time.Now()
	row := r.pool.QueryRow(ctx, `INSERT INTO customers (name, phone, address, balance, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $4)
RETURNING `+customerColumns,
		input.Name, input.Phone, input.Address, now)
	return scanCustomer(row)
}

// UpdateCustomer updates contact fields only. The balance column is owned by
// the payment and invoicing flows.
func (r *Repository) UpdateCustomer(ctx context.Context, id int64, input CustomerInput) (Customer, error) {
	row := r.pool.QueryRow(ctx, `UPDATE customers
SET name = $2, phone = $3, address = $4, updated_at = NOW()
WHERE id = $1
RETURNING `+customerColumns,
		id, input.Name, input.Phone, input.Address)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	return c, err
}

// ListEntries returns a customer's ledger in replay order.
func (r *Repository) ListEntries(ctx context.Context, customerID int64) ([]CreditEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, date, COALESCE(description, ''), debit, credit, balance_after
FROM credit_entries
WHERE customer_id = $1
ORDER BY date ASC, id ASC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []CreditEntry{}
	for rows.Next() {
		var e CreditEntry
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.Date, &e.Description, &e.Debit, &e.Credit, &e.BalanceAfter); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (t *txRepository) GetCustomerForUpdate(ctx context.Context, id int64) (Customer, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	return c, err
}

func (t *txRepository) UpdateCustomerBalance(ctx context.Context, id int64, balance float64) error {
	result, err := t.tx.Exec(ctx, `UPDATE customers SET balance = $2, updated_at = NOW() WHERE id = $1`, id, balance)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) InsertCreditEntry(ctx context.Context, entry CreditEntry) (CreditEntry, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO credit_entries (customer_id, date, description, debit, credit, balance_after)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		entry.CustomerID, entry.Date, entry.Description, entry.Debit, entry.Credit, entry.BalanceAfter).Scan(&entry.ID)
	return entry, err
}
