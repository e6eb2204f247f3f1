package ledger

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/shared"
)

type memoryRepo struct {
	mu        sync.Mutex
	customers map[int64]Customer
	entries   []CreditEntry
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: make(map[int64]Customer)}
}

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) ListCustomers(ctx context.Context) ([]Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []Customer{}
	for _, c := range r.customers {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *memoryRepo) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryRepo) CreateCustomer(ctx context.Context, input CustomerInput) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := Customer{ID: r.nextID, Name: input.Name, Phone: input.Phone, Address: input.Address}
	r.customers[c.ID] = c
	return c, nil
}

func (r *memoryRepo) UpdateCustomer(ctx context.Context, id int64, input CustomerInput) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	c.Name = input.Name
	c.Phone = input.Phone
	c.Address = input.Address
	r.customers[id] = c
	return c, nil
}

func (r *memoryRepo) ListEntries(ctx context.Context, customerID int64) ([]CreditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []CreditEntry{}
	for _, e := range r.entries {
		if e.CustomerID == customerID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (tx *memoryTx) GetCustomerForUpdate(ctx context.Context, id int64) (Customer, error) {
	c, ok := tx.repo.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (tx *memoryTx) UpdateCustomerBalance(ctx context.Context, id int64, balance float64) error {
	c, ok := tx.repo.customers[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.Balance = balance
	tx.repo.customers[id] = c
	return nil
}

func (tx *memoryTx) InsertCreditEntry(ctx context.Context, entry CreditEntry) (CreditEntry, error) {
	entry.ID = int64(len(tx.repo.entries) + 1)
	tx.repo.entries = append(tx.repo.entries, entry)
	return entry, nil
}

func TestRecordPayment(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Asha"})
	require.NoError(t, err)

	// Simulate a prior credit sale.
	require.NoError(t, repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateCustomerBalance(ctx, customer.ID, 20.00); err != nil {
			return err
		}
		_, err := tx.InsertCreditEntry(ctx, CreditEntry{
			CustomerID: customer.ID, Date: time.Now(),
			Debit: 20.00, BalanceAfter: 20.00,
		})
		return err
	}))

	result, err := svc.RecordPayment(ctx, customer.ID, 20.00, "")
	require.NoError(t, err)
	require.InDelta(t, 0, result.Customer.Balance, 0.0001)
	require.InDelta(t, 20.00, result.Entry.Credit, 0.0001)
	require.InDelta(t, 0, result.Entry.Debit, 0.0001)
	require.InDelta(t, 0, result.Entry.BalanceAfter, 0.0001)
	require.Equal(t, "Payment received", result.Entry.Description)

	entries, err := svc.Ledger(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var running float64
	for _, e := range entries {
		running += e.Debit - e.Credit
		require.InDelta(t, running, e.BalanceAfter, 0.0001)
	}
	require.InDelta(t, 0, running, 0.0001)
}

func TestOverpaymentLeavesCustomerInCredit(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Ravi"})
	require.NoError(t, err)

	result, err := svc.RecordPayment(ctx, customer.ID, 15.00, "advance")
	require.NoError(t, err)
	require.InDelta(t, -15.00, result.Customer.Balance, 0.0001)
	require.Equal(t, "advance", result.Entry.Description)
}

func TestRecordPaymentValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Mina"})
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, customer.ID, 0, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordPayment(ctx, customer.ID, -5, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordPayment(ctx, 404, 10, "")
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.Empty(t, repo.entries)
	require.InDelta(t, 0, repo.customers[customer.ID].Balance, 0.0001)
}

func TestCustomerCRUD(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateCustomer(ctx, CustomerInput{})
	require.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Zed", Phone: "123"})
	require.NoError(t, err)

	updated, err := svc.UpdateCustomer(ctx, created.ID, CustomerInput{Name: "Zed Trading", Address: "Main St"})
	require.NoError(t, err)
	require.Equal(t, "Zed Trading", updated.Name)
	require.Equal(t, "Main St", updated.Address)
	require.InDelta(t, 0, updated.Balance, 0.0001)

	_, err = svc.UpdateCustomer(ctx, 404, CustomerInput{Name: "Nobody"})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Ledger(ctx, 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
