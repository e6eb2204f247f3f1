package invoicing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/ledger"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// memoryRepo emulates the row-locking repository: each transaction runs under
// one lock and rolls back by restoring a snapshot on error.
type memoryRepo struct {
	mu        sync.Mutex
	products  map[int64]catalog.Product
	customers map[int64]ledger.Customer
	entries   []ledger.CreditEntry
	invoices  []Invoice
	items     map[int64][]InvoiceItem
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:  make(map[int64]catalog.Product),
		customers: make(map[int64]ledger.Customer),
		items:     make(map[int64][]InvoiceItem),
	}
}

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) snapshot() *memoryRepo {
	snap := newMemoryRepo()
	for id, p := range r.products {
		snap.products[id] = p
	}
	for id, c := range r.customers {
		snap.customers[id] = c
	}
	snap.entries = append(snap.entries, r.entries...)
	snap.invoices = append(snap.invoices, r.invoices...)
	for id, items := range r.items {
		snap.items[id] = append([]InvoiceItem(nil), items...)
	}
	snap.nextID = r.nextID
	return snap
}

func (r *memoryRepo) restore(snap *memoryRepo) {
	r.products = snap.products
	r.customers = snap.customers
	r.entries = snap.entries
	r.invoices = snap.invoices
	r.items = snap.items
	r.nextID = snap.nextID
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []Invoice{}
	for _, inv := range r.invoices {
		if !filter.From.IsZero() && inv.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && inv.Date.After(filter.To) {
			continue
		}
		result = append(result, inv)
	}
	return result, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.ID == id {
			return inv, nil
		}
	}
	return Invoice{}, shared.ErrNotFound
}

func (tx *memoryTx) GetProductsForUpdate(ctx context.Context, ids []int64) (map[int64]catalog.Product, error) {
	found := make(map[int64]catalog.Product)
	for _, id := range ids {
		if p, ok := tx.repo.products[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

func (tx *memoryTx) DeductStock(ctx context.Context, productID, quantity int64) error {
	p, ok := tx.repo.products[productID]
	if !ok || p.Stock < quantity {
		return catalog.ErrNegativeStock
	}
	p.Stock -= quantity
	tx.repo.products[productID] = p
	return nil
}

func (tx *memoryTx) GetCustomerForUpdate(ctx context.Context, id int64) (ledger.Customer, error) {
	c, ok := tx.repo.customers[id]
	if !ok {
		return ledger.Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (tx *memoryTx) UpdateCustomerBalance(ctx context.Context, id int64, balance float64) error {
	c := tx.repo.customers[id]
	c.Balance = balance
	tx.repo.customers[id] = c
	return nil
}

func (tx *memoryTx) InsertCreditEntry(ctx context.Context, entry ledger.CreditEntry) error {
	entry.ID = int64(len(tx.repo.entries) + 1)
	tx.repo.entries = append(tx.repo.entries, entry)
	return nil
}

func (tx *memoryTx) InsertInvoice(ctx context.Context, invoice Invoice) (int64, error) {
	for _, existing := range tx.repo.invoices {
		if existing.Number == invoice.Number {
			return 0, ErrNumberTaken
		}
	}
	tx.repo.nextID++
	invoice.ID = tx.repo.nextID
	tx.repo.invoices = append(tx.repo.invoices, invoice)
	return invoice.ID, nil
}

func (tx *memoryTx) InsertInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error {
	tx.repo.items[invoiceID] = append([]InvoiceItem(nil), items...)
	return nil
}

func seedProduct(r *memoryRepo, id int64, name string, price float64, stock int64) {
	r.products[id] = catalog.Product{ID: id, Name: name, SalePrice: price, Stock: stock}
}

func seedCustomer(r *memoryRepo, id int64, name string, balance float64) {
	r.customers[id] = ledger.Customer{ID: id, Name: name, Balance: balance}
}

func TestCashSale(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, "Rice 5kg", 5.00, 10)
	svc := NewService(repo)

	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		Items: []ItemInput{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)
	require.InDelta(t, 15.00, inv.Total, 0.0001)
	require.Len(t, inv.Items, 1)
	require.Equal(t, "Rice 5kg", inv.Items[0].ProductName)
	require.InDelta(t, 5.00, inv.Items[0].Price, 0.0001)
	require.InDelta(t, 15.00, inv.Items[0].LineTotal, 0.0001)
	require.False(t, inv.IsCredit)
	require.NotEmpty(t, inv.Number)

	require.EqualValues(t, 7, repo.products[1].Stock)
	require.Empty(t, repo.entries)
	require.Empty(t, repo.customers)
}

func TestCreditSalePostsLedgerEntry(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, "Sugar", 10.00, 5)
	seedCustomer(repo, 7, "Asha", 0)
	svc := NewService(repo)

	customerID := int64(7)
	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID: &customerID,
		IsCredit:   true,
		Items:      []ItemInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	require.InDelta(t, 20.00, inv.Total, 0.0001)
	require.Equal(t, "Asha", inv.CustomerName)

	require.InDelta(t, 20.00, repo.customers[7].Balance, 0.0001)
	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.InDelta(t, 20.00, entry.Debit, 0.0001)
	require.InDelta(t, 0, entry.Credit, 0.0001)
	require.InDelta(t, 20.00, entry.BalanceAfter, 0.0001)
	require.Equal(t, "Invoice "+inv.Number, entry.Description)
}

func TestRunningBalanceAcrossCreditSales(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, "Tea", 4.00, 100)
	seedCustomer(repo, 3, "Ravi", 0)
	svc := NewService(repo)
	ctx := context.Background()
	customerID := int64(3)

	for i := 0; i < 4; i++ {
		_, err := svc.CreateInvoice(ctx, CreateInvoiceInput{
			CustomerID: &customerID,
			IsCredit:   true,
			Items:      []ItemInput{{ProductID: 1, Quantity: 5}},
		})
		require.NoError(t, err)
	}

	var running float64
	for _, entry := range repo.entries {
		running += entry.Debit - entry.Credit
		require.InDelta(t, running, entry.BalanceAfter, 0.0001)
	}
	require.InDelta(t, repo.customers[3].Balance, running, 0.0001)
}

func TestValidationFailuresLeaveStateUntouched(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, "Flour", 2.50, 3)
	seedCustomer(repo, 9, "Mina", 12.00)
	svc := NewService(repo)
	ctx := context.Background()
	customerID := int64(9)

	cases := []struct {
		name  string
		input CreateInvoiceInput
	}{
		{"empty order", CreateInvoiceInput{}},
		{"credit without customer", CreateInvoiceInput{
			IsCredit: true,
			Items:    []ItemInput{{ProductID: 1, Quantity: 1}},
		}},
		{"unknown product", CreateInvoiceInput{
			Items: []ItemInput{{ProductID: 42, Quantity: 1}},
		}},
		{"zero quantity", CreateInvoiceInput{
			Items: []ItemInput{{ProductID: 1, Quantity: 0}},
		}},
		{"insufficient stock", CreateInvoiceInput{
			CustomerID: &customerID,
			IsCredit:   true,
			Items:      []ItemInput{{ProductID: 1, Quantity: 4}},
		}},
		{"second item fails, first valid", CreateInvoiceInput{
			Items: []ItemInput{
				{ProductID: 1, Quantity: 1},
				{ProductID: 1, Quantity: 99},
			},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateInvoice(ctx, tc.input)
			require.ErrorIs(t, err, shared.ErrValidation)
			require.EqualValues(t, 3, repo.products[1].Stock)
			require.InDelta(t, 12.00, repo.customers[9].Balance, 0.0001)
			require.Empty(t, repo.entries)
			require.Empty(t, repo.invoices)
		})
	}
}

func TestUnknownCustomerOnCreditSale(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, "Salt", 1.00, 10)
	svc := NewService(repo)

	customerID := int64(404)
	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID: &customerID,
		IsCredit:   true,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	// Stock deduction rolled back with the failed transaction.
	require.EqualValues(t, 10, repo.products[1].Stock)
}

func TestCashSaleWithCustomerReference(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, "Salt", 1.00, 10)
	seedCustomer(repo, 7, "Asha", 5.00)
	svc := NewService(repo)

	customerID := int64(7)
	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID: &customerID,
		Items:      []ItemInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, "Asha", inv.CustomerName)
	require.False(t, inv.IsCredit)

	// Cash sale: the customer is referenced but never charged.
	require.InDelta(t, 5.00, repo.customers[7].Balance, 0.0001)
	require.Empty(t, repo.entries)
}

func TestCashSaleWithUnknownCustomer(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, "Salt", 1.00, 10)
	svc := NewService(repo)

	customerID := int64(404)
	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID: &customerID,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.EqualValues(t, 10, repo.products[1].Stock)
	require.Empty(t, repo.invoices)
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	const stock = 5
	const attempts = 20

	repo := newMemoryRepo()
	seedProduct(repo, 1, "Milk", 3.00, stock)
	svc := NewService(repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateInvoice(ctx, CreateInvoiceInput{
				Items: []ItemInput{{ProductID: 1, Quantity: 1}},
			})
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, shared.ErrValidation)
			rejected++
		}
	}
	require.Equal(t, stock, ok)
	require.Equal(t, attempts-stock, rejected)
	require.EqualValues(t, 0, repo.products[1].Stock)

	numbers := make(map[string]bool)
	for _, inv := range repo.invoices {
		require.False(t, numbers[inv.Number], "duplicate invoice number %s", inv.Number)
		numbers[inv.Number] = true
	}
	require.Len(t, numbers, stock)
}

func TestInvoiceNumbersUniqueWithinMillisecond(t *testing.T) {
	svc := NewService(newMemoryRepo())
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		n := svc.nextNumber(now)
		require.False(t, seen[n], "duplicate number %s", n)
		seen[n] = true
	}
}

func TestListFiltersByDateWindow(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, 1, "Bread", 2.00, 50)
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateInvoice(ctx, CreateInvoiceInput{Items: []ItemInput{{ProductID: 1, Quantity: 1}}})
	require.NoError(t, err)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	past, err := svc.List(ctx, ListFilter{To: time.Now().Add(-24 * time.Hour)})
	require.NoError(t, err)
	require.Empty(t, past)
}
