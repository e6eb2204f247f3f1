package invoicing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tillpoint/tillpoint/internal/ledger"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort defines data access methods for invoicing.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
	Get(ctx context.Context, id int64) (Invoice, error)
}

// Service runs the invoice creation workflow: validate the whole order,
// reserve stock, post the credit ledger entry and persist the invoice as one
// transaction.
type Service struct {
	repo RepositoryPort
	seq  atomic.Int64
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns invoices in the date window, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.List(ctx, filter)
}

// Get returns a single invoice.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// CreateInvoice validates the requested sale and, only once every item has
// passed, mutates state: stock decrements, and for credit sales the customer
// balance update plus ledger append. Everything runs inside one transaction
// with the affected product rows (ascending id) and customer row locked, so
// concurrent sales of the same product serialize and can never oversell.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (Invoice, error) {
	if len(input.Items) == 0 {
		return Invoice{}, shared.Validationf("At least one item is required")
	}
	if input.IsCredit && input.CustomerID == nil {
		return Invoice{}, shared.Validationf("Credit sale must have a customer selected")
	}

	var invoice Invoice
	createOnce := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			ids := make([]int64, 0, len(input.Items))
			for _, item := range input.Items {
				ids = append(ids, item.ProductID)
			}
			products, err := tx.GetProductsForUpdate(ctx, ids)
			if err != nil {
				return err
			}

			for _, item := range input.Items {
				if _, ok := products[item.ProductID]; !ok {
					return shared.Validationf("Product not found: %d", item.ProductID)
				}
			}
			for _, item := range input.Items {
				if item.Quantity <= 0 {
					return shared.Validationf("Each item needs productId and positive quantity")
				}
			}

			items := make([]InvoiceItem, 0, len(input.Items))
			var total float64
			for _, item := range input.Items {
				product := products[item.ProductID]
				if product.Stock < item.Quantity {
					return shared.Validationf("Not enough stock for %s. In stock: %d", product.Name, product.Stock)
				}
				lineTotal := product.SalePrice * float64(item.Quantity)
				items = append(items, InvoiceItem{
					ProductID:   product.ID,
					ProductName: product.Name,
					Quantity:    item.Quantity,
					Price:       product.SalePrice,
					LineTotal:   lineTotal,
				})
				total += lineTotal
			}

			// The whole order validated; only now touch state.
			for _, item := range items {
				if err := tx.DeductStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}

			now := time.Now()
			number := s.nextNumber(now)
			customerName := input.CustomerName

			// Any referenced customer must exist, cash sales included, so the
			// stored reference never dangles.
			if input.CustomerID != nil {
				customer, err := tx.GetCustomerForUpdate(ctx, *input.CustomerID)
				if err != nil {
					if errors.Is(err, shared.ErrNotFound) {
						return shared.Validationf("Customer not found")
					}
					return err
				}
				if input.IsCredit {
					newBalance := customer.Balance + total
					if err := tx.UpdateCustomerBalance(ctx, customer.ID, newBalance); err != nil {
						return err
					}
					if err := tx.InsertCreditEntry(ctx, ledger.CreditEntry{
						CustomerID:   customer.ID,
						Date:         now,
						Description:  "Invoice " + number,
						Debit:        total,
						Credit:       0,
						BalanceAfter: newBalance,
					}); err != nil {
						return err
					}
				}
				if customerName == "" {
					customerName = customer.Name
				}
			}

			invoice = Invoice{
				Number:       number,
				Date:         now,
				CustomerID:   input.CustomerID,
				CustomerName: customerName,
				IsCredit:     input.IsCredit,
				Items:        items,
				Total:        total,
			}
			id, err := tx.InsertInvoice(ctx, invoice)
			if err != nil {
				return err
			}
			invoice.ID = id
			return tx.InsertInvoiceItems(ctx, id, items)
		})
	}

	err := createOnce()
	if errors.Is(err, ErrNumberTaken) {
		// Collision with a number issued by another process; one fresh attempt.
		err = createOnce()
	}
	if err != nil {
		return Invoice{}, err
	}
	return invoice, nil
}

// nextNumber generates a practically unique, human-readable invoice number.
// The millisecond timestamp distinguishes processes, the sequence
// distinguishes calls within the same millisecond; the database unique
// constraint is the final arbiter.
func (s *Service) nextNumber(now time.Time) string {
	return fmt.Sprintf("INV-%s-%d-%d", now.Format("20060102"), now.UnixMilli(), s.seq.Add(1))
}
