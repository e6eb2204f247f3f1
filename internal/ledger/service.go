package ledger

import (
	"context"
	"time"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort defines data access methods for the customer ledger.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListCustomers(ctx context.Context) ([]Customer, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	CreateCustomer(ctx context.Context, input CustomerInput) (Customer, error)
	UpdateCustomer(ctx context.Context, id int64, input CustomerInput) (Customer, error)
	ListEntries(ctx context.Context, customerID int64) ([]CreditEntry, error)
}

// Service handles customer and ledger business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListCustomers returns all customers sorted by name.
func (s *Service) ListCustomers(ctx context.Context) ([]Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// GetCustomer returns a single customer.
func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// CreateCustomer registers a customer with a zero opening balance.
func (s *Service) CreateCustomer(ctx context.Context, input CustomerInput) (Customer, error) {
	if input.Name == "" {
		return Customer{}, shared.Validationf("Name is required")
	}
	return s.repo.CreateCustomer(ctx, input)
}

// UpdateCustomer updates contact fields. The balance never changes here.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, input CustomerInput) (Customer, error) {
	if input.Name == "" {
		return Customer{}, shared.Validationf("Name is required")
	}
	return s.repo.UpdateCustomer(ctx, id, input)
}

// Ledger returns the customer's credit entries in replay order
// (date ascending, insertion order as tiebreak).
func (s *Service) Ledger(ctx context.Context, customerID int64) ([]CreditEntry, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.ListEntries(ctx, customerID)
}

// RecordPayment reduces what the customer owes and appends the matching
// ledger entry. Both writes happen under the customer row lock so concurrent
// payments and credit sales cannot interleave between the balance read and
// the ledger append. The balance has no floor: overpayment leaves the
// customer in credit.
func (s *Service) RecordPayment(ctx context.Context, customerID int64, amount float64, description string) (PaymentResult, error) {
	if amount <= 0 {
		return PaymentResult{}, shared.Validationf("Amount must be positive")
	}
	if description == "" {
		description = "Payment received"
	}

	var result PaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		customer, err := tx.GetCustomerForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		newBalance := customer.Balance - amount
		if err := tx.UpdateCustomerBalance(ctx, customer.ID, newBalance); err != nil {
			return err
		}
		entry, err := tx.InsertCreditEntry(ctx, CreditEntry{
			CustomerID:   customer.ID,
			Date:         time.Now(),
			Description:  description,
			Debit:        0,
			Credit:       amount,
			BalanceAfter: newBalance,
		})
		if err != nil {
			return err
		}
		customer.Balance = newBalance
		result = PaymentResult{Customer: customer, Entry: entry}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}
	return result, nil
}
