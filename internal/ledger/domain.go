package ledger

import "time"

// Customer holds a running balance. Positive balance means the customer
// owes money.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreditEntry is an append-only record of a balance-affecting event. Debit
// records a sale on credit, credit records a payment received, and
// BalanceAfter snapshots the customer balance at the moment of posting.
type CreditEntry struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customerId"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description,omitempty"`
	Debit        float64   `json:"debit"`
	Credit       float64   `json:"credit"`
	BalanceAfter float64   `json:"balanceAfter"`
}

// CustomerInput carries customer contact fields for create and update.
// Balance is deliberately absent: it changes only through credit sales
// and payments.
type CustomerInput struct {
	Name    string
	Phone   string
	Address string
}

// PaymentResult pairs the updated customer with the ledger entry recorded
// for a payment.
type PaymentResult struct {
	Customer Customer    `json:"customer"`
	Entry    CreditEntry `json:"entry"`
}
