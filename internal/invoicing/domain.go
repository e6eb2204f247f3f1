package invoicing

import "time"

// InvoiceItem snapshots product name and price at the moment of sale so the
// invoice stays immutable against later catalog edits.
type InvoiceItem struct {
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
	LineTotal   float64 `json:"lineTotal"`
}

// Invoice is an immutable record of a completed sale.
type Invoice struct {
	ID           int64         `json:"id"`
	Number       string        `json:"invoiceNumber"`
	Date         time.Time     `json:"date"`
	CustomerID   *int64        `json:"customerId,omitempty"`
	CustomerName string        `json:"customerName,omitempty"`
	IsCredit     bool          `json:"isCredit"`
	Items        []InvoiceItem `json:"items"`
	Total        float64       `json:"total"`
}

// ItemInput is one requested sale line.
type ItemInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

// CreateInvoiceInput is the requested sale. Anonymous cash sales carry
// neither customer reference nor name.
type CreateInvoiceInput struct {
	CustomerID   *int64
	CustomerName string
	IsCredit     bool
	Items        []ItemInput
}

// ListFilter restricts the invoice listing to a date window. To is treated
// as an inclusive end of day by the handler.
type ListFilter struct {
	From time.Time
	To   time.Time
}
