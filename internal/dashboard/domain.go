package dashboard

// Summary is the day-at-a-glance rollup recomputed on each request.
type Summary struct {
	TotalSalesToday      float64 `json:"totalSalesToday"`
	InvoiceCountToday    int64   `json:"invoiceCountToday"`
	LowStockCount        int64   `json:"lowStockCount"`
	OutstandingTotal     float64 `json:"outstandingTotal"`
	OutstandingCustomers int64   `json:"outstandingCustomers"`
}
