package store

import (
	"context"
	"time"

	"github.com/sells-group/invoice-cli/internal/model"
)

// InvoiceFilter specifies criteria for listing invoices.
type InvoiceFilter struct {
	Vendor    string `json:"vendor,omitempty"`
	StartDate string `json:"start_date,omitempty"` // YYYY-MM-DD, inclusive
	EndDate   string `json:"end_date,omitempty"`   // YYYY-MM-DD, inclusive
	Search    string `json:"search,omitempty"`     // matches invoice number or vendor name
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// VendorStat is an aggregate row of the per-vendor summary.
type VendorStat struct {
	Vendor       string  `json:"vendor"`
	InvoiceCount int     `json:"invoice_count"`
	TotalAmount  float64 `json:"total_amount"`
	AvgAmount    float64 `json:"avg_amount"`
}

// MonthlyTotal is one month's invoice volume and spend.
type MonthlyTotal struct {
	Month        string  `json:"month"` // YYYY-MM
	InvoiceCount int     `json:"invoice_count"`
	TotalAmount  float64 `json:"total_amount"`
}

// Performance summarizes processing quality over a recent window.
type Performance struct {
	InvoiceCount      int     `json:"invoice_count"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgValidation     float64 `json:"avg_validation"`
	AvgProcessingTime float64 `json:"avg_processing_time"` // seconds
	Since             string  `json:"since"`               // YYYY-MM-DD
}

// Store defines the persistence interface for processed invoice records.
type Store interface {
	SaveInvoice(ctx context.Context, rec *model.InvoiceRecord) (string, error)
	GetInvoice(ctx context.Context, id string) (*model.InvoiceRecord, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.InvoiceRecord, error)
	RecentInvoices(ctx context.Context, n int) ([]model.InvoiceRecord, error)
	DeleteInvoice(ctx context.Context, id string) error
	CountInvoices(ctx context.Context) (int, error)

	// Aggregates for analytics and reporting.
	VendorSummary(ctx context.Context) ([]VendorStat, error)
	MonthlyTotals(ctx context.Context, year int) ([]MonthlyTotal, error)
	ProcessingPerformance(ctx context.Context, window time.Duration) (*Performance, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
