// Package export turns processed invoice records into report files:
// Excel workbooks for analysis, CSV for spreadsheets, JSON for integrations.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Exporter writes invoice reports into a target directory.
type Exporter struct {
	dir string
	now func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock overrides the timestamp source used in generated filenames.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates an Exporter that writes into dir, creating it if needed.
func New(dir string, opts ...Option) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", dir)
	}
	e := &Exporter{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Exporter) path(prefix, ext string) string {
	ts := e.now().Format("20060102_150405")
	return filepath.Join(e.dir, fmt.Sprintf("%s_%s%s", prefix, ts, ext))
}

// exportRow is the flat, spreadsheet-friendly projection of an invoice record.
type exportRow struct {
	InvoiceNumber   string  `csv:"invoice_number"`
	VendorName      string  `csv:"vendor_name"`
	InvoiceDate     string  `csv:"invoice_date"`
	DueDate         string  `csv:"due_date"`
	TotalAmount     float64 `csv:"total_amount"`
	Subtotal        float64 `csv:"subtotal"`
	TaxAmount       float64 `csv:"tax_amount"`
	Currency        string  `csv:"currency"`
	PaymentTerms    string  `csv:"payment_terms"`
	PONumber        string  `csv:"po_number"`
	LineItemCount   int     `csv:"line_item_count"`
	Confidence      float64 `csv:"confidence"`
	ValidationScore float64 `csv:"validation_score"`
	ProcessingTime  float64 `csv:"processing_time"`
	FileName        string  `csv:"file_name"`
	ProcessedAt     string  `csv:"processed_at"`
	AIModel         string  `csv:"ai_model"`
}

func buildRow(rec *model.InvoiceRecord) exportRow {
	return exportRow{
		InvoiceNumber:   deref(rec.InvoiceNumber),
		VendorName:      deref(rec.VendorName),
		InvoiceDate:     deref(rec.InvoiceDate),
		DueDate:         deref(rec.DueDate),
		TotalAmount:     derefF(rec.TotalAmount),
		Subtotal:        derefF(rec.Subtotal),
		TaxAmount:       derefF(rec.TaxAmount),
		Currency:        deref(rec.Currency),
		PaymentTerms:    deref(rec.PaymentTerms),
		PONumber:        deref(rec.PONumber),
		LineItemCount:   len(rec.LineItems),
		Confidence:      rec.Confidence,
		ValidationScore: derefF(rec.ValidationScore),
		ProcessingTime:  rec.ProcessingTime,
		FileName:        rec.FileName,
		ProcessedAt:     rec.ProcessedAt.UTC().Format(time.RFC3339),
		AIModel:         rec.AIModel,
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefF(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
