package model

import "time"

// LineItem is a single product or service line on an invoice. Numeric fields
// default to 0 when the source value is missing or unparsable; an item is
// never dropped for having partial data.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// CheckResult is the outcome of a single validation check.
type CheckResult struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// ValidationReport maps check names (per-field rule names plus business-logic
// checks like line_items_sum) to their outcomes.
type ValidationReport map[string]CheckResult

// FileMetadata describes the source document, attached verbatim to the
// output record.
type FileMetadata struct {
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"`
}

// ProcessingMetadata is created once per pipeline run and never mutated
// afterwards.
type ProcessingMetadata struct {
	FileMetadata
	ProcessedAt    time.Time `json:"processed_at"`
	ProcessingTime float64   `json:"processing_time"` // seconds
	AIModel        string    `json:"ai_model,omitempty"`
}

// InvoiceRecord is the canonical, normalized representation of one invoice.
// Pointer fields are nil where the source value was missing or unparsable;
// amounts may be negative here (range checks happen in validation).
type InvoiceRecord struct {
	ID             string     `json:"id,omitempty"`
	InvoiceNumber  *string    `json:"invoice_number"`
	VendorName     *string    `json:"vendor_name"`
	VendorAddress  *string    `json:"vendor_address"`
	BillingAddress *string    `json:"billing_address"`
	InvoiceDate    *string    `json:"invoice_date"` // YYYY-MM-DD
	DueDate        *string    `json:"due_date"`     // YYYY-MM-DD
	TotalAmount    *float64   `json:"total_amount"`
	Subtotal       *float64   `json:"subtotal"`
	TaxAmount      *float64   `json:"tax_amount"`
	Currency       *string    `json:"currency"` // upper-cased verbatim
	PaymentTerms   *string    `json:"payment_terms"`
	PaymentMethod  *string    `json:"payment_method"`
	PONumber       *string    `json:"po_number"`
	LineItems      []LineItem `json:"line_items"`

	Confidence        float64          `json:"confidence"`
	ValidationScore   *float64         `json:"validation_score"` // nil when zero checks were evaluated
	ValidationResults ValidationReport `json:"validation_results,omitempty"`
	DegradedFields    []string         `json:"degraded_fields,omitempty"`

	ProcessingMetadata
}

// Field names shared by the scorer, validator, and normalizer.
const (
	FieldInvoiceNumber  = "invoice_number"
	FieldVendorName     = "vendor_name"
	FieldVendorAddress  = "vendor_address"
	FieldBillingAddress = "billing_address"
	FieldInvoiceDate    = "invoice_date"
	FieldDueDate        = "due_date"
	FieldTotalAmount    = "total_amount"
	FieldSubtotal       = "subtotal"
	FieldTaxAmount      = "tax_amount"
	FieldCurrency       = "currency"
	FieldPaymentTerms   = "payment_terms"
	FieldPaymentMethod  = "payment_method"
	FieldPONumber       = "po_number"
	FieldLineItems      = "line_items"
)

// Field returns the record's value for a field key: *string fields yield
// string, amount fields yield float64, line_items yields []LineItem. Missing
// or nil fields yield nil.
func (r *InvoiceRecord) Field(key string) any {
	str := func(p *string) any {
		if p == nil {
			return nil
		}
		return *p
	}
	num := func(p *float64) any {
		if p == nil {
			return nil
		}
		return *p
	}
	switch key {
	case FieldInvoiceNumber:
		return str(r.InvoiceNumber)
	case FieldVendorName:
		return str(r.VendorName)
	case FieldVendorAddress:
		return str(r.VendorAddress)
	case FieldBillingAddress:
		return str(r.BillingAddress)
	case FieldInvoiceDate:
		return str(r.InvoiceDate)
	case FieldDueDate:
		return str(r.DueDate)
	case FieldTotalAmount:
		return num(r.TotalAmount)
	case FieldSubtotal:
		return num(r.Subtotal)
	case FieldTaxAmount:
		return num(r.TaxAmount)
	case FieldCurrency:
		return str(r.Currency)
	case FieldPaymentTerms:
		return str(r.PaymentTerms)
	case FieldPaymentMethod:
		return str(r.PaymentMethod)
	case FieldPONumber:
		return str(r.PONumber)
	case FieldLineItems:
		if len(r.LineItems) == 0 {
			return nil
		}
		return r.LineItems
	default:
		return nil
	}
}

// HasField reports whether the field holds a non-empty value: non-nil and,
// for strings, non-empty; for line_items, at least one item.
func (r *InvoiceRecord) HasField(key string) bool {
	v := r.Field(key)
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// LineItemTotal sums total_price across line items.
func (r *InvoiceRecord) LineItemTotal() float64 {
	var sum float64
	for _, li := range r.LineItems {
		sum += li.TotalPrice
	}
	return sum
}
