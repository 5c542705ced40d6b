// Package normalize coerces raw extraction fields into canonical types.
// AI output is untrusted and heterogeneous, so nothing here ever fails:
// unparsable values degrade to nil/0 and the degradation is recorded.
package normalize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/invoice-cli/internal/model"
)

// dateLayouts is tried in order; the first successful parse wins. The
// DD/MM-before-MM/DD ordering is lossy for ambiguous values like 03/04/2024 —
// a known limitation of the format list, not something to silently fix.
var dateLayouts = []string{
	"2006-01-02", // YYYY-MM-DD
	"02/01/2006", // DD/MM/YYYY
	"01/02/2006", // MM/DD/YYYY
	"02-01-2006", // DD-MM-YYYY
	"01-02-2006", // MM-DD-YYYY
	"2006/01/02", // YYYY/MM/DD
	"02.01.2006", // DD.MM.YYYY
	"01.02.2006", // MM.DD.YYYY
}

// Result carries the normalized record shape plus which fields degraded
// (were present but unparsable and substituted with nil/0).
type Result struct {
	Record   model.InvoiceRecord
	Degraded []string
}

// Normalize converts a RawExtraction into an InvoiceRecord shape. Fields
// remain nil where the source value was missing or unparsable.
func Normalize(raw model.RawExtraction) Result {
	var res Result
	degraded := make(map[string]bool)

	stringField := func(key string) *string {
		v, ok := raw[key]
		if !ok || v.IsNull() {
			return nil
		}
		s, wasDegraded := coerceString(v)
		if wasDegraded {
			degraded[key] = true
		}
		return s
	}
	amountField := func(key string) *float64 {
		v, ok := raw[key]
		if !ok || v.IsNull() {
			return nil
		}
		f, wasDegraded := Amount(v)
		if wasDegraded {
			degraded[key] = true
		}
		return f
	}
	dateField := func(key string) *string {
		v, ok := raw[key]
		if !ok || v.IsNull() {
			return nil
		}
		d, wasDegraded := Date(v)
		if wasDegraded {
			degraded[key] = true
		}
		return d
	}

	rec := &res.Record
	rec.InvoiceNumber = stringField(model.FieldInvoiceNumber)
	rec.VendorName = stringField(model.FieldVendorName)
	rec.VendorAddress = stringField(model.FieldVendorAddress)
	rec.BillingAddress = stringField(model.FieldBillingAddress)
	rec.InvoiceDate = dateField(model.FieldInvoiceDate)
	rec.DueDate = dateField(model.FieldDueDate)
	rec.TotalAmount = amountField(model.FieldTotalAmount)
	rec.Subtotal = amountField(model.FieldSubtotal)
	rec.TaxAmount = amountField(model.FieldTaxAmount)
	rec.PaymentTerms = stringField(model.FieldPaymentTerms)
	rec.PaymentMethod = stringField(model.FieldPaymentMethod)
	rec.PONumber = stringField(model.FieldPONumber)

	if v, ok := raw[model.FieldCurrency]; ok && !v.IsNull() {
		cur, wasDegraded := Currency(v)
		if wasDegraded {
			degraded[model.FieldCurrency] = true
		}
		rec.Currency = cur
	}

	if v, ok := raw[model.FieldLineItems]; ok && !v.IsNull() {
		items, wasDegraded := LineItems(v)
		if wasDegraded {
			degraded[model.FieldLineItems] = true
		}
		rec.LineItems = items
	}

	for f := range degraded {
		res.Degraded = append(res.Degraded, f)
	}
	sort.Strings(res.Degraded)
	return res
}

// Amount coerces a value into a float. Numerics pass through; strings are
// stripped down to digits, separators, and sign before parsing. Negative
// amounts are permitted here — range validation happens later. degraded is
// true when a present value could not be parsed.
func Amount(v model.Value) (*float64, bool) {
	if f, ok := v.Number(); ok {
		return &f, false
	}
	s, ok := v.String()
	if !ok {
		return nil, true
	}
	f, ok := parseAmountString(s)
	if !ok {
		return nil, true
	}
	return &f, false
}

// parseAmountString handles currency symbols, thousands separators, and
// decimal commas: "$1,234.56" → 1234.56, "1.234,56" → 1234.56, "7,5" → 7.5.
func parseAmountString(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}

	hasComma := strings.ContainsRune(cleaned, ',')
	hasDot := strings.ContainsRune(cleaned, '.')
	switch {
	case hasComma && hasDot:
		// The later separator is the decimal point; the other is grouping.
		if strings.LastIndexByte(cleaned, ',') > strings.LastIndexByte(cleaned, '.') {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma:
		if strings.Count(cleaned, ",") > 1 {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Date parses a value against the supported layouts and re-emits it as
// YYYY-MM-DD. degraded is true when no layout matches.
func Date(v model.Value) (*string, bool) {
	s, ok := v.String()
	if !ok || s == "" {
		return nil, true
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, strings.TrimSpace(s))
		if err != nil {
			continue
		}
		out := t.Format("2006-01-02")
		return &out, false
	}
	return nil, true
}

// Currency upper-cases a currency value verbatim. Validation against a code
// list happens in the business-rule validator, not here.
func Currency(v model.Value) (*string, bool) {
	s, ok := v.String()
	if !ok || s == "" {
		return nil, true
	}
	out := strings.ToUpper(s)
	return &out, false
}

// LineItems normalizes each item independently. Missing numeric fields
// default to 0 and missing descriptions to ""; an item is never dropped for
// partial data. degraded is true when the value is not an array or when any
// present item field failed to parse.
func LineItems(v model.Value) ([]model.LineItem, bool) {
	arr, ok := v.Array()
	if !ok {
		return nil, true
	}
	items := make([]model.LineItem, 0, len(arr))
	var anyDegraded bool
	for _, el := range arr {
		item, wasDegraded := lineItem(el)
		if wasDegraded {
			anyDegraded = true
		}
		items = append(items, item)
	}
	return items, anyDegraded
}

func lineItem(v model.Value) (model.LineItem, bool) {
	var item model.LineItem
	obj, ok := v.Object()
	if !ok {
		return item, true
	}

	var degraded bool
	if desc, ok := obj["description"]; ok && !desc.IsNull() {
		s, wasDegraded := coerceString(desc)
		if wasDegraded {
			degraded = true
		}
		if s != nil {
			item.Description = *s
		}
	}

	itemAmount := func(key string) float64 {
		raw, ok := obj[key]
		if !ok || raw.IsNull() {
			return 0
		}
		f, wasDegraded := Amount(raw)
		if wasDegraded || f == nil {
			degraded = true
			return 0
		}
		return *f
	}
	item.Quantity = itemAmount("quantity")
	item.UnitPrice = itemAmount("unit_price")
	item.TotalPrice = itemAmount("total_price")

	return item, degraded
}

// coerceString accepts strings verbatim and renders numbers; anything else
// degrades to nil.
func coerceString(v model.Value) (*string, bool) {
	if s, ok := v.String(); ok {
		return &s, false
	}
	if f, ok := v.Number(); ok {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		return &s, false
	}
	return nil, true
}
