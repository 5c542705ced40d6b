// Package analytics derives business metrics from stored invoice records:
// spend totals, vendor concentration, monthly trends and quality alerts.
package analytics

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

// Confidence below this threshold flags a record for manual review.
const lowConfidenceThreshold = 0.7

// Dashboard aggregates the metrics shown by the stats command and the
// HTTP analytics endpoint.
type Dashboard struct {
	TotalInvoices int     `json:"total_invoices"`
	TotalAmount   float64 `json:"total_amount"`
	AverageAmount float64 `json:"average_amount"`
	UniqueVendors int     `json:"unique_vendors"`

	// Herfindahl-Hirschman index over vendor spend shares, in [0, 1].
	// Values near 1 mean spend is concentrated in few vendors.
	VendorConcentration float64 `json:"vendor_concentration"`

	TopVendors   []store.VendorStat   `json:"top_vendors"`
	MonthlyTrend []store.MonthlyTotal `json:"monthly_trend"`

	Performance *store.Performance `json:"performance,omitempty"`

	Alerts []Alert `json:"alerts"`
}

// Alert flags a stored record that needs human attention.
type Alert struct {
	InvoiceID string  `json:"invoice_id"`
	FileName  string  `json:"file_name"`
	Category  string  `json:"category"` // "quality" or "validation"
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
}

// Engine computes analytics over a Store.
type Engine struct {
	store store.Store
}

// New creates an analytics Engine.
func New(st store.Store) *Engine {
	return &Engine{store: st}
}

// Dashboard assembles the full metrics view. The performance window covers
// the last 30 days.
func (e *Engine) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}

	count, err := e.store.CountInvoices(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: count invoices")
	}
	d.TotalInvoices = count

	vendors, err := e.store.VendorSummary(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: vendor summary")
	}
	d.UniqueVendors = len(vendors)
	for _, v := range vendors {
		d.TotalAmount += v.TotalAmount
	}
	if count > 0 {
		d.AverageAmount = d.TotalAmount / float64(count)
	}
	d.VendorConcentration = concentration(vendors)
	d.TopVendors = topN(vendors, 5)

	trend, err := e.store.MonthlyTotals(ctx, 0)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: monthly totals")
	}
	d.MonthlyTrend = trend

	perf, err := e.store.ProcessingPerformance(ctx, 30*24*time.Hour)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: processing performance")
	}
	d.Performance = perf

	alerts, err := e.QualityAlerts(ctx)
	if err != nil {
		return nil, err
	}
	d.Alerts = alerts

	zap.L().Debug("dashboard assembled",
		zap.Int("invoices", d.TotalInvoices),
		zap.Int("alerts", len(d.Alerts)))
	return d, nil
}

// QualityAlerts scans recent records for low extraction confidence and
// failed validation checks.
func (e *Engine) QualityAlerts(ctx context.Context) ([]Alert, error) {
	records, err := e.store.RecentInvoices(ctx, 500)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: recent invoices")
	}

	var alerts []Alert
	for i := range records {
		rec := &records[i]
		if rec.Confidence < lowConfidenceThreshold {
			alerts = append(alerts, Alert{
				InvoiceID: rec.ID,
				FileName:  rec.FileName,
				Category:  "quality",
				Message:   "low extraction confidence, review manually",
				Value:     rec.Confidence,
			})
		}
		if failed := failedChecks(rec.ValidationResults); failed > 0 {
			alerts = append(alerts, Alert{
				InvoiceID: rec.ID,
				FileName:  rec.FileName,
				Category:  "validation",
				Message:   "one or more validation checks failed",
				Value:     float64(failed),
			})
		}
	}
	return alerts, nil
}

func failedChecks(report model.ValidationReport) int {
	n := 0
	for _, res := range report {
		if !res.Passed {
			n++
		}
	}
	return n
}

// concentration is the Herfindahl-Hirschman index over vendor spend shares.
func concentration(vendors []store.VendorStat) float64 {
	var total float64
	for _, v := range vendors {
		total += v.TotalAmount
	}
	if total == 0 {
		return 0
	}
	var hhi float64
	for _, v := range vendors {
		share := v.TotalAmount / total
		hhi += share * share
	}
	return hhi
}

func topN(vendors []store.VendorStat, n int) []store.VendorStat {
	if len(vendors) > n {
		return vendors[:n]
	}
	return vendors
}
