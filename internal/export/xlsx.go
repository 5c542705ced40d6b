package export

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
)

var invoiceColumns = []string{
	"Invoice Number",
	"Vendor Name",
	"Invoice Date",
	"Due Date",
	"Total Amount",
	"Subtotal",
	"Tax Amount",
	"Currency",
	"Payment Terms",
	"PO Number",
	"Line Items",
	"Confidence",
	"Validation Score",
	"Processing Time (s)",
	"File Name",
	"Processed At",
	"AI Model",
}

// Excel writes a workbook with a Summary sheet, the full invoice listing and
// a per-vendor rollup. Returns the path of the created file.
func (e *Exporter) Excel(records []model.InvoiceRecord) (string, error) {
	path := e.path("invoice_export", ".xlsx")

	f := xlsx.NewFile()

	if err := addSummarySheet(f, records); err != nil {
		return "", err
	}
	if err := addInvoiceSheet(f, records); err != nil {
		return "", err
	}
	if err := addVendorSheet(f, records); err != nil {
		return "", err
	}

	if err := f.Save(path); err != nil {
		return "", eris.Wrapf(err, "export: save workbook %s", path)
	}

	zap.L().Info("excel export created",
		zap.String("path", path),
		zap.Int("invoices", len(records)))
	return path, nil
}

func addSummarySheet(f *xlsx.File, records []model.InvoiceRecord) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	addPair := func(metric, value string) {
		row := sheet.AddRow()
		row.AddCell().Value = metric
		row.AddCell().Value = value
	}

	header := sheet.AddRow()
	header.AddCell().Value = "Metric"
	header.AddCell().Value = "Value"

	var total, confidence, procTime float64
	vendors := map[string]float64{}
	for i := range records {
		rec := &records[i]
		total += derefF(rec.TotalAmount)
		confidence += rec.Confidence
		procTime += rec.ProcessingTime
		if v := deref(rec.VendorName); v != "" {
			vendors[v] += derefF(rec.TotalAmount)
		}
	}

	addPair("Total Invoices", fmt.Sprintf("%d", len(records)))
	addPair("Total Amount", fmt.Sprintf("%.2f", total))
	if n := len(records); n > 0 {
		addPair("Average Amount", fmt.Sprintf("%.2f", total/float64(n)))
		addPair("Unique Vendors", fmt.Sprintf("%d", len(vendors)))
		addPair("Average Confidence", fmt.Sprintf("%.1f%%", confidence/float64(n)*100))
		addPair("Average Processing Time", fmt.Sprintf("%.2fs", procTime/float64(n)))
	}

	// Top vendors by spend.
	if len(vendors) > 0 {
		sheet.AddRow()
		addPair("Top Vendors by Amount", "")
		for _, vs := range topVendors(vendors, 5) {
			addPair(vs.name, fmt.Sprintf("%.2f", vs.total))
		}
	}

	return nil
}

func addInvoiceSheet(f *xlsx.File, records []model.InvoiceRecord) error {
	sheet, err := f.AddSheet("Invoices")
	if err != nil {
		return eris.Wrap(err, "export: add invoices sheet")
	}

	header := sheet.AddRow()
	for _, col := range invoiceColumns {
		header.AddCell().Value = col
	}

	for i := range records {
		r := buildRow(&records[i])
		row := sheet.AddRow()
		row.AddCell().Value = r.InvoiceNumber
		row.AddCell().Value = r.VendorName
		row.AddCell().Value = r.InvoiceDate
		row.AddCell().Value = r.DueDate
		row.AddCell().SetFloat(r.TotalAmount)
		row.AddCell().SetFloat(r.Subtotal)
		row.AddCell().SetFloat(r.TaxAmount)
		row.AddCell().Value = r.Currency
		row.AddCell().Value = r.PaymentTerms
		row.AddCell().Value = r.PONumber
		row.AddCell().SetInt(r.LineItemCount)
		row.AddCell().SetFloat(r.Confidence)
		row.AddCell().SetFloat(r.ValidationScore)
		row.AddCell().SetFloat(r.ProcessingTime)
		row.AddCell().Value = r.FileName
		row.AddCell().Value = r.ProcessedAt
		row.AddCell().Value = r.AIModel
	}

	return nil
}

func addVendorSheet(f *xlsx.File, records []model.InvoiceRecord) error {
	sheet, err := f.AddSheet("Vendors")
	if err != nil {
		return eris.Wrap(err, "export: add vendors sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{"Vendor", "Invoice Count", "Total Amount", "Average Amount"} {
		header.AddCell().Value = col
	}

	type agg struct {
		count int
		total float64
	}
	byVendor := map[string]*agg{}
	for i := range records {
		v := deref(records[i].VendorName)
		if v == "" {
			continue
		}
		a := byVendor[v]
		if a == nil {
			a = &agg{}
			byVendor[v] = a
		}
		a.count++
		a.total += derefF(records[i].TotalAmount)
	}

	names := make([]string, 0, len(byVendor))
	for name := range byVendor {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return byVendor[names[i]].total > byVendor[names[j]].total
	})

	for _, name := range names {
		a := byVendor[name]
		row := sheet.AddRow()
		row.AddCell().Value = name
		row.AddCell().SetInt(a.count)
		row.AddCell().SetFloat(a.total)
		row.AddCell().SetFloat(a.total / float64(a.count))
	}

	return nil
}

type vendorTotal struct {
	name  string
	total float64
}

func topVendors(vendors map[string]float64, n int) []vendorTotal {
	out := make([]vendorTotal, 0, len(vendors))
	for name, total := range vendors {
		out = append(out, vendorTotal{name, total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].total > out[j].total })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
