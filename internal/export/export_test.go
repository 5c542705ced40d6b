package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/invoice-cli/internal/model"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func fixedClock() func() time.Time {
	ts := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	e, err := New(t.TempDir(), WithClock(fixedClock()))
	require.NoError(t, err)
	return e
}

func sampleRecords() []model.InvoiceRecord {
	score := 0.9
	return []model.InvoiceRecord{
		{
			InvoiceNumber:   strPtr("INV-001"),
			VendorName:      strPtr("Acme Corp"),
			InvoiceDate:     strPtr("2026-01-15"),
			TotalAmount:     f64Ptr(1500),
			Currency:        strPtr("USD"),
			Confidence:      0.92,
			ValidationScore: &score,
			LineItems: []model.LineItem{
				{Description: "Widget", Quantity: 3, UnitPrice: 500, TotalPrice: 1500},
			},
			ProcessingMetadata: model.ProcessingMetadata{
				FileMetadata:   model.FileMetadata{FileName: "inv001.pdf", FileSize: 2048, FileType: ".pdf"},
				ProcessedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
				ProcessingTime: 3.2,
				AIModel:        "claude-sonnet-4-5-20250929",
			},
		},
		{
			InvoiceNumber: strPtr("INV-002"),
			VendorName:    strPtr("Globex"),
			InvoiceDate:   strPtr("2026-02-20"),
			TotalAmount:   f64Ptr(500),
			Currency:      strPtr("EUR"),
			Confidence:    0.75,
			ProcessingMetadata: model.ProcessingMetadata{
				FileMetadata: model.FileMetadata{FileName: "inv002.jpg", FileSize: 512, FileType: ".jpg"},
				ProcessedAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestExporter_Excel(t *testing.T) {
	e := newTestExporter(t)

	path, err := e.Excel(sampleRecords())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "invoice_export_20260315_103000.xlsx"))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)
	assert.Equal(t, "Summary", f.Sheets[0].Name)
	assert.Equal(t, "Invoices", f.Sheets[1].Name)
	assert.Equal(t, "Vendors", f.Sheets[2].Name)

	// Header plus one row per invoice.
	invoices := f.Sheets[1]
	require.Len(t, invoices.Rows, 3)
	assert.Equal(t, "Invoice Number", invoices.Rows[0].Cells[0].Value)
	assert.Equal(t, "INV-001", invoices.Rows[1].Cells[0].Value)

	// Vendors ordered by spend.
	vendors := f.Sheets[2]
	require.Len(t, vendors.Rows, 3)
	assert.Equal(t, "Acme Corp", vendors.Rows[1].Cells[0].Value)
	assert.Equal(t, "Globex", vendors.Rows[2].Cells[0].Value)
}

func TestExporter_Excel_Empty(t *testing.T) {
	e := newTestExporter(t)

	path, err := e.Excel(nil)
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)
}

func TestExporter_CSV(t *testing.T) {
	e := newTestExporter(t)

	path, err := e.CSV(sampleRecords())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".csv"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "invoice_number")
	assert.Contains(t, lines[0], "validation_score")
	assert.Contains(t, lines[1], "INV-001")
	assert.Contains(t, lines[1], "Acme Corp")
}

func TestExporter_JSON(t *testing.T) {
	e := newTestExporter(t)

	path, err := e.JSON(sampleRecords())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var env jsonEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, 2, env.ExportInfo.TotalInvoices)
	assert.Equal(t, "1.0", env.ExportInfo.FormatVersion)
	require.Len(t, env.Invoices, 2)
	assert.Equal(t, "INV-001", *env.Invoices[0].InvoiceNumber)
}
