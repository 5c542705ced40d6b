package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func testRecord(number, vendor, date string, amount float64) *model.InvoiceRecord {
	return &model.InvoiceRecord{
		InvoiceNumber: strPtr(number),
		VendorName:    strPtr(vendor),
		InvoiceDate:   strPtr(date),
		TotalAmount:   f64Ptr(amount),
		Currency:      strPtr("USD"),
		Confidence:    0.85,
		ProcessingMetadata: model.ProcessingMetadata{
			FileMetadata: model.FileMetadata{
				FileName: number + ".pdf",
				FileSize: 1024,
				FileType: ".pdf",
			},
			ProcessedAt:    time.Now().UTC(),
			ProcessingTime: 2.5,
			AIModel:        "claude-sonnet-4-5-20250929",
		},
	}
}

func TestSQLite_SaveAndGetInvoice(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := testRecord("INV-001", "Acme Corp", "2026-01-15", 1234.56)
	rec.LineItems = []model.LineItem{
		{Description: "Widget", Quantity: 2, UnitPrice: 617.28, TotalPrice: 1234.56},
	}
	score := 1.0
	rec.ValidationScore = &score

	id, err := st.SaveInvoice(ctx, rec)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := st.GetInvoice(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "INV-001", *got.InvoiceNumber)
	assert.Equal(t, "Acme Corp", *got.VendorName)
	assert.Equal(t, 1234.56, *got.TotalAmount)
	assert.Len(t, got.LineItems, 1)
	require.NotNil(t, got.ValidationScore)
	assert.Equal(t, 1.0, *got.ValidationScore)
	assert.Equal(t, "INV-001.pdf", got.FileName)
}

func TestSQLite_GetInvoice_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetInvoice(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_SaveInvoice_NilFields(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// A degraded record: only the file metadata is guaranteed present.
	rec := &model.InvoiceRecord{
		Confidence: 0.0,
		ProcessingMetadata: model.ProcessingMetadata{
			FileMetadata: model.FileMetadata{FileName: "blurry.jpg", FileSize: 99, FileType: ".jpg"},
			ProcessedAt:  time.Now().UTC(),
		},
	}

	id, err := st.SaveInvoice(ctx, rec)
	require.NoError(t, err)

	got, err := st.GetInvoice(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.InvoiceNumber)
	assert.Nil(t, got.TotalAmount)
	assert.Nil(t, got.ValidationScore)
}

func TestSQLite_RecentInvoices(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	for i, number := range []string{"INV-001", "INV-002", "INV-003"} {
		rec := testRecord(number, "Acme Corp", "2026-01-15", 100)
		rec.ProcessedAt = base.Add(time.Duration(i) * time.Hour)
		_, err := st.SaveInvoice(ctx, rec)
		require.NoError(t, err)
	}

	recent, err := st.RecentInvoices(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "INV-003", *recent[0].InvoiceNumber)
	assert.Equal(t, "INV-002", *recent[1].InvoiceNumber)
}

func TestSQLite_ListInvoices_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	fixtures := []*model.InvoiceRecord{
		testRecord("INV-001", "Acme Corp", "2026-01-15", 100),
		testRecord("INV-002", "Acme Corp", "2026-02-20", 200),
		testRecord("INV-003", "Globex", "2026-02-25", 300),
	}
	for _, rec := range fixtures {
		_, err := st.SaveInvoice(ctx, rec)
		require.NoError(t, err)
	}

	t.Run("by vendor", func(t *testing.T) {
		got, err := st.ListInvoices(ctx, InvoiceFilter{Vendor: "Acme Corp"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by date range", func(t *testing.T) {
		got, err := st.ListInvoices(ctx, InvoiceFilter{StartDate: "2026-02-01", EndDate: "2026-02-28"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by search", func(t *testing.T) {
		got, err := st.ListInvoices(ctx, InvoiceFilter{Search: "Globex"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "INV-003", *got[0].InvoiceNumber)
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := st.ListInvoices(ctx, InvoiceFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = st.ListInvoices(ctx, InvoiceFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestSQLite_DeleteInvoice(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.SaveInvoice(ctx, testRecord("INV-001", "Acme Corp", "2026-01-15", 100))
	require.NoError(t, err)

	require.NoError(t, st.DeleteInvoice(ctx, id))

	got, err := st.GetInvoice(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = st.DeleteInvoice(ctx, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_CountInvoices(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.CountInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = st.SaveInvoice(ctx, testRecord("INV-001", "Acme Corp", "2026-01-15", 100))
	require.NoError(t, err)

	n, err = st.CountInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_VendorSummary(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, rec := range []*model.InvoiceRecord{
		testRecord("INV-001", "Acme Corp", "2026-01-15", 100),
		testRecord("INV-002", "Acme Corp", "2026-02-20", 300),
		testRecord("INV-003", "Globex", "2026-02-25", 50),
	} {
		_, err := st.SaveInvoice(ctx, rec)
		require.NoError(t, err)
	}

	stats, err := st.VendorSummary(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Ordered by total spend descending.
	assert.Equal(t, "Acme Corp", stats[0].Vendor)
	assert.Equal(t, 2, stats[0].InvoiceCount)
	assert.Equal(t, 400.0, stats[0].TotalAmount)
	assert.Equal(t, 200.0, stats[0].AvgAmount)
	assert.Equal(t, "Globex", stats[1].Vendor)
}

func TestSQLite_MonthlyTotals(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, rec := range []*model.InvoiceRecord{
		testRecord("INV-001", "Acme Corp", "2026-01-15", 100),
		testRecord("INV-002", "Acme Corp", "2026-01-20", 200),
		testRecord("INV-003", "Globex", "2026-02-25", 300),
		testRecord("INV-004", "Globex", "2025-12-31", 400),
	} {
		_, err := st.SaveInvoice(ctx, rec)
		require.NoError(t, err)
	}

	totals, err := st.MonthlyTotals(ctx, 2026)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "2026-01", totals[0].Month)
	assert.Equal(t, 2, totals[0].InvoiceCount)
	assert.Equal(t, 300.0, totals[0].TotalAmount)
	assert.Equal(t, "2026-02", totals[1].Month)

	all, err := st.MonthlyTotals(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLite_ProcessingPerformance(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := testRecord("INV-001", "Acme Corp", "2026-01-15", 100)
	score := 0.8
	rec.ValidationScore = &score
	_, err := st.SaveInvoice(ctx, rec)
	require.NoError(t, err)

	perf, err := st.ProcessingPerformance(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, perf)
	assert.Equal(t, 1, perf.InvoiceCount)
	assert.InDelta(t, 0.85, perf.AvgConfidence, 0.001)
	assert.InDelta(t, 0.8, perf.AvgValidation, 0.001)
	assert.InDelta(t, 2.5, perf.AvgProcessingTime, 0.001)
}
