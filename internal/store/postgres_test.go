package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_SaveInvoice(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO invoices`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := testRecord("INV-001", "Acme Corp", "2026-01-15", 1234.56)
	id, err := s.SaveInvoice(context.Background(), rec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, rec.ID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetInvoice_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM invoices WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetInvoice(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetInvoice_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rec := testRecord("INV-007", "Globex", "2026-03-01", 500)
	rec.ID = "abc-123"
	recordJSON, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM invoices WHERE id = \$1`).
		WithArgs("abc-123").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(recordJSON))

	got, err := s.GetInvoice(context.Background(), "abc-123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "INV-007", *got.InvoiceNumber)
	assert.Equal(t, 500.0, *got.TotalAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteInvoice_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM invoices WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteInvoice(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountInvoices(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM invoices`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	n, err := s.CountInvoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_VendorSummary(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT vendor_name, COUNT\(\*\)`).
		WillReturnRows(pgxmock.NewRows([]string{"vendor_name", "count", "sum", "avg"}).
			AddRow("Acme Corp", 3, 900.0, 300.0).
			AddRow("Globex", 1, 100.0, 100.0))

	stats, err := s.VendorSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Acme Corp", stats[0].Vendor)
	assert.Equal(t, 3, stats[0].InvoiceCount)
	assert.Equal(t, 900.0, stats[0].TotalAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ProcessingPerformance(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\),`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count", "avg_conf", "avg_val", "avg_time"}).
			AddRow(10, 0.82, 0.9, 3.1))

	perf, err := s.ProcessingPerformance(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, perf)
	assert.Equal(t, 10, perf.InvoiceCount)
	assert.InDelta(t, 0.82, perf.AvgConfidence, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
