package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/invoice-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Searchable fields live in columns; the full record is kept as JSON so the
// schema does not chase the record shape.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS invoices (
	id               TEXT PRIMARY KEY,
	invoice_number   TEXT,
	vendor_name      TEXT,
	invoice_date     TEXT,
	total_amount     REAL,
	currency         TEXT,
	confidence       REAL NOT NULL,
	validation_score REAL,
	processing_time  REAL NOT NULL,
	processed_at     DATETIME NOT NULL,
	file_name        TEXT NOT NULL,
	record           TEXT NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_invoices_vendor ON invoices(vendor_name);
CREATE INDEX IF NOT EXISTS idx_invoices_date ON invoices(invoice_date);
CREATE INDEX IF NOT EXISTS idx_invoices_number ON invoices(invoice_number);
CREATE INDEX IF NOT EXISTS idx_invoices_processed_at ON invoices(processed_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveInvoice(ctx context.Context, rec *model.InvoiceRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal record")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO invoices
			(id, invoice_number, vendor_name, invoice_date, total_amount, currency,
			 confidence, validation_score, processing_time, processed_at, file_name, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		nullStr(rec.InvoiceNumber), nullStr(rec.VendorName), nullStr(rec.InvoiceDate),
		nullF64(rec.TotalAmount), nullStr(rec.Currency),
		rec.Confidence, nullF64(rec.ValidationScore), rec.ProcessingTime,
		rec.ProcessedAt.UTC(), rec.FileName, string(recordJSON),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert invoice")
	}
	return rec.ID, nil
}

func (s *SQLiteStore) GetInvoice(ctx context.Context, id string) (*model.InvoiceRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT record FROM invoices WHERE id = ?`, id)

	var recordJSON string
	err := row.Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get invoice")
	}
	return unmarshalRecord(recordJSON)
}

func (s *SQLiteStore) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.InvoiceRecord, error) {
	query := `SELECT record FROM invoices WHERE 1=1`
	var args []any

	if filter.Vendor != "" {
		query += ` AND vendor_name = ?`
		args = append(args, filter.Vendor)
	}
	if filter.StartDate != "" {
		query += ` AND invoice_date >= ?`
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		query += ` AND invoice_date <= ?`
		args = append(args, filter.EndDate)
	}
	if filter.Search != "" {
		query += ` AND (invoice_number LIKE ? OR vendor_name LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY processed_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list invoices")
	}
	defer rows.Close()

	var records []model.InvoiceRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan invoice")
		}
		rec, err := unmarshalRecord(recordJSON)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list invoices iterate")
}

// RecentInvoices returns the n most recently processed records.
func (s *SQLiteStore) RecentInvoices(ctx context.Context, n int) ([]model.InvoiceRecord, error) {
	return s.ListInvoices(ctx, InvoiceFilter{Limit: n})
}

func (s *SQLiteStore) DeleteInvoice(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete invoice %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("invoice not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) CountInvoices(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count invoices")
}

func (s *SQLiteStore) VendorSummary(ctx context.Context) ([]VendorStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vendor_name, COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(AVG(total_amount), 0)
		 FROM invoices
		 WHERE vendor_name IS NOT NULL AND vendor_name != ''
		 GROUP BY vendor_name
		 ORDER BY SUM(total_amount) DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: vendor summary")
	}
	defer rows.Close()

	var stats []VendorStat
	for rows.Next() {
		var vs VendorStat
		if err := rows.Scan(&vs.Vendor, &vs.InvoiceCount, &vs.TotalAmount, &vs.AvgAmount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan vendor stat")
		}
		stats = append(stats, vs)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: vendor summary iterate")
}

func (s *SQLiteStore) MonthlyTotals(ctx context.Context, year int) ([]MonthlyTotal, error) {
	query := `SELECT substr(invoice_date, 1, 7) AS month, COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM invoices
		 WHERE invoice_date IS NOT NULL`
	var args []any
	if year > 0 {
		query += ` AND substr(invoice_date, 1, 4) = ?`
		args = append(args, yearString(year))
	}
	query += ` GROUP BY month ORDER BY month`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: monthly totals")
	}
	defer rows.Close()

	var totals []MonthlyTotal
	for rows.Next() {
		var mt MonthlyTotal
		if err := rows.Scan(&mt.Month, &mt.InvoiceCount, &mt.TotalAmount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan monthly total")
		}
		totals = append(totals, mt)
	}
	return totals, eris.Wrap(rows.Err(), "sqlite: monthly totals iterate")
}

func (s *SQLiteStore) ProcessingPerformance(ctx context.Context, window time.Duration) (*Performance, error) {
	cutoff := time.Now().UTC().Add(-window)
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(AVG(confidence), 0),
			COALESCE(AVG(validation_score), 0),
			COALESCE(AVG(processing_time), 0)
		 FROM invoices
		 WHERE processed_at >= ?`,
		cutoff,
	)

	perf := Performance{Since: cutoff.Format("2006-01-02")}
	err := row.Scan(&perf.InvoiceCount, &perf.AvgConfidence, &perf.AvgValidation, &perf.AvgProcessingTime)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: processing performance")
	}
	return &perf, nil
}

// helpers

func unmarshalRecord(recordJSON string) (*model.InvoiceRecord, error) {
	var rec model.InvoiceRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal record")
	}
	return &rec, nil
}

func nullStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func yearString(year int) string {
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
}
