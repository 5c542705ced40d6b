package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it,
// which keeps the Postgres store unit-testable without a live database.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS invoices (
	id               TEXT PRIMARY KEY,
	invoice_number   TEXT,
	vendor_name      TEXT,
	invoice_date     TEXT,
	total_amount     DOUBLE PRECISION,
	currency         TEXT,
	confidence       DOUBLE PRECISION NOT NULL,
	validation_score DOUBLE PRECISION,
	processing_time  DOUBLE PRECISION NOT NULL,
	processed_at     TIMESTAMPTZ NOT NULL,
	file_name        TEXT NOT NULL,
	record           JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_invoices_vendor ON invoices(vendor_name);
CREATE INDEX IF NOT EXISTS idx_invoices_date ON invoices(invoice_date);
CREATE INDEX IF NOT EXISTS idx_invoices_number ON invoices(invoice_number);
CREATE INDEX IF NOT EXISTS idx_invoices_processed_at ON invoices(processed_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveInvoice(ctx context.Context, rec *model.InvoiceRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal record")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO invoices
			(id, invoice_number, vendor_name, invoice_date, total_amount, currency,
			 confidence, validation_score, processing_time, processed_at, file_name, record)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID,
		rec.InvoiceNumber, rec.VendorName, rec.InvoiceDate,
		rec.TotalAmount, rec.Currency,
		rec.Confidence, rec.ValidationScore, rec.ProcessingTime,
		rec.ProcessedAt.UTC(), rec.FileName, recordJSON,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert invoice")
	}
	return rec.ID, nil
}

func (s *PostgresStore) GetInvoice(ctx context.Context, id string) (*model.InvoiceRecord, error) {
	var recordJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM invoices WHERE id = $1`, id).Scan(&recordJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get invoice")
	}
	return unmarshalRecord(string(recordJSON))
}

func (s *PostgresStore) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.InvoiceRecord, error) {
	query := `SELECT record FROM invoices WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Vendor != "" {
		query += ` AND vendor_name = ` + arg(filter.Vendor)
	}
	if filter.StartDate != "" {
		query += ` AND invoice_date >= ` + arg(filter.StartDate)
	}
	if filter.EndDate != "" {
		query += ` AND invoice_date <= ` + arg(filter.EndDate)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query += ` AND (invoice_number ILIKE ` + arg(pattern) + ` OR vendor_name ILIKE ` + arg(pattern) + `)`
	}
	query += ` ORDER BY processed_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list invoices")
	}
	defer rows.Close()

	var records []model.InvoiceRecord
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan invoice")
		}
		rec, err := unmarshalRecord(string(recordJSON))
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list invoices iterate")
}

// RecentInvoices returns the n most recently processed records.
func (s *PostgresStore) RecentInvoices(ctx context.Context, n int) ([]model.InvoiceRecord, error) {
	return s.ListInvoices(ctx, InvoiceFilter{Limit: n})
}

func (s *PostgresStore) DeleteInvoice(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete invoice %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("invoice not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) CountInvoices(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count invoices")
}

func (s *PostgresStore) VendorSummary(ctx context.Context) ([]VendorStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT vendor_name, COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(AVG(total_amount), 0)
		 FROM invoices
		 WHERE vendor_name IS NOT NULL AND vendor_name != ''
		 GROUP BY vendor_name
		 ORDER BY SUM(total_amount) DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: vendor summary")
	}
	defer rows.Close()

	var stats []VendorStat
	for rows.Next() {
		var vs VendorStat
		if err := rows.Scan(&vs.Vendor, &vs.InvoiceCount, &vs.TotalAmount, &vs.AvgAmount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan vendor stat")
		}
		stats = append(stats, vs)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: vendor summary iterate")
}

func (s *PostgresStore) MonthlyTotals(ctx context.Context, year int) ([]MonthlyTotal, error) {
	query := `SELECT substr(invoice_date, 1, 7) AS month, COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM invoices
		 WHERE invoice_date IS NOT NULL`
	var args []any
	if year > 0 {
		args = append(args, yearString(year))
		query += ` AND substr(invoice_date, 1, 4) = $1`
	}
	query += ` GROUP BY month ORDER BY month`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: monthly totals")
	}
	defer rows.Close()

	var totals []MonthlyTotal
	for rows.Next() {
		var mt MonthlyTotal
		if err := rows.Scan(&mt.Month, &mt.InvoiceCount, &mt.TotalAmount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan monthly total")
		}
		totals = append(totals, mt)
	}
	return totals, eris.Wrap(rows.Err(), "postgres: monthly totals iterate")
}

func (s *PostgresStore) ProcessingPerformance(ctx context.Context, window time.Duration) (*Performance, error) {
	cutoff := time.Now().UTC().Add(-window)
	row := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
			COALESCE(AVG(confidence), 0),
			COALESCE(AVG(validation_score), 0),
			COALESCE(AVG(processing_time), 0)
		 FROM invoices
		 WHERE processed_at >= $1`,
		cutoff,
	)

	perf := Performance{Since: cutoff.Format("2006-01-02")}
	err := row.Scan(&perf.InvoiceCount, &perf.AvgConfidence, &perf.AvgValidation, &perf.AvgProcessingTime)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: processing performance")
	}
	return &perf, nil
}
