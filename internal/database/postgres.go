package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxIface is the slice of pgxpool.Pool the archive needs. pgxmock
// satisfies it in tests.
type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresConfig controls the connection pool for the scan history table.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// PostgresArchive implements Archive on a pgx connection pool.
// It assumes a table schema like:
//
//	CREATE TABLE scan_history (
//		scan_id UUID PRIMARY KEY,
//		url TEXT NOT NULL,
//		status TEXT NOT NULL,
//		score INT NOT NULL,
//		pages INT NOT NULL,
//		records INT NOT NULL,
//		started_at TIMESTAMPTZ NOT NULL,
//		finished_at TIMESTAMPTZ NOT NULL,
//		result_uri TEXT NOT NULL,
//		error_message TEXT
//	);
type PostgresArchive struct {
	pool pgxIface
}

// NewPostgresArchive creates a connection pool and pings it to ensure the
// database is reachable.
func NewPostgresArchive(ctx context.Context, cfg PostgresConfig) (*PostgresArchive, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresArchive{pool: pool}, nil
}

// NewPostgresArchiveWithPool constructs an archive from an existing pool
// (primarily for testing).
func NewPostgresArchiveWithPool(pool pgxIface) (*PostgresArchive, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresArchive{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (a *PostgresArchive) Close() {
	if a == nil || a.pool == nil {
		return
	}
	a.pool.Close()
}

// RecordScan upserts the row for a finished scan. Re-running a scan id
// overwrites the previous row.
func (a *PostgresArchive) RecordScan(ctx context.Context, row ScanRow) error {
	if row.ScanID == "" {
		return fmt.Errorf("scan id is required")
	}
	query := `
INSERT INTO scan_history (
	scan_id, url, status, score, pages, records,
	started_at, finished_at, result_uri, error_message
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (scan_id) DO UPDATE SET
	status = EXCLUDED.status,
	score = EXCLUDED.score,
	pages = EXCLUDED.pages,
	records = EXCLUDED.records,
	finished_at = EXCLUDED.finished_at,
	result_uri = EXCLUDED.result_uri,
	error_message = EXCLUDED.error_message`

	_, err := a.pool.Exec(ctx, query,
		row.ScanID,
		row.URL,
		row.Status,
		row.Score,
		row.Pages,
		row.Records,
		row.StartedAt,
		row.FinishedAt,
		row.ResultURI,
		row.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert scan row: %w", err)
	}
	return nil
}

// GetScan loads one archived scan row.
func (a *PostgresArchive) GetScan(ctx context.Context, scanID string) (ScanRow, error) {
	query := `
SELECT scan_id, url, status, score, pages, records,
	started_at, finished_at, result_uri, error_message
FROM scan_history
WHERE scan_id = $1`

	var row ScanRow
	err := a.pool.QueryRow(ctx, query, scanID).Scan(
		&row.ScanID,
		&row.URL,
		&row.Status,
		&row.Score,
		&row.Pages,
		&row.Records,
		&row.StartedAt,
		&row.FinishedAt,
		&row.ResultURI,
		&row.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ScanRow{}, ErrScanNotFound
		}
		return ScanRow{}, fmt.Errorf("get scan row: %w", err)
	}
	return row, nil
}

// ListScans returns archived rows, newest first.
func (a *PostgresArchive) ListScans(ctx context.Context, limit, offset int) ([]ScanRow, error) {
	query := `
SELECT scan_id, url, status, score, pages, records,
	started_at, finished_at, result_uri, error_message
FROM scan_history
ORDER BY finished_at DESC
LIMIT $1 OFFSET $2`

	rows, err := a.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list scan rows: %w", err)
	}
	defer rows.Close()

	var out []ScanRow
	for rows.Next() {
		var row ScanRow
		if err := rows.Scan(
			&row.ScanID,
			&row.URL,
			&row.Status,
			&row.Score,
			&row.Pages,
			&row.Records,
			&row.StartedAt,
			&row.FinishedAt,
			&row.ResultURI,
			&row.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan rows: %w", err)
	}
	return out, nil
}
