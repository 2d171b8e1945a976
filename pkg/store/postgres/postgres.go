// Package postgres stores records in a PostgreSQL table.
//
// Each record is one row of the table below, keyed by its columns. bytea
// compares byte-wise, so ORDER BY on the key columns yields the same order
// as a sorted key/value table.
//
//	row_key    bytea   primary key (1/4)
//	family     bytea   primary key (2/4)
//	qualifier  bytea   primary key (3/4)
//	visibility bytea   primary key (4/4)
//	ts         bigint
//	value      bytea
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ajitpratap0/graphkv/pkg/converter"
	"github.com/ajitpratap0/graphkv/pkg/errors"
)

// Name identifies the backend in metrics and logs.
const Name = "postgres"

// Config configures a Backend.
type Config struct {
	DSN            string
	Table          string
	MaxConns       int32
	ConnectTimeout time.Duration
	// BatchSize is the number of upserts sent per round trip
	BatchSize int
}

// Backend is a record table in PostgreSQL. It is safe for concurrent use.
type Backend struct {
	pool      *pgxpool.Pool
	queries   queries
	batchSize int
	logger    *zap.Logger
}

type queries struct {
	create string
	upsert string
	get    string
	scan   string
	drop   string
}

func newQueries(table string) queries {
	t := pgx.Identifier{table}.Sanitize()
	return queries{
		create: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	row_key    bytea  NOT NULL,
	family     bytea  NOT NULL,
	qualifier  bytea  NOT NULL,
	visibility bytea  NOT NULL,
	ts         bigint NOT NULL,
	value      bytea  NOT NULL,
	PRIMARY KEY (row_key, family, qualifier, visibility)
)`, t),
		upsert: fmt.Sprintf(`INSERT INTO %s (row_key, family, qualifier, visibility, ts, value)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (row_key, family, qualifier, visibility)
DO UPDATE SET ts = EXCLUDED.ts, value = EXCLUDED.value`, t),
		get: fmt.Sprintf(`SELECT ts, value FROM %s
WHERE row_key = $1 AND family = $2 AND qualifier = $3 AND visibility = $4`, t),
		scan: fmt.Sprintf(`SELECT row_key, family, qualifier, visibility, ts, value FROM %s
WHERE row_key >= $1 AND ($2::bytea IS NULL OR row_key < $2)
ORDER BY row_key, family, qualifier, visibility`, t),
		drop: fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t),
	}
}

// Open connects to the database, checks the connection and creates the
// table when it does not exist.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Backend, error) {
	if cfg.DSN == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "connection string is required")
	}
	if cfg.Table == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "table is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse PostgreSQL connection string")
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create PostgreSQL connection pool")
	}

	b := &Backend{
		pool:      pool,
		queries:   newQueries(cfg.Table),
		batchSize: cfg.BatchSize,
		logger:    logger.With(zap.String("backend", Name), zap.String("table", cfg.Table)),
	}
	if b.batchSize <= 0 {
		b.batchSize = 500
	}

	if err := b.ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, b.queries.create); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create record table")
	}

	b.logger.Info("PostgreSQL record table ready",
		zap.Int32("max_connections", poolConfig.MaxConns),
		zap.Int("batch_size", b.batchSize))
	return b, nil
}

func (b *Backend) ping(ctx context.Context) error {
	var one int
	if err := b.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "health check query failed")
	}
	return nil
}

// Name returns "postgres".
func (b *Backend) Name() string { return Name }

// Put upserts records in batches. Records already stored under the same
// columns are replaced.
func (b *Backend) Put(ctx context.Context, records []converter.Record) error {
	for start := 0; start < len(records); start += b.batchSize {
		end := start + b.batchSize
		if end > len(records) {
			end = len(records)
		}

		batch := &pgx.Batch{}
		for _, r := range records[start:end] {
			batch.Queue(b.queries.upsert,
				nonNil(r.Key.Row),
				nonNil(r.Key.ColumnFamily),
				nonNil(r.Key.ColumnQualifier),
				nonNil(r.Key.ColumnVisibility),
				r.Key.Timestamp,
				nonNil(r.Value))
		}
		if err := b.pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write records").
				WithDetail("records", end-start)
		}
		b.logger.Debug("wrote record batch", zap.Int("records", end-start))
	}
	return nil
}

// Get returns the record stored under the columns of key.
func (b *Backend) Get(ctx context.Context, key converter.Key) (converter.Record, bool, error) {
	r := converter.Record{Key: key.Clone()}
	err := b.pool.QueryRow(ctx, b.queries.get,
		nonNil(key.Row),
		nonNil(key.ColumnFamily),
		nonNil(key.ColumnQualifier),
		nonNil(key.ColumnVisibility),
	).Scan(&r.Key.Timestamp, &r.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return converter.Record{}, false, nil
	}
	if err != nil {
		return converter.Record{}, false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read record")
	}
	return r, true, nil
}

// Scan calls fn, in key order, for every record whose row is in
// [start, end). A nil end scans to the end of the table. fn runs while a
// pool connection is held for the result set.
func (b *Backend) Scan(ctx context.Context, start, end []byte, fn func(converter.Record) error) error {
	var upper interface{}
	if end != nil {
		upper = end
	}
	rows, err := b.pool.Query(ctx, b.queries.scan, nonNil(start), upper)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to scan records")
	}
	defer rows.Close()

	for rows.Next() {
		var r converter.Record
		if err := rows.Scan(
			&r.Key.Row,
			&r.Key.ColumnFamily,
			&r.Key.ColumnQualifier,
			&r.Key.ColumnVisibility,
			&r.Key.Timestamp,
			&r.Value,
		); err != nil {
			return errors.Wrap(err, errors.ErrorTypeStorage, "failed to decode scanned record")
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to scan records")
	}
	return nil
}

// Drop removes the table. Intended for tests and tooling.
func (b *Backend) Drop(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, b.queries.drop); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to drop record table")
	}
	return nil
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

// nonNil maps nil to an empty slice so pgx sends '' rather than NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
