// Package mysql stores records in a MySQL (InnoDB) table.
//
// Key columns are VARBINARY with the binary collation, so ORDER BY on them
// compares byte-wise like a sorted key/value table. InnoDB caps a primary
// key at 3072 bytes, which bounds each key column:
//
//	row_key    varbinary(1024)  primary key (1/4)
//	family     varbinary(255)   primary key (2/4)
//	qualifier  varbinary(1024)  primary key (3/4)
//	visibility varbinary(255)   primary key (4/4)
//	ts         bigint
//	value      longblob
//
// Put rejects records whose key columns exceed these widths.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/ajitpratap0/graphkv/pkg/converter"
	"github.com/ajitpratap0/graphkv/pkg/errors"
)

// Name identifies the backend in metrics and logs.
const Name = "mysql"

// Widths of the key columns.
const (
	MaxRowKeyLen     = 1024
	MaxFamilyLen     = 255
	MaxQualifierLen  = 1024
	MaxVisibilityLen = 255
)

// Config configures a Backend.
type Config struct {
	DSN            string
	Table          string
	MaxConns       int32
	ConnectTimeout time.Duration
	// BatchSize is the number of rows per INSERT statement
	BatchSize int
}

// Backend is a record table in MySQL. It is safe for concurrent use.
type Backend struct {
	db        *sql.DB
	table     string
	queries   queries
	batchSize int
	logger    *zap.Logger
}

type queries struct {
	create    string
	get       string
	scanFrom  string
	scanRange string
	drop      string
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func newQueries(table string) queries {
	t := quoteIdentifier(table)
	return queries{
		create: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n"+
			"\trow_key    VARBINARY(%d) NOT NULL,\n"+
			"\tfamily     VARBINARY(%d) NOT NULL,\n"+
			"\tqualifier  VARBINARY(%d) NOT NULL,\n"+
			"\tvisibility VARBINARY(%d) NOT NULL,\n"+
			"\tts         BIGINT NOT NULL,\n"+
			"\tvalue      LONGBLOB NOT NULL,\n"+
			"\tPRIMARY KEY (row_key, family, qualifier, visibility)\n"+
			") ENGINE=InnoDB ROW_FORMAT=DYNAMIC",
			t, MaxRowKeyLen, MaxFamilyLen, MaxQualifierLen, MaxVisibilityLen),
		get: fmt.Sprintf("SELECT ts, value FROM %s\n"+
			"WHERE row_key = ? AND family = ? AND qualifier = ? AND visibility = ?", t),
		scanFrom: fmt.Sprintf("SELECT row_key, family, qualifier, visibility, ts, value FROM %s\n"+
			"WHERE row_key >= ?\n"+
			"ORDER BY row_key, family, qualifier, visibility", t),
		scanRange: fmt.Sprintf("SELECT row_key, family, qualifier, visibility, ts, value FROM %s\n"+
			"WHERE row_key >= ? AND row_key < ?\n"+
			"ORDER BY row_key, family, qualifier, visibility", t),
		drop: fmt.Sprintf("DROP TABLE IF EXISTS %s", t),
	}
}

// upsert returns a multi-row INSERT for n records. Rows already stored
// under the same key columns take the new timestamp and value.
func (q queries) upsert(table string, n int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(quoteIdentifier(table))
	sb.WriteString(" (row_key, family, qualifier, visibility, ts, value) VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
	}
	sb.WriteString(" ON DUPLICATE KEY UPDATE ts = VALUES(ts), value = VALUES(value)")
	return sb.String()
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

	driverConfig, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse MySQL connection string")
	}
	if cfg.ConnectTimeout > 0 {
		driverConfig.Timeout = cfg.ConnectTimeout
	}
	connector, err := mysql.NewConnector(driverConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid MySQL connection settings")
	}

	db := sql.OpenDB(connector)
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
		db.SetMaxIdleConns(int(cfg.MaxConns))
	}

	b := &Backend{
		db:        db,
		table:     cfg.Table,
		queries:   newQueries(cfg.Table),
		batchSize: cfg.BatchSize,
		logger:    logger.With(zap.String("backend", Name), zap.String("table", cfg.Table)),
	}
	if b.batchSize <= 0 {
		b.batchSize = 500
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to connect to MySQL")
	}
	if _, err := db.ExecContext(ctx, b.queries.create); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create record table")
	}

	b.logger.Info("MySQL record table ready",
		zap.Int32("max_connections", cfg.MaxConns),
		zap.Int("batch_size", b.batchSize))
	return b, nil
}

// Name returns "mysql".
func (b *Backend) Name() string { return Name }

// Put upserts records in one transaction, one INSERT per batch. Records
// already stored under the same columns are replaced.
func (b *Backend) Put(ctx context.Context, records []converter.Record) error {
	for i, r := range records {
		if err := checkKey(r.Key); err != nil {
			return err.WithDetail("record", i)
		}
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to begin write transaction")
	}
	for start := 0; start < len(records); start += b.batchSize {
		end := start + b.batchSize
		if end > len(records) {
			end = len(records)
		}

		args := make([]interface{}, 0, 6*(end-start))
		for _, r := range records[start:end] {
			args = append(args,
				nonNil(r.Key.Row),
				nonNil(r.Key.ColumnFamily),
				nonNil(r.Key.ColumnQualifier),
				nonNil(r.Key.ColumnVisibility),
				r.Key.Timestamp,
				nonNil(r.Value))
		}
		if _, err := tx.ExecContext(ctx, b.queries.upsert(b.table, end-start), args...); err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write records").
				WithDetail("records", end-start)
		}
		b.logger.Debug("wrote record batch", zap.Int("records", end-start))
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to commit records")
	}
	return nil
}

func checkKey(k converter.Key) *errors.Error {
	columns := []struct {
		name string
		len  int
		max  int
	}{
		{"row_key", len(k.Row), MaxRowKeyLen},
		{"family", len(k.ColumnFamily), MaxFamilyLen},
		{"qualifier", len(k.ColumnQualifier), MaxQualifierLen},
		{"visibility", len(k.ColumnVisibility), MaxVisibilityLen},
	}
	for _, c := range columns {
		if c.len > c.max {
			return errors.Newf(errors.ErrorTypeStorage, "%s of %d bytes exceeds the %d byte column", c.name, c.len, c.max).
				WithDetail("column", c.name)
		}
	}
	return nil
}

// Get returns the record stored under the columns of key.
func (b *Backend) Get(ctx context.Context, key converter.Key) (converter.Record, bool, error) {
	r := converter.Record{Key: key.Clone()}
	err := b.db.QueryRowContext(ctx, b.queries.get,
		nonNil(key.Row),
		nonNil(key.ColumnFamily),
		nonNil(key.ColumnQualifier),
		nonNil(key.ColumnVisibility),
	).Scan(&r.Key.Timestamp, &r.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return converter.Record{}, false, nil
	}
	if err != nil {
		return converter.Record{}, false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read record")
	}
	return r, true, nil
}

// Scan calls fn, in key order, for every record whose row is in
// [start, end). A nil end scans to the end of the table.
func (b *Backend) Scan(ctx context.Context, start, end []byte, fn func(converter.Record) error) error {
	var (
		rows *sql.Rows
		err  error
	)
	if end == nil {
		rows, err = b.db.QueryContext(ctx, b.queries.scanFrom, nonNil(start))
	} else {
		rows, err = b.db.QueryContext(ctx, b.queries.scanRange, nonNil(start), end)
	}
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
	if _, err := b.db.ExecContext(ctx, b.queries.drop); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to drop record table")
	}
	return nil
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	return b.db.Close()
}

// nonNil maps nil to an empty slice so the driver sends '' rather than NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
