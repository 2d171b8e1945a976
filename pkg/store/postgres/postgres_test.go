package postgres

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphkv/pkg/converter"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/testutil"
)

func TestQueriesQuoteTable(t *testing.T) {
	q := newQueries(`odd"name`)
	assert.Contains(t, q.create, `"odd""name"`)
	assert.Contains(t, q.upsert, "ON CONFLICT (row_key, family, qualifier, visibility)")
	assert.True(t, strings.HasPrefix(q.drop, "DROP TABLE IF EXISTS"))
}

func TestOpenValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Table: "t"}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Open(ctx, Config{DSN: "postgres://localhost/db"}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Open(ctx, Config{DSN: "postgres://localhost:notaport/db", Table: "t"}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	dsn := testutil.PostgresDSN(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	table := "graphkv_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	b, err := Open(ctx, Config{DSN: dsn, Table: table, BatchSize: 2}, testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = b.Drop(context.Background())
		_ = b.Close()
	})
	return b
}

func record(row string, ts int64, value string) converter.Record {
	return converter.Record{
		Key: converter.Key{
			Row:          []byte(row),
			ColumnFamily: []byte("g"),
			Timestamp:    ts,
		},
		Value: []byte(value),
	}
}

func TestPostgresRoundTrip(t *testing.T) {
	b := openTestBackend(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	require.NoError(t, b.Put(ctx, []converter.Record{
		record("c", 1, "3"),
		record("a", 1, "1"),
		record("b\x00x", 1, "2b"),
		record("b", 1, "2"),
		record("b", 5, "2-new"),
	}))

	got, ok, err := b.Get(ctx, converter.Key{Row: []byte("b"), ColumnFamily: []byte("g")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("2-new"), got.Value)
	assert.Equal(t, int64(5), got.Key.Timestamp)

	_, ok, err = b.Get(ctx, converter.Key{Row: []byte("zzz")})
	require.NoError(t, err)
	assert.False(t, ok)

	var rows []string
	require.NoError(t, b.Scan(ctx, []byte("b"), []byte("b\x01"), func(r converter.Record) error {
		rows = append(rows, string(r.Key.Row))
		return nil
	}))
	assert.Equal(t, []string{"b", "b\x00x"}, rows)

	rows = nil
	require.NoError(t, b.Scan(ctx, nil, nil, func(r converter.Record) error {
		rows = append(rows, string(r.Key.Row))
		return nil
	}))
	assert.Equal(t, []string{"a", "b", "b\x00x", "c"}, rows)
}
