package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphkv/pkg/converter"
)

func record(row, cf string, ts int64, value string) converter.Record {
	return converter.Record{
		Key: converter.Key{
			Row:          []byte(row),
			ColumnFamily: []byte(cf),
			Timestamp:    ts,
		},
		Value: []byte(value),
	}
}

func TestPutReplacesSameColumns(t *testing.T) {
	ctx := context.Background()
	b := New()

	require.NoError(t, b.Put(ctx, []converter.Record{record("a", "g", 1, "old")}))
	require.NoError(t, b.Put(ctx, []converter.Record{record("a", "g", 2, "new")}))
	assert.Equal(t, 1, b.Len())

	got, ok, err := b.Get(ctx, converter.Key{Row: []byte("a"), ColumnFamily: []byte("g")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got.Value)
	assert.Equal(t, int64(2), got.Key.Timestamp)

	_, ok, err = b.Get(ctx, converter.Key{Row: []byte("b")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutCopiesRecords(t *testing.T) {
	ctx := context.Background()
	b := New()

	r := record("a", "g", 1, "v")
	require.NoError(t, b.Put(ctx, []converter.Record{r}))
	r.Value[0] = 'x'

	got, _, err := b.Get(ctx, r.Key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got.Value)
}

func TestScanRange(t *testing.T) {
	ctx := context.Background()
	b := New()
	require.NoError(t, b.Put(ctx, []converter.Record{
		record("c", "g", 1, "3"),
		record("a", "g", 1, "1"),
		record("b\x00x", "g", 1, "2b"),
		record("b", "g", 1, "2"),
	}))

	var rows []string
	collect := func(r converter.Record) error {
		rows = append(rows, string(r.Key.Row))
		return nil
	}

	require.NoError(t, b.Scan(ctx, []byte("b"), []byte("b\x01"), collect))
	assert.Equal(t, []string{"b", "b\x00x"}, rows)

	rows = nil
	require.NoError(t, b.Scan(ctx, nil, nil, collect))
	assert.Equal(t, []string{"a", "b", "b\x00x", "c"}, rows)
}

func TestScanStopsOnError(t *testing.T) {
	ctx := context.Background()
	b := New()
	require.NoError(t, b.Put(ctx, []converter.Record{record("a", "g", 1, ""), record("b", "g", 1, "")}))

	stop := assert.AnError
	calls := 0
	err := b.Scan(ctx, nil, nil, func(converter.Record) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := New()
	assert.ErrorIs(t, b.Put(ctx, []converter.Record{record("a", "g", 1, "")}), context.Canceled)
	_, _, err := b.Get(ctx, converter.Key{})
	assert.ErrorIs(t, err, context.Canceled)
}
