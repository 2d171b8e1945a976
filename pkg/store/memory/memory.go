// Package memory is a sorted in-memory record table.
//
// Records are kept in a B-tree ordered by row, column family, qualifier
// and visibility. A table holds one record per column set; Put replaces
// the stored record.
package memory

import (
	"bytes"
	"context"

	"github.com/tidwall/btree"

	"github.com/ajitpratap0/graphkv/pkg/converter"
)

// Name identifies the backend in metrics and logs.
const Name = "memory"

// Backend is an in-memory record table. It is safe for concurrent use.
type Backend struct {
	tree *btree.BTreeG[converter.Record]
}

func recordLess(a, b converter.Record) bool {
	return a.Key.CompareColumns(b.Key) < 0
}

// New returns an empty table.
func New() *Backend {
	return &Backend{tree: btree.NewBTreeG[converter.Record](recordLess)}
}

// Name returns "memory".
func (b *Backend) Name() string { return Name }

// Put stores a copy of every record.
func (b *Backend) Put(ctx context.Context, records []converter.Record) error {
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.tree.Set(r.Clone())
	}
	return nil
}

// Get returns the record stored under the columns of key.
func (b *Backend) Get(ctx context.Context, key converter.Key) (converter.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return converter.Record{}, false, err
	}
	r, ok := b.tree.Get(converter.Record{Key: key})
	if !ok {
		return converter.Record{}, false, nil
	}
	return r.Clone(), true, nil
}

// Scan calls fn, in key order, for every record whose row is in
// [start, end). A nil end scans to the end of the table. The records are
// copied before fn runs, so fn may write to the table.
func (b *Backend) Scan(ctx context.Context, start, end []byte, fn func(converter.Record) error) error {
	var matched []converter.Record
	b.tree.Ascend(converter.Record{Key: converter.Key{Row: start}}, func(r converter.Record) bool {
		if end != nil && bytes.Compare(r.Key.Row, end) >= 0 {
			return false
		}
		matched = append(matched, r.Clone())
		return true
	})

	for _, r := range matched {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored records.
func (b *Backend) Len() int { return b.tree.Len() }

// Close releases nothing; the table stays readable.
func (b *Backend) Close() error { return nil }
