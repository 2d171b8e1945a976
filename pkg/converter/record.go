package converter

import (
	"bytes"
	"fmt"
)

// Key is the sorted part of a stored record. Records sort by Row, then
// ColumnFamily, ColumnQualifier and ColumnVisibility, then by Timestamp
// newest first.
type Key struct {
	Row              []byte
	ColumnFamily     []byte
	ColumnQualifier  []byte
	ColumnVisibility []byte
	Timestamp        int64
}

// Record is one stored key and its value. The byte slices of records
// returned by a Converter are owned by the caller.
type Record struct {
	Key   Key
	Value []byte
}

// Compare orders keys the way a sorted table does.
func (k Key) Compare(o Key) int {
	if c := k.CompareColumns(o); c != 0 {
		return c
	}
	switch {
	case k.Timestamp > o.Timestamp:
		return -1
	case k.Timestamp < o.Timestamp:
		return 1
	}
	return 0
}

// CompareColumns orders keys ignoring the timestamp.
func (k Key) CompareColumns(o Key) int {
	if c := bytes.Compare(k.Row, o.Row); c != 0 {
		return c
	}
	if c := bytes.Compare(k.ColumnFamily, o.ColumnFamily); c != 0 {
		return c
	}
	if c := bytes.Compare(k.ColumnQualifier, o.ColumnQualifier); c != 0 {
		return c
	}
	return bytes.Compare(k.ColumnVisibility, o.ColumnVisibility)
}

// SameColumns reports whether two keys differ at most in their timestamp.
// Records with the same columns are merged by aggregation.
func (k Key) SameColumns(o Key) bool {
	return k.CompareColumns(o) == 0
}

// Clone returns a deep copy of k.
func (k Key) Clone() Key {
	return Key{
		Row:              clone(k.Row),
		ColumnFamily:     clone(k.ColumnFamily),
		ColumnQualifier:  clone(k.ColumnQualifier),
		ColumnVisibility: clone(k.ColumnVisibility),
		Timestamp:        k.Timestamp,
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	return Record{Key: r.Key.Clone(), Value: clone(r.Value)}
}

func (k Key) String() string {
	return fmt.Sprintf("%x %s:%x [%x] %d", k.Row, k.ColumnFamily, k.ColumnQualifier, k.ColumnVisibility, k.Timestamp)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
