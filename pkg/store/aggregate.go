package store

import (
	"github.com/ajitpratap0/graphkv/pkg/converter"
	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/metrics"
	"github.com/ajitpratap0/graphkv/pkg/varint"
)

// batch collects the records of one write, one per column set, in
// arrival order.
type batch struct {
	records []converter.Record
	index   map[string]int
	merged  int
}

func newBatch() *batch {
	return &batch{index: make(map[string]int)}
}

// add appends r, or combines it with the earlier record of the same
// columns.
func (b *batch) add(r converter.Record, combine func(older, newer converter.Record) (converter.Record, error)) error {
	id := columnsID(r.Key)
	i, ok := b.index[id]
	if !ok {
		b.index[id] = len(b.records)
		b.records = append(b.records, r)
		return nil
	}
	merged, err := combine(b.records[i], r)
	if err != nil {
		return err
	}
	b.records[i] = merged
	b.merged++
	return nil
}

// columnsID identifies the column set of k. Each field is length
// prefixed so distinct keys never collide.
func columnsID(k converter.Key) string {
	n := len(k.Row) + len(k.ColumnFamily) + len(k.ColumnQualifier) + len(k.ColumnVisibility)
	buf := make([]byte, 0, n+4*varint.MaxWidth)
	for _, field := range [][]byte{k.Row, k.ColumnFamily, k.ColumnQualifier, k.ColumnVisibility} {
		buf = varint.AppendLength(buf, len(field))
		buf = append(buf, field...)
	}
	return string(buf)
}

// merge combines two records with the same columns. Value properties go
// through the group's aggregators, older value first; a property without
// an aggregator keeps the newer value when it has one. The result carries
// the newer timestamp.
func (g *Graph) merge(a, b converter.Record) (converter.Record, error) {
	older, newer := a, b
	if b.Key.Timestamp < a.Key.Timestamp {
		older, newer = b, a
	}

	group := g.conv.GroupFromColumnFamily(newer.Key.ColumnFamily)
	def, err := g.conv.Schema().MustElement(group)
	if err != nil {
		return converter.Record{}, err
	}
	olderProps, err := g.conv.PropertiesFromValue(group, older.Value)
	if err != nil {
		return converter.Record{}, err
	}
	newerProps, err := g.conv.PropertiesFromValue(group, newer.Value)
	if err != nil {
		return converter.Record{}, err
	}

	merged := make(element.Properties, len(newerProps))
	for _, name := range def.Properties() {
		ov, inOlder := olderProps[name]
		nv, inNewer := newerProps[name]
		if !inOlder && !inNewer {
			continue
		}
		agg := def.Aggregator(name)
		if agg == nil {
			if inNewer {
				merged[name] = nv
			} else {
				merged[name] = ov
			}
			continue
		}
		v, err := agg.Apply(ov, nv)
		if err != nil {
			return converter.Record{}, err
		}
		if v != nil {
			merged[name] = v
		}
	}

	value, err := g.conv.ValueFromProperties(group, merged)
	if err != nil {
		return converter.Record{}, err
	}
	if g.metrics {
		metrics.Aggregations.WithLabelValues(group).Inc()
	}
	return converter.Record{Key: newer.Key.Clone(), Value: value}, nil
}
