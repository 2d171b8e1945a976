package store

import (
	"fmt"

	"github.com/ajitpratap0/graphkv/pkg/converter"
	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/rowkey"
)

// EdgeFilter selects the edges a read returns.
type EdgeFilter int

const (
	// EdgesAll returns every edge.
	EdgesAll EdgeFilter = iota
	// EdgesDirected returns directed edges only.
	EdgesDirected
	// EdgesUndirected returns undirected edges only.
	EdgesUndirected
	// EdgesNone returns no edges.
	EdgesNone
)

// ParseEdgeFilter parses all, directed, undirected or none.
func ParseEdgeFilter(s string) (EdgeFilter, error) {
	switch s {
	case "", "all":
		return EdgesAll, nil
	case "directed":
		return EdgesDirected, nil
	case "undirected":
		return EdgesUndirected, nil
	case "none":
		return EdgesNone, nil
	}
	return EdgesAll, fmt.Errorf("unknown edge filter %q", s)
}

// GetOptions is the view of a read. The zero value returns every element.
type GetOptions struct {
	// ExcludeEntities drops entities from the result
	ExcludeEntities bool
	// Edges selects edges by direction
	Edges EdgeFilter
	// Groups restricts the result to these groups; empty means all
	Groups []string
	// MatchedSeedAsSource reports destination-first edge rows with the
	// matched seed as the source
	MatchedSeedAsSource bool
}

func (o GetOptions) rowOptions() rowkey.Options {
	if !o.MatchedSeedAsSource {
		return nil
	}
	return rowkey.Options{rowkey.OptionMatchedSeedAsSource: "true"}
}

func (o GetOptions) acceptsGroup(group string) bool {
	if len(o.Groups) == 0 {
		return true
	}
	for _, g := range o.Groups {
		if g == group {
			return true
		}
	}
	return false
}

func (o GetOptions) acceptsEdge(directed bool) bool {
	switch o.Edges {
	case EdgesDirected:
		return directed
	case EdgesUndirected:
		return !directed
	case EdgesNone:
		return false
	}
	return true
}

// collector decodes scanned records into the elements a view accepts.
type collector struct {
	g       *Graph
	opts    GetOptions
	rowOpts rowkey.Options
	seen    map[string]struct{}
	out     []*element.Element
	scanned int
}

func (g *Graph) newCollector(opts GetOptions) *collector {
	return &collector{
		g:       g,
		opts:    opts,
		rowOpts: opts.rowOptions(),
		seen:    make(map[string]struct{}),
	}
}

func (c *collector) visit(r converter.Record) error {
	c.scanned++

	conv := c.g.conv
	isEntity := conv.RowCodec().IsEntity(r.Key.Row)
	if isEntity && c.opts.ExcludeEntities {
		return nil
	}
	if !isEntity && c.opts.Edges == EdgesNone {
		return nil
	}
	if !c.opts.acceptsGroup(conv.GroupFromColumnFamily(r.Key.ColumnFamily)) {
		return nil
	}

	e, err := conv.FullElement(r, c.rowOpts)
	c.g.recordConversion("decode", e, err)
	if err != nil {
		return err
	}
	if e.IsEdge() && !c.opts.acceptsEdge(e.Directed) {
		return nil
	}

	id, err := c.identity(r, e)
	if err != nil {
		return err
	}
	if _, dup := c.seen[id]; dup {
		return nil
	}
	c.seen[id] = struct{}{}
	c.out = append(c.out, e)
	return nil
}

// identity names the element stored in r. Both rows of an edge map to the
// same identity, the columns of its smaller row.
func (c *collector) identity(r converter.Record, e *element.Element) (string, error) {
	if e.IsEntity() {
		return columnsID(r.Key), nil
	}
	primary, secondary, err := c.g.conv.KeysFromElement(e)
	if err != nil {
		return "", err
	}
	if secondary != nil && secondary.CompareColumns(primary) < 0 {
		primary = *secondary
	}
	return columnsID(primary), nil
}
