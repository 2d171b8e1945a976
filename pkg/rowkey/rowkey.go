// Package rowkey builds and parses the row part of a stored record.
//
// Every vertex is escaped (package escape) before it is placed in a row,
// so the delimiter byte only ever separates row parts. An entity has one
// row; an edge has a row led by its source and, unless it is a self-edge,
// a second row led by its destination, so it can be found from either end.
//
// Two layouts exist, see ByteEntity and Classic. Both mark the direction
// of an edge row with the same flag bytes:
//
//	0x02  directed, source first
//	0x03  directed, destination first
//	0x04  undirected
package rowkey

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/escape"
	"github.com/ajitpratap0/graphkv/pkg/pool"
)

// Flag bytes.
const (
	FlagEntity              byte = 0x01
	FlagDirectedSourceFirst byte = 0x02
	FlagDirectedDestFirst   byte = 0x03
	FlagUndirected          byte = 0x04
)

// OptionMatchedSeedAsSource makes a destination-first row report its
// leading vertex, the one a seed lookup matched, as the edge source.
const OptionMatchedSeedAsSource = "returnMatchedSeedsAsEdgeSource"

// Options carries backend decode hints. A nil map is valid.
type Options map[string]string

// MatchedSeedAsSource reports whether destination-first rows should name
// their leading vertex as the source.
func (o Options) MatchedSeedAsSource() bool {
	v, ok := o[OptionMatchedSeedAsSource]
	if !ok {
		return false
	}
	b, _ := strconv.ParseBool(v)
	return b
}

// Codec builds and parses rows. Vertex arguments and results are the
// serialised, unescaped vertex bytes.
type Codec interface {
	// Name identifies the layout in configuration.
	Name() string
	// EntityRow returns the row of an entity on vertex.
	EntityRow(vertex []byte) []byte
	// EdgeRows returns the source-led row and the destination-led row of an
	// edge. The second row is nil for a self-edge.
	EdgeRows(source, destination []byte, directed bool) (primary, secondary []byte)
	// IsEntity reports whether row is an entity row, from its bytes alone.
	IsEntity(row []byte) bool
	// EntityVertex returns the vertex of an entity row.
	EntityVertex(row []byte) ([]byte, error)
	// ParseEdgeRow returns the source, destination and direction of an
	// edge row.
	ParseEdgeRow(row []byte, opts Options) (source, destination []byte, directed bool, err error)
}

// ByName returns the layout registered under name. The empty name selects
// ByteEntity.
func ByName(name string) (Codec, error) {
	switch name {
	case "", ByteEntity{}.Name():
		return ByteEntity{}, nil
	case Classic{}.Name():
		return Classic{}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown row key layout %q", name)
	}
}

// VertexRange returns the half-open range [start, end) holding every row
// led by the escaped vertex, in either layout.
func VertexRange(escaped []byte) (start, end []byte) {
	start = append(make([]byte, 0, len(escaped)), escaped...)
	end = append(make([]byte, 0, len(escaped)+1), escaped...)
	end = append(end, escape.EscapeChar)
	return start, end
}

// IsSelfEdge reports whether two serialised vertices are the same vertex.
func IsSelfEdge(source, destination []byte) bool {
	return bytes.Equal(source, destination)
}

// buildRow assembles a row in a pooled scratch buffer and returns an owned
// copy of it.
func buildRow(fill func(row []byte) []byte) []byte {
	buf := pool.GetBuffer(pool.Small)
	defer pool.PutBuffer(buf, pool.Small)
	buf.Write(fill(buf.AvailableBuffer()))
	return pool.CopyBytes(buf.Bytes())
}

func edgeFlags(directed bool) (forward, reverse byte) {
	if directed {
		return FlagDirectedSourceFirst, FlagDirectedDestFirst
	}
	return FlagUndirected, FlagUndirected
}

// orient maps the vertices of a parsed row back to an edge.
func orient(first, second []byte, flag byte, opts Options) (source, destination []byte, directed bool, err error) {
	switch flag {
	case FlagDirectedSourceFirst:
		return first, second, true, nil
	case FlagDirectedDestFirst:
		if opts.MatchedSeedAsSource() {
			return first, second, true, nil
		}
		return second, first, true, nil
	case FlagUndirected:
		return first, second, false, nil
	default:
		return nil, nil, false, malformed("unknown edge flag 0x%02x", flag)
	}
}

func malformed(format string, args ...interface{}) error {
	return errors.New(errors.ErrorTypeTruncatedInput, "malformed row: "+fmt.Sprintf(format, args...))
}
