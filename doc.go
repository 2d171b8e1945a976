// Package graphkv stores property graphs in sorted key/value tables.
//
// Entities and edges are converted to records whose row keys sort every
// element of a vertex together, so a vertex lookup is one range scan. The
// conversion is lossless: a record decodes back to the element it came
// from.
//
// # Layout
//
// A record is split the way a wide-column table expects:
//
//	row               escaped vertex bytes plus a layout-specific suffix
//	column family     the group name
//	column qualifier  the group-by properties, block encoded
//	column visibility the visibility property, if the schema names one
//	timestamp         the timestamp property, or the write time
//	value             every other property, block encoded
//
// Two row layouts exist. The byte-entity layout (the default) marks entity
// rows with 00 01 and edge rows with a direction flag after each vertex.
// The classic layout uses the bare vertex for entities.
//
// Edges between two different vertices are written twice, once under each
// endpoint, so either vertex finds them.
//
// # Quick Start
//
//	s, _ := schema.Load("schema.yaml")
//	cfg := config.NewGraphConfig("social")
//	g, _ := store.Open(ctx, cfg, s, logger.Get())
//	defer g.Close()
//
//	_ = g.AddElements(ctx, []*element.Element{
//	    element.NewEdge("knows", "alice", "bob", true, element.Properties{"weight": int32(1)}),
//	})
//	found, _ := g.GetElements(ctx, []interface{}{"bob"}, store.GetOptions{})
//
// # Key Packages
//
//	pkg/escape        - byte escaping that keeps 00 free as a separator
//	pkg/varint        - variable-length integers of the block codec
//	pkg/block         - length-prefixed value blocks
//	pkg/rowkey        - byte-entity and classic row layouts
//	pkg/serialisation - property and vertex serialisers
//	pkg/serialisation/elements - whole-element serialisers
//	pkg/schema        - groups, group-by properties and aggregators
//	pkg/converter     - element to record conversion and back
//	pkg/store         - aggregating graph store over memory, PostgreSQL or MySQL
//	pkg/config        - graph configuration with ${VAR} substitution
//	pkg/logger        - structured logging
//	pkg/metrics       - Prometheus metrics
//	pkg/observability - OpenTelemetry tracing
//
// The graphkv command encodes, decodes, loads and queries elements from the
// shell.
package graphkv
