// Package store keeps graph elements in a sorted record table.
//
// A Graph converts elements to records with a converter.Converter and
// hands them to a Backend. Writes merge records that share row, column
// family, qualifier and visibility using the schema's aggregators, so a
// backend never holds two records with the same columns. Reads scan the
// rows of each seed vertex and rebuild the elements.
package store

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/graphkv/pkg/converter"
	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/logger"
	"github.com/ajitpratap0/graphkv/pkg/metrics"
	"github.com/ajitpratap0/graphkv/pkg/observability"
	"github.com/ajitpratap0/graphkv/pkg/rowkey"
)

// Backend is a sorted record table. It holds at most one record per
// column set (row, column family, qualifier, visibility).
type Backend interface {
	// Name identifies the backend in metrics and logs.
	Name() string
	// Put stores records, replacing any record with the same columns.
	Put(ctx context.Context, records []converter.Record) error
	// Get returns the record stored under the columns of key.
	Get(ctx context.Context, key converter.Key) (converter.Record, bool, error)
	// Scan calls fn in key order for every record whose row is in
	// [start, end). A nil end scans to the end of the table. An error from
	// fn stops the scan and is returned.
	Scan(ctx context.Context, start, end []byte, fn func(converter.Record) error) error
	// Close releases the backend.
	Close() error
}

// Option configures a Graph.
type Option func(*Graph)

// WithName names the graph in logs, metrics and spans.
func WithName(name string) Option {
	return func(g *Graph) { g.name = name }
}

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithAggregation turns write-time aggregation on or off. When off, a
// record replaces the stored record with the same columns.
func WithAggregation(enabled bool) Option {
	return func(g *Graph) { g.aggregate = enabled }
}

// WithBatchSize sets the number of records handed to the backend per Put.
func WithBatchSize(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithMetrics turns Prometheus reporting on or off.
func WithMetrics(enabled bool) Option {
	return func(g *Graph) { g.metrics = enabled }
}

// Graph stores and retrieves the elements of one schema.
type Graph struct {
	name      string
	conv      *converter.Converter
	backend   Backend
	logger    *zap.Logger
	aggregate bool
	metrics   bool
	batchSize int

	// serialises the read-merge-write cycle of AddElements
	writeMu sync.Mutex
}

// New returns a graph storing the records of conv in backend, with
// aggregation and metrics on.
func New(conv *converter.Converter, backend Backend, opts ...Option) *Graph {
	g := &Graph{
		name:      "default",
		conv:      conv,
		backend:   backend,
		logger:    zap.NewNop(),
		aggregate: true,
		metrics:   true,
		batchSize: 500,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Converter returns the graph's converter.
func (g *Graph) Converter() *converter.Converter { return g.conv }

// Backend returns the graph's backend.
func (g *Graph) Backend() Backend { return g.backend }

// Close closes the backend.
func (g *Graph) Close() error { return g.backend.Close() }

func (g *Graph) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, *observability.Span, *metrics.Timer, *zap.Logger) {
	ctx = logger.WithOperation(logger.WithGraph(ctx, g.name), op)
	attrs = append(attrs, attribute.String("graph", g.name), attribute.String("backend", g.backend.Name()))
	ctx, span := observability.StartSpan(ctx, "graph."+op, attrs...)
	return ctx, span, metrics.NewTimer(op), logger.FromContext(ctx, g.logger)
}

func (g *Graph) finish(span *observability.Span, timer *metrics.Timer, err error) {
	if g.metrics {
		timer.ObserveDuration(g.backend.Name(), err)
	}
	span.End(err)
}

// AddElements stores elements. Every element is converted before anything
// is written, so a conversion error leaves the backend untouched.
func (g *Graph) AddElements(ctx context.Context, elements []*element.Element) (err error) {
	ctx, span, timer, log := g.begin(ctx, "add_elements", attribute.Int("elements", len(elements)))
	defer func() { g.finish(span, timer, err) }()

	batch := newBatch()
	for _, e := range elements {
		records, err := g.conv.RecordsFromElement(e)
		g.recordConversion("encode", e, err)
		if err != nil {
			log.Debug("failed to convert element", zap.Stringer("element", e), zap.Error(err))
			return err
		}
		for _, r := range records {
			if err := batch.add(r, g.combine); err != nil {
				return err
			}
		}
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	if g.aggregate {
		withStored := 0
		for i, r := range batch.records {
			stored, ok, err := g.backend.Get(ctx, r.Key)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeStorage, "failed to read stored record")
			}
			if !ok {
				continue
			}
			if batch.records[i], err = g.merge(stored, r); err != nil {
				return err
			}
			withStored++
		}
		if batch.merged > 0 || withStored > 0 {
			span.AddEvent("aggregated",
				attribute.Int("in_batch", batch.merged),
				attribute.Int("with_stored", withStored))
		}
	}

	for start := 0; start < len(batch.records); start += g.batchSize {
		end := start + g.batchSize
		if end > len(batch.records) {
			end = len(batch.records)
		}
		if err := g.backend.Put(ctx, batch.records[start:end]); err != nil {
			return errors.Wrap(err, errors.ErrorTypeStorage, "failed to store records")
		}
	}
	if g.metrics {
		metrics.RecordsWritten.WithLabelValues(g.backend.Name()).Add(float64(len(batch.records)))
	}

	span.SetAttribute("records", len(batch.records))
	log.Debug("added elements",
		zap.Int("elements", len(elements)),
		zap.Int("records", len(batch.records)))
	return nil
}

// combine merges two records with the same columns of one AddElements call.
func (g *Graph) combine(older, newer converter.Record) (converter.Record, error) {
	if !g.aggregate {
		return newer, nil
	}
	return g.merge(older, newer)
}

func (g *Graph) recordConversion(direction string, e *element.Element, err error) {
	if !g.metrics {
		return
	}
	kind := "unknown"
	if e != nil {
		kind = e.Kind.String()
	}
	metrics.RecordConversion(direction, kind, err)
	if err != nil {
		metrics.ConversionErrors.WithLabelValues(string(errors.TypeOf(err))).Inc()
	}
}

// GetElements returns the elements stored in the rows of every seed
// vertex: entities on the seed and edges with the seed as an endpoint.
// An element reachable from two seeds is returned once.
func (g *Graph) GetElements(ctx context.Context, seeds []interface{}, opts GetOptions) (result []*element.Element, err error) {
	ctx, span, timer, log := g.begin(ctx, "get_elements", attribute.Int("seeds", len(seeds)))
	defer func() { g.finish(span, timer, err) }()

	c := g.newCollector(opts)
	for _, seed := range seeds {
		escaped, err := g.conv.SerialiseVertex(seed)
		if err != nil {
			return nil, err
		}
		start, end := rowkey.VertexRange(escaped)
		if err := g.backend.Scan(ctx, start, end, c.visit); err != nil {
			return nil, err
		}
	}

	g.reportScan(c)
	span.SetAttribute("elements", len(c.out))
	log.Debug("got elements", zap.Int("seeds", len(seeds)), zap.Int("elements", len(c.out)))
	return c.out, nil
}

// GetAllElements returns every stored element once.
func (g *Graph) GetAllElements(ctx context.Context, opts GetOptions) (result []*element.Element, err error) {
	ctx, span, timer, log := g.begin(ctx, "get_all_elements")
	defer func() { g.finish(span, timer, err) }()

	c := g.newCollector(opts)
	if err := g.backend.Scan(ctx, nil, nil, c.visit); err != nil {
		return nil, err
	}

	g.reportScan(c)
	span.SetAttribute("elements", len(c.out))
	log.Debug("got all elements", zap.Int("elements", len(c.out)))
	return c.out, nil
}

func (g *Graph) reportScan(c *collector) {
	if g.metrics {
		metrics.RecordsScanned.WithLabelValues(g.backend.Name()).Add(float64(c.scanned))
	}
}
