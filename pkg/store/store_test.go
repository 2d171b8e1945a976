package store

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/graphkv/pkg/config"
	"github.com/ajitpratap0/graphkv/pkg/converter"
	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/observability"
	"github.com/ajitpratap0/graphkv/pkg/rowkey"
	"github.com/ajitpratap0/graphkv/pkg/schema"
	"github.com/ajitpratap0/graphkv/pkg/store/memory"
	"github.com/ajitpratap0/graphkv/pkg/store/mysql"
	"github.com/ajitpratap0/graphkv/pkg/testutil"
)

func newGraph(t *testing.T, s *schema.Schema, opts ...Option) (*Graph, *memory.Backend) {
	t.Helper()
	conv, err := converter.New(s, rowkey.ByteEntity{}, converter.WithClock(testutil.FixedClock))
	require.NoError(t, err)
	backend := memory.New()
	opts = append([]Option{WithName("test"), WithLogger(testutil.TestLogger(t)), WithBatchSize(2)}, opts...)
	return New(conv, backend, opts...), backend
}

func knows(src, dst string, directed bool, weight int, note string) *element.Element {
	return element.NewEdge("knows", src, dst, directed, element.Properties{"weight": weight, "note": note})
}

func TestAddAndGetEdge(t *testing.T) {
	ctx := context.Background()
	g, backend := newGraph(t, testutil.KnowsSchema(t))

	e := knows("alice", "bob", true, 5, "x")
	require.NoError(t, g.AddElements(ctx, []*element.Element{e}))
	assert.Equal(t, 2, backend.Len())

	for _, seeds := range [][]interface{}{{"alice"}, {"bob"}, {"alice", "bob"}} {
		got, err := g.GetElements(ctx, seeds, GetOptions{})
		require.NoError(t, err)
		require.Len(t, got, 1, "seeds %v", seeds)
		assert.True(t, e.Equal(got[0]))
	}

	got, err := g.GetElements(ctx, []interface{}{"carol"}, GetOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)

	all, err := g.GetAllElements(ctx, GetOptions{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, e.Equal(all[0]))
}

func TestUndirectedEdgeReturnedOnce(t *testing.T) {
	ctx := context.Background()
	g, _ := newGraph(t, testutil.KnowsSchema(t))

	e := knows("alice", "bob", false, 1, "y")
	require.NoError(t, g.AddElements(ctx, []*element.Element{e}))

	got, err := g.GetElements(ctx, []interface{}{"bob", "alice"}, GetOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, e.Equal(got[0]))
}

func TestEmptyStringReadsBackAbsent(t *testing.T) {
	ctx := context.Background()
	g, _ := newGraph(t, testutil.KnowsSchema(t))

	require.NoError(t, g.AddElements(ctx, []*element.Element{knows("alice", "bob", false, 1, "")}))

	got, err := g.GetElements(ctx, []interface{}{"alice"}, GetOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	_, ok := got[0].Properties["note"]
	assert.False(t, ok)
	assert.Equal(t, 1, got[0].Properties["weight"])
}

func TestSelfEdgeStoredOnce(t *testing.T) {
	ctx := context.Background()
	g, backend := newGraph(t, testutil.KnowsSchema(t))

	require.NoError(t, g.AddElements(ctx, []*element.Element{knows("alice", "alice", true, 1, "me")}))
	assert.Equal(t, 1, backend.Len())

	got, err := g.GetElements(ctx, []interface{}{"alice"}, GetOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func person(age int, count int64, name string, ts int64) *element.Element {
	return element.NewEntity("person", "p1", element.Properties{
		"age":   age,
		"count": count,
		"name":  name,
		"ts":    ts,
	})
}

func TestAggregationAcrossWrites(t *testing.T) {
	ctx := context.Background()
	g, backend := newGraph(t, testutil.RichSchema(t))

	require.NoError(t, g.AddElements(ctx, []*element.Element{person(30, 2, "Ann", 10)}))
	require.NoError(t, g.AddElements(ctx, []*element.Element{person(30, 3, "Bo", 20)}))
	assert.Equal(t, 1, backend.Len())

	got, err := g.GetElements(ctx, []interface{}{"p1"}, GetOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].Properties["count"])
	assert.Equal(t, "Bo", got[0].Properties["name"])
	assert.Equal(t, int64(20), got[0].Properties["ts"])
}

func TestAggregationKeepsNewestRegardlessOfArrival(t *testing.T) {
	ctx := context.Background()
	g, _ := newGraph(t, testutil.RichSchema(t))

	require.NoError(t, g.AddElements(ctx, []*element.Element{
		person(30, 3, "Bo", 20),
		person(30, 2, "Ann", 10),
	}))

	got, err := g.GetAllElements(ctx, GetOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].Properties["count"])
	assert.Equal(t, "Bo", got[0].Properties["name"])
	assert.Equal(t, int64(20), got[0].Properties["ts"])
}

func TestGroupByKeepsElementsApart(t *testing.T) {
	ctx := context.Background()
	g, backend := newGraph(t, testutil.RichSchema(t))

	require.NoError(t, g.AddElements(ctx, []*element.Element{
		person(30, 1, "Ann", 10),
		person(31, 1, "Ann", 10),
	}))
	assert.Equal(t, 2, backend.Len())
}

func TestWithoutAggregationLastWriteWins(t *testing.T) {
	ctx := context.Background()
	g, _ := newGraph(t, testutil.RichSchema(t), WithAggregation(false))

	require.NoError(t, g.AddElements(ctx, []*element.Element{person(30, 2, "Ann", 10)}))
	require.NoError(t, g.AddElements(ctx, []*element.Element{person(30, 3, "Bo", 20)}))

	got, err := g.GetAllElements(ctx, GetOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].Properties["count"])
}

func follows(src, dst string, directed bool, channel string) *element.Element {
	return element.NewEdge("follows", src, dst, directed, element.Properties{
		"since":   int64(1),
		"channel": channel,
		"score":   0.5,
		"ts":      int64(7),
	})
}

func TestGetOptions(t *testing.T) {
	ctx := context.Background()
	g, _ := newGraph(t, testutil.RichSchema(t))

	require.NoError(t, g.AddElements(ctx, []*element.Element{
		element.NewEntity("person", "a", element.Properties{"age": 1, "ts": int64(7)}),
		follows("a", "b", true, "web"),
		follows("c", "a", false, "mail"),
	}))

	count := func(opts GetOptions) int {
		got, err := g.GetElements(ctx, []interface{}{"a"}, opts)
		require.NoError(t, err)
		return len(got)
	}

	assert.Equal(t, 3, count(GetOptions{}))
	assert.Equal(t, 2, count(GetOptions{ExcludeEntities: true}))
	assert.Equal(t, 1, count(GetOptions{Edges: EdgesNone}))
	assert.Equal(t, 2, count(GetOptions{Edges: EdgesDirected}))
	assert.Equal(t, 2, count(GetOptions{Edges: EdgesUndirected}))
	assert.Equal(t, 1, count(GetOptions{Groups: []string{"person"}}))
	assert.Equal(t, 2, count(GetOptions{Groups: []string{"follows"}}))
}

func TestMatchedSeedAsSource(t *testing.T) {
	ctx := context.Background()
	g, _ := newGraph(t, testutil.KnowsSchema(t))
	require.NoError(t, g.AddElements(ctx, []*element.Element{knows("alice", "bob", true, 1, "")}))

	got, err := g.GetElements(ctx, []interface{}{"bob"}, GetOptions{MatchedSeedAsSource: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].Source)
	assert.Equal(t, "alice", got[0].Destination)

	got, err = g.GetElements(ctx, []interface{}{"bob"}, GetOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Source)
}

func TestConversionErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	g, backend := newGraph(t, testutil.KnowsSchema(t))

	err := g.AddElements(ctx, []*element.Element{
		knows("alice", "bob", true, 1, ""),
		element.NewEdge("likes", "alice", "bob", true, nil),
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnknownGroup))
	assert.Equal(t, 0, backend.Len())

	_, err = g.GetElements(ctx, []interface{}{42}, GetOptions{})
	assert.True(t, errors.IsConversionError(err))
}

func TestParseEdgeFilter(t *testing.T) {
	for in, want := range map[string]EdgeFilter{"": EdgesAll, "all": EdgesAll, "directed": EdgesDirected, "undirected": EdgesUndirected, "none": EdgesNone} {
		got, err := ParseEdgeFilter(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseEdgeFilter("sideways")
	assert.Error(t, err)
}

func TestColumnsIDIsUnambiguous(t *testing.T) {
	a := converter.Key{Row: []byte("ab"), ColumnFamily: []byte("c")}
	b := converter.Key{Row: []byte("a"), ColumnFamily: []byte("bc")}
	assert.NotEqual(t, columnsID(a), columnsID(b))

	c := a.Clone()
	c.Timestamp = 99
	assert.Equal(t, columnsID(a), columnsID(c))
}

func TestOpenFromConfig(t *testing.T) {
	ctx := context.Background()

	cfg := config.NewGraphConfig("social")
	cfg.RowKeyLayout = config.LayoutClassic
	g, err := Open(ctx, cfg, testutil.KnowsSchema(t), testutil.TestLogger(t))
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, "social", g.Name())
	assert.Equal(t, memory.Name, g.Backend().Name())
	assert.Equal(t, "classic", g.Converter().RowCodec().Name())

	require.NoError(t, g.AddElements(ctx, []*element.Element{knows("alice", "bob", true, 1, "")}))
	got, err := g.GetElements(ctx, []interface{}{"alice"}, GetOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	cfg.RowKeyLayout = "sideways"
	_, err = Open(ctx, cfg, testutil.KnowsSchema(t), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestOpenMySQLFromConfig(t *testing.T) {
	dsn := testutil.MySQLDSN(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	cfg := config.NewGraphConfig("social")
	cfg.Backend.Type = config.BackendMySQL
	cfg.Backend.DSN = dsn
	cfg.Backend.Table = "graphkv_open_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	g, err := Open(ctx, cfg, testutil.KnowsSchema(t), testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = g.Backend().(*mysql.Backend).Drop(context.Background())
		_ = g.Close()
	})
	assert.Equal(t, mysql.Name, g.Backend().Name())

	require.NoError(t, g.AddElements(ctx, []*element.Element{knows("alice", "bob", true, 1, "x")}))
	require.NoError(t, g.AddElements(ctx, []*element.Element{knows("alice", "bob", true, 2, "y")}))
	got, err := g.GetElements(ctx, []interface{}{"bob"}, GetOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	weights := []interface{}{got[0].Properties["weight"], got[1].Properties["weight"]}
	assert.ElementsMatch(t, []interface{}{1, 2}, weights)
}

func TestAggregationRecordsSpanEvent(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	cfg := observability.DefaultConfig()
	cfg.SamplingRate = 1
	cfg.Exporter = exporter
	require.NoError(t, observability.Initialize(cfg))
	t.Cleanup(func() { _ = observability.Shutdown(context.Background()) })

	ctx := context.Background()
	g, _ := newGraph(t, testutil.RichSchema(t))

	require.NoError(t, g.AddElements(ctx, []*element.Element{person(30, 1, "Ann", 10), person(30, 2, "Ann", 11)}))
	require.NoError(t, g.AddElements(ctx, []*element.Element{person(30, 3, "Bo", 20)}))

	var events [][]attribute.KeyValue
	for _, span := range exporter.GetSpans() {
		if span.Name != "graph.add_elements" {
			continue
		}
		for _, ev := range span.Events {
			if ev.Name == "aggregated" {
				events = append(events, ev.Attributes)
			}
		}
	}
	require.Len(t, events, 2)
	assert.Contains(t, events[0], attribute.Int("in_batch", 1))
	assert.Contains(t, events[0], attribute.Int("with_stored", 0))
	assert.Contains(t, events[1], attribute.Int("in_batch", 0))
	assert.Contains(t, events[1], attribute.Int("with_stored", 1))
}
