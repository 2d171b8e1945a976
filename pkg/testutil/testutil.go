// Package testutil provides testing utilities for graphkv
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/graphkv/pkg/schema"
	"github.com/ajitpratap0/graphkv/pkg/serialisation"
)

// FixedTime is the instant returned by FixedClock.
var FixedTime = time.UnixMilli(1_700_000_000_000)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// FixedClock always returns FixedTime.
func FixedClock() time.Time { return FixedTime }

// KnowsSchema returns a schema with string vertices and one edge group,
// "knows", holding an int "weight" (group-by, summed) and a string "note".
func KnowsSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.NewBuilder().
		VertexSerialiser(serialisation.String{}).
		Edge("knows", schema.Definition{
			Properties: []schema.Property{
				{Name: "weight", Serialiser: serialisation.Int{}, Aggregator: schema.Sum},
				{Name: "note", Serialiser: serialisation.String{}},
			},
			GroupBy: []string{"weight"},
		}).
		Build()
	require.NoError(t, err)
	return s
}

// RichSchema returns a schema with an entity group, "person", and an edge
// group, "follows", both carrying the "vis" visibility property and the
// "ts" timestamp property.
//
//	person:  name string, age int (group-by), count long (summed), vis, ts
//	follows: since long (group-by), channel string (group-by), score double (max), vis, ts
func RichSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.NewBuilder().
		VertexSerialiser(serialisation.String{}).
		VisibilityProperty("vis").
		TimestampProperty("ts").
		Entity("person", schema.Definition{
			Properties: []schema.Property{
				{Name: "name", Serialiser: serialisation.String{}, Aggregator: schema.Last},
				{Name: "age", Serialiser: serialisation.Int{}},
				{Name: "count", Serialiser: serialisation.Long{}, Aggregator: schema.Sum},
				{Name: "vis", Serialiser: serialisation.String{}},
				{Name: "ts", Serialiser: serialisation.Long{}},
			},
			GroupBy: []string{"age"},
		}).
		Edge("follows", schema.Definition{
			Properties: []schema.Property{
				{Name: "since", Serialiser: serialisation.Long{}},
				{Name: "channel", Serialiser: serialisation.String{}},
				{Name: "score", Serialiser: serialisation.Double{}, Aggregator: schema.Max},
				{Name: "vis", Serialiser: serialisation.String{}},
				{Name: "ts", Serialiser: serialisation.Long{}},
			},
			GroupBy: []string{"since", "channel"},
		}).
		Build()
	require.NoError(t, err)
	return s
}
