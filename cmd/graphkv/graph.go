package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/json"
	"github.com/ajitpratap0/graphkv/pkg/metrics"
	"github.com/ajitpratap0/graphkv/pkg/serialisation"
	"github.com/ajitpratap0/graphkv/pkg/store"
)

// load adds the elements in path to g and reports the throughput.
func (a *app) load(ctx context.Context, cmd *cobra.Command, g *store.Graph, path string) (int, error) {
	elements, err := a.readElements(cmd, path)
	if err != nil {
		return 0, err
	}

	tracker := metrics.NewThroughputTracker(g.Name())
	start := time.Now()
	if err := g.AddElements(ctx, elements); err != nil {
		return 0, err
	}
	tracker.Increment(int64(len(elements)))

	a.log.Info("loaded elements",
		zap.String("input", path),
		zap.Int("elements", len(elements)),
		zap.Duration("duration", time.Since(start)),
		zap.Float64("elements_per_second", tracker.GetAndReset()))
	return len(elements), nil
}

func newLoadCommand(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Add elements to a graph store",
		Long: `Read a JSON array of elements and add them to the configured store,
aggregating them with the records already stored.

Example:
  graphkv load --config graph.yaml --input elements.json`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			g, err := store.Open(ctx, a.cfg, a.schema, a.log)
			if err != nil {
				return err
			}
			defer g.Close()

			n, err := a.load(ctx, cmd, g, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d elements into %s (%s)\n", n, g.Name(), g.Backend().Name())
			return nil
		}),
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON file of elements, - for stdin")
	return cmd
}

func newQueryCommand(a *app) *cobra.Command {
	var (
		input               string
		seeds               []string
		groups              []string
		edges               string
		excludeEntities     bool
		matchedSeedAsSource bool
		pretty              bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read elements from a graph store",
		Long: `Print the elements stored around each seed vertex, or every element
when no seed is given. The memory store starts empty, so --input can load
elements into it first.

Example:
  graphkv query --schema schema.yaml --input elements.json --seed alice --edges directed`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			filter, err := store.ParseEdgeFilter(edges)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, "invalid --edges")
			}
			opts := store.GetOptions{
				ExcludeEntities:     excludeEntities,
				Edges:               filter,
				Groups:              groups,
				MatchedSeedAsSource: matchedSeedAsSource,
			}

			ctx := cmd.Context()
			g, err := store.Open(ctx, a.cfg, a.schema, a.log)
			if err != nil {
				return err
			}
			defer g.Close()

			if input != "" {
				if _, err := a.load(ctx, cmd, g, input); err != nil {
					return err
				}
			}

			var result []*element.Element
			if len(seeds) == 0 {
				result, err = g.GetAllElements(ctx, opts)
			} else {
				var vertices []interface{}
				if vertices, err = a.seedVertices(seeds); err != nil {
					return err
				}
				result, err = g.GetElements(ctx, vertices, opts)
			}
			if err != nil {
				return err
			}

			enc := json.NewStreamingEncoder(cmd.OutOrStdout(), true)
			enc.SetPretty(pretty, "  ")
			for _, e := range result {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return enc.Close()
		}),
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file of elements to load before querying")
	cmd.Flags().StringArrayVar(&seeds, "seed", nil, "Seed vertex (repeatable); all elements when omitted")
	cmd.Flags().StringSliceVar(&groups, "group", nil, "Only return these groups")
	cmd.Flags().StringVar(&edges, "edges", "all", "Edges to return: all, directed, undirected or none")
	cmd.Flags().BoolVar(&excludeEntities, "exclude-entities", false, "Do not return entities")
	cmd.Flags().BoolVar(&matchedSeedAsSource, "matched-seed-as-source", false, "Report the seed as the source of edges found from their destination")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the output")
	return cmd
}

// seedVertices converts command line seeds to the vertex type of the schema.
func (a *app) seedVertices(seeds []string) ([]interface{}, error) {
	vertices := make([]interface{}, len(seeds))
	for i, s := range seeds {
		v, err := serialisation.Coerce(a.schema.VertexSerialiser(), s)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "seed "+s)
		}
		vertices[i] = v
	}
	return vertices, nil
}
