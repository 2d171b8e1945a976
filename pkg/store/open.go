package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/graphkv/pkg/config"
	"github.com/ajitpratap0/graphkv/pkg/converter"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/rowkey"
	"github.com/ajitpratap0/graphkv/pkg/schema"
	"github.com/ajitpratap0/graphkv/pkg/store/memory"
	"github.com/ajitpratap0/graphkv/pkg/store/mysql"
	"github.com/ajitpratap0/graphkv/pkg/store/postgres"
)

// Open builds the converter and backend described by cfg for s.
func Open(ctx context.Context, cfg *config.GraphConfig, s *schema.Schema, log *zap.Logger) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid graph configuration")
	}
	if log == nil {
		log = zap.NewNop()
	}

	rows, err := rowkey.ByName(cfg.RowKeyLayout)
	if err != nil {
		return nil, err
	}
	conv, err := converter.New(s, rows, converter.WithMaxValueSize(cfg.Memory.MaxValueSize))
	if err != nil {
		return nil, err
	}

	backend, err := openBackend(ctx, cfg.Backend, log)
	if err != nil {
		return nil, err
	}

	log.Info("opened graph",
		zap.String("graph", cfg.Name),
		zap.String("backend", backend.Name()),
		zap.String("row_key_layout", rows.Name()),
		zap.String("schema_fingerprint", s.Fingerprint()),
		zap.Bool("aggregation", cfg.Aggregation.Enabled))

	return New(conv, backend,
		WithName(cfg.Name),
		WithLogger(log),
		WithAggregation(cfg.Aggregation.Enabled),
		WithMetrics(cfg.Observability.EnableMetrics),
		WithBatchSize(cfg.Backend.GetBatchSize()),
	), nil
}

func openBackend(ctx context.Context, cfg config.BackendConfig, log *zap.Logger) (Backend, error) {
	switch cfg.Type {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendPostgres:
		return postgres.Open(ctx, postgres.Config{
			DSN:            cfg.DSN,
			Table:          cfg.Table,
			MaxConns:       cfg.MaxConns,
			ConnectTimeout: cfg.ConnectTimeout,
			BatchSize:      cfg.GetBatchSize(),
		}, log)
	case config.BackendMySQL:
		return mysql.Open(ctx, mysql.Config{
			DSN:            cfg.DSN,
			Table:          cfg.Table,
			MaxConns:       cfg.MaxConns,
			ConnectTimeout: cfg.ConnectTimeout,
			BatchSize:      cfg.GetBatchSize(),
		}, log)
	}
	return nil, errors.Newf(errors.ErrorTypeConfig, "unknown backend type %q", cfg.Type)
}
