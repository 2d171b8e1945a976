// Package config provides the configuration model for a graphkv graph.
//
// A GraphConfig is organized into logical sections:
//   - Schema and RowKeyLayout: how elements become records
//   - Backend: where records are stored
//   - Aggregation: how key-equal records merge on write
//   - Observability: metrics, tracing, logging
//   - Memory: value size limits
//
// Example usage:
//
//	cfg := config.NewGraphConfig("social")
//	cfg.Schema = "schema.yaml"
//	cfg.Backend.Type = config.BackendPostgres
//	cfg.Backend.DSN = "${GRAPHKV_POSTGRES_DSN}"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// Backend types.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Row key layouts.
const (
	LayoutByteEntity = "byteentity"
	LayoutClassic    = "classic"
)

// GraphConfig is the configuration of one graph.
type GraphConfig struct {
	// Name identifies the graph in logs and metrics
	Name string `yaml:"name" json:"name"`
	// Schema is the path of the YAML schema file
	Schema string `yaml:"schema" json:"schema"`
	// RowKeyLayout selects the row key format (byteentity, classic)
	RowKeyLayout string `yaml:"row_key_layout" json:"row_key_layout"`

	// Backend selects and configures the record store
	Backend BackendConfig `yaml:"backend" json:"backend"`

	// Aggregation controls merging of key-equal records
	Aggregation AggregationConfig `yaml:"aggregation" json:"aggregation"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`

	// Memory management configuration
	Memory MemoryConfig `yaml:"memory" json:"memory"`
}

// BackendConfig configures the record store.
type BackendConfig struct {
	// Type is memory, postgres or mysql
	Type string `yaml:"type" json:"type"`
	// DSN is the database connection string
	DSN string `yaml:"dsn" json:"dsn"`
	// Table holds the records
	Table string `yaml:"table" json:"table"`
	// MaxConns caps the connection pool
	MaxConns int32 `yaml:"max_conns" json:"max_conns"`
	// ConnectTimeout bounds pool start-up
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	// BatchSize is the number of records per write batch
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// AggregationConfig controls write-time aggregation.
type AggregationConfig struct {
	// Enabled merges records that share row, column family, qualifier and visibility
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates Prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates OpenTelemetry tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat is json or console
	LogFormat string `yaml:"log_format" json:"log_format"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// MemoryConfig contains memory management settings.
type MemoryConfig struct {
	// MaxValueSize rejects encoded values larger than this many bytes (0 = unlimited)
	MaxValueSize int `yaml:"max_value_size" json:"max_value_size"`
}

// NewGraphConfig creates a GraphConfig with defaults: in-memory backend,
// byte-entity row keys, aggregation on.
func NewGraphConfig(name string) *GraphConfig {
	return &GraphConfig{
		Name:         name,
		RowKeyLayout: LayoutByteEntity,
		Backend: BackendConfig{
			Type:           BackendMemory,
			Table:          "graphkv_records",
			MaxConns:       8,
			ConnectTimeout: 10 * time.Second,
			BatchSize:      500,
		},
		Aggregation: AggregationConfig{
			Enabled: true,
		},
		Observability: ObservabilityConfig{
			EnableMetrics:     true,
			EnableTracing:     false,
			LogLevel:          "info",
			LogFormat:         "json",
			TracingSampleRate: 0.1,
		},
	}
}

// Validate validates the configuration for correctness.
func (c *GraphConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch c.RowKeyLayout {
	case "", LayoutByteEntity, LayoutClassic:
	default:
		return fmt.Errorf("unknown row_key_layout %q", c.RowKeyLayout)
	}
	if err := c.Backend.Validate(); err != nil {
		return err
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		return fmt.Errorf("tracing_sample_rate must be within [0, 1]")
	}
	if c.Memory.MaxValueSize < 0 {
		return fmt.Errorf("max_value_size cannot be negative")
	}
	return nil
}

// Validate checks the backend section.
func (b *BackendConfig) Validate() error {
	switch b.Type {
	case BackendMemory:
	case BackendPostgres, BackendMySQL:
		if b.DSN == "" {
			return fmt.Errorf("backend.dsn is required for %s", b.Type)
		}
		if b.Table == "" {
			return fmt.Errorf("backend.table is required for %s", b.Type)
		}
		if b.MaxConns < 0 {
			return fmt.Errorf("backend.max_conns cannot be negative")
		}
	default:
		return fmt.Errorf("unknown backend type %q", b.Type)
	}
	if b.BatchSize < 0 {
		return fmt.Errorf("backend.batch_size cannot be negative")
	}
	return nil
}

// GetBatchSize returns the write batch size, ensuring it's at least 1
func (b *BackendConfig) GetBatchSize() int {
	if b.BatchSize <= 0 {
		return 500
	}
	return b.BatchSize
}
