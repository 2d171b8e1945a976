package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/graphkv/pkg/config"
	"github.com/ajitpratap0/graphkv/pkg/converter"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/logger"
	"github.com/ajitpratap0/graphkv/pkg/observability"
	"github.com/ajitpratap0/graphkv/pkg/rowkey"
	"github.com/ajitpratap0/graphkv/pkg/schema"
)

// envPrefix prefixes the environment variables that stand in for flags,
// e.g. GRAPHKV_SCHEMA or GRAPHKV_LOG_LEVEL.
const envPrefix = "GRAPHKV"

// Keys shared by the persistent flags and viper.
const (
	keyConfig    = "config"
	keySchema    = "schema"
	keyBackend   = "backend"
	keyDSN       = "dsn"
	keyTable     = "table"
	keyLayout    = "layout"
	keyLogLevel  = "log-level"
	keyLogFormat = "log-format"
)

// app holds the state every command shares once setup has run.
type app struct {
	v       *viper.Viper
	cfg     *config.GraphConfig
	schema  *schema.Schema
	log     *zap.Logger
	tracing bool
}

func newApp() *app {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &app{v: v, log: zap.NewNop()}
}

func (a *app) bindFlags(cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()
	flags.StringP(keyConfig, "c", "", "Path to the graph configuration YAML file")
	flags.StringP(keySchema, "s", "", "Path to the schema YAML file (overrides the config file)")
	flags.String(keyBackend, "", "Record store: memory, postgres or mysql")
	flags.String(keyDSN, "", "Database connection string")
	flags.String(keyTable, "", "Database table holding the records")
	flags.String(keyLayout, "", "Row key layout: byteentity or classic")
	flags.String(keyLogLevel, "", "Log level (debug, info, warn, error)")
	flags.String(keyLogFormat, "", "Log encoding (json, console)")
	return a.v.BindPFlags(flags)
}

// run wraps a command body with setup and teardown. Every run carries its
// own request ID, which store logs pick up from the context.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cmd.SetContext(logger.WithRequestID(cmd.Context(), uuid.NewString()))
		if err := a.setup(cmd.Context()); err != nil {
			return err
		}
		defer func() {
			if cerr := a.teardown(cmd.Context()); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.applyOverrides(cfg)

	l, err := logger.New(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogFormat,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid logging configuration")
	}
	logger.Set(l)
	a.log = logger.With(zap.String("component", "graphkv-cli"), zap.String("graph", cfg.Name))

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}
	if cfg.Schema == "" {
		return errors.New(errors.ErrorTypeConfig, "no schema: pass --schema or set schema in the config file")
	}
	s, err := schema.Load(cfg.Schema)
	if err != nil {
		return err
	}

	if cfg.Observability.EnableTracing {
		if err := observability.Initialize(observability.ConfigFrom(cfg.Name, cfg.Observability)); err != nil {
			return err
		}
		a.tracing = true
	}

	a.cfg = cfg
	a.schema = s
	a.log.Debug("loaded schema",
		zap.String("path", cfg.Schema),
		zap.Strings("groups", s.Groups()),
		zap.String("fingerprint", s.Fingerprint()))
	return nil
}

func (a *app) loadConfig() (*config.GraphConfig, error) {
	path := a.v.GetString(keyConfig)
	if path == "" {
		return config.NewGraphConfig("default"), nil
	}
	cfg, err := config.LoadGraphConfig(path)
	if err != nil {
		return nil, err
	}
	if cfg.Schema != "" && !filepath.IsAbs(cfg.Schema) {
		cfg.Schema = filepath.Join(filepath.Dir(path), cfg.Schema)
	}
	return cfg, nil
}

// applyOverrides copies flags and GRAPHKV_* variables over the file values.
func (a *app) applyOverrides(cfg *config.GraphConfig) {
	set := func(key string, dst *string) {
		if v := a.v.GetString(key); v != "" {
			*dst = v
		}
	}
	set(keySchema, &cfg.Schema)
	set(keyBackend, &cfg.Backend.Type)
	set(keyDSN, &cfg.Backend.DSN)
	set(keyTable, &cfg.Backend.Table)
	set(keyLayout, &cfg.RowKeyLayout)
	set(keyLogLevel, &cfg.Observability.LogLevel)
	set(keyLogFormat, &cfg.Observability.LogFormat)
}

func (a *app) teardown(ctx context.Context) error {
	if a.tracing {
		a.tracing = false
		if err := observability.Shutdown(ctx); err != nil {
			return err
		}
	}
	// Sync fails on terminals; nothing useful can be done about it here.
	_ = logger.Sync()
	return nil
}

func (a *app) converter() (*converter.Converter, error) {
	rows, err := rowkey.ByName(a.cfg.RowKeyLayout)
	if err != nil {
		return nil, err
	}
	return converter.New(a.schema, rows, converter.WithMaxValueSize(a.cfg.Memory.MaxValueSize))
}
