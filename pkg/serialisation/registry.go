package serialisation

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ajitpratap0/graphkv/pkg/compression"
	"github.com/ajitpratap0/graphkv/pkg/errors"
)

// Options parameterise a serialiser built by name.
type Options map[string]string

// Factory builds a serialiser from options. The registry is passed so
// wrapping serialisers can build their inner codec.
type Factory func(opts Options, r *Registry) (Serialiser, error)

// Registry builds serialisers by name for schema loading.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry with the built-in serialisers:
// string, int, long, boolean, double, raw, uuid, json, avro and compressed.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	for _, s := range []Serialiser{String{}, Int{}, Long{}, Boolean{}, Double{}, Raw{}, UUID{}, JSON{}} {
		s := s
		r.Register(s.Name(), func(Options, *Registry) (Serialiser, error) { return s, nil })
	}
	r.Register("avro", buildAvro)
	r.Register("compressed", buildCompressed)
	return r
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

// Build creates the serialiser registered under name.
func (r *Registry) Build(name string, opts Options) (Serialiser, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown serialiser %q, registered: %s", name, strings.Join(r.Names(), ", "))
	}
	s, err := f(opts, r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to build %s serialiser", name))
	}
	return s, nil
}

// Names lists the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildAvro(opts Options, _ *Registry) (Serialiser, error) {
	schema := opts["schema"]
	if schema == "" {
		return nil, fmt.Errorf("avro serialiser requires a schema option")
	}
	return NewAvro(schema)
}

// buildCompressed reads the options inner (default json), algorithm
// (default snappy) and level (fastest, default, better, best).
func buildCompressed(opts Options, r *Registry) (Serialiser, error) {
	innerName := opts["inner"]
	if innerName == "" {
		innerName = "json"
	}
	if strings.EqualFold(innerName, "compressed") {
		return nil, fmt.Errorf("compressed serialiser cannot wrap itself")
	}
	innerOpts := Options{}
	for k, v := range opts {
		if rest, ok := strings.CutPrefix(k, "inner."); ok {
			innerOpts[rest] = v
		}
	}
	inner, err := r.Build(innerName, innerOpts)
	if err != nil {
		return nil, err
	}

	config := compression.DefaultConfig()
	if name, ok := opts["algorithm"]; ok {
		if config.Algorithm, err = compression.ParseAlgorithm(name); err != nil {
			return nil, err
		}
	}
	if level, ok := opts["level"]; ok {
		if config.Level, err = parseLevel(level); err != nil {
			return nil, err
		}
	}
	return NewCompressed(inner, config)
}

func parseLevel(s string) (compression.Level, error) {
	switch strings.ToLower(s) {
	case "fastest":
		return compression.Fastest, nil
	case "", "default":
		return compression.Default, nil
	case "better":
		return compression.Better, nil
	case "best":
		return compression.Best, nil
	default:
		return 0, fmt.Errorf("unknown compression level %q", s)
	}
}
