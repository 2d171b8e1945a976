package schema

import (
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/graphkv/pkg/config"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/serialisation"
)

// File is the YAML form of a schema. Properties are a list so their order,
// which fixes the block layout, survives decoding.
//
//	vertexSerialiser: string
//	visibilityProperty: visibility
//	timestampProperty: timestamp
//	types:
//	  count:
//	    serialiser: long
//	    aggregator: sum
//	  note:
//	    serialiser: compressed
//	    options: {inner: string, algorithm: zstd}
//	edges:
//	  knows:
//	    properties:
//	      - {name: weight, type: count}
//	      - {name: note, type: note}
//	    groupBy: [weight]
//
// A property type names an entry of types or, failing that, a serialiser
// from the registry directly.
type File struct {
	VertexSerialiser   string               `yaml:"vertexSerialiser" json:"vertexSerialiser"`
	VisibilityProperty string               `yaml:"visibilityProperty,omitempty" json:"visibilityProperty,omitempty"`
	TimestampProperty  string               `yaml:"timestampProperty,omitempty" json:"timestampProperty,omitempty"`
	Types              map[string]TypeFile  `yaml:"types,omitempty" json:"types,omitempty"`
	Entities           map[string]GroupFile `yaml:"entities,omitempty" json:"entities,omitempty"`
	Edges              map[string]GroupFile `yaml:"edges,omitempty" json:"edges,omitempty"`
}

// TypeFile binds a serialiser and an optional aggregator.
type TypeFile struct {
	Serialiser string            `yaml:"serialiser" json:"serialiser"`
	Options    map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
	Aggregator string            `yaml:"aggregator,omitempty" json:"aggregator,omitempty"`
}

// GroupFile declares one group.
type GroupFile struct {
	Properties []PropertyFile `yaml:"properties,omitempty" json:"properties,omitempty"`
	GroupBy    []string       `yaml:"groupBy,omitempty" json:"groupBy,omitempty"`
}

// PropertyFile declares one property. An empty type leaves it unconfigured.
type PropertyFile struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
}

// Load reads a YAML schema file, substituting ${ENV} references.
func Load(path string) (*Schema, error) {
	var f File
	if err := config.Load(path, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load schema")
	}
	return f.Build(serialisation.Default())
}

// Parse decodes a YAML schema.
func Parse(data []byte) (*Schema, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse schema")
	}
	return f.Build(serialisation.Default())
}

// Build resolves the file's types against reg.
func (f *File) Build(reg *serialisation.Registry) (*Schema, error) {
	r := &resolver{file: f, reg: reg, cache: make(map[string]resolved)}

	b := NewBuilder().
		VisibilityProperty(f.VisibilityProperty).
		TimestampProperty(f.TimestampProperty)

	if f.VertexSerialiser != "" {
		v, err := r.resolve(f.VertexSerialiser)
		if err != nil {
			return nil, err
		}
		b.VertexSerialiser(v.serialiser)
	}

	for _, group := range sortedKeys(f.Entities) {
		def, err := r.definition(group, f.Entities[group])
		if err != nil {
			return nil, err
		}
		b.Entity(group, def)
	}
	for _, group := range sortedKeys(f.Edges) {
		def, err := r.definition(group, f.Edges[group])
		if err != nil {
			return nil, err
		}
		b.Edge(group, def)
	}
	return b.Build()
}

type resolved struct {
	serialiser serialisation.Serialiser
	aggregator Aggregator
}

type resolver struct {
	file  *File
	reg   *serialisation.Registry
	cache map[string]resolved
}

func (r *resolver) resolve(typeName string) (resolved, error) {
	if res, ok := r.cache[typeName]; ok {
		return res, nil
	}

	var res resolved
	if t, ok := r.file.Types[typeName]; ok {
		s, err := r.reg.Build(t.Serialiser, t.Options)
		if err != nil {
			return resolved{}, errors.Wrap(err, errors.ErrorTypeConfig, "type "+typeName)
		}
		res.serialiser = s
		if t.Aggregator != "" {
			if res.aggregator, err = AggregatorByName(t.Aggregator); err != nil {
				return resolved{}, errors.Wrap(err, errors.ErrorTypeConfig, "type "+typeName)
			}
		}
	} else {
		s, err := r.reg.Build(typeName, nil)
		if err != nil {
			return resolved{}, err
		}
		res.serialiser = s
	}

	r.cache[typeName] = res
	return res, nil
}

func (r *resolver) definition(group string, g GroupFile) (Definition, error) {
	def := Definition{GroupBy: g.GroupBy}
	for _, p := range g.Properties {
		prop := Property{Name: p.Name}
		if p.Type != "" {
			res, err := r.resolve(p.Type)
			if err != nil {
				return Definition{}, errors.Wrap(err, errors.ErrorTypeConfig, "group "+group).WithDetail("group", group)
			}
			prop.Serialiser = res.serialiser
			prop.Aggregator = res.aggregator
		}
		def.Properties = append(def.Properties, prop)
	}
	return def, nil
}
