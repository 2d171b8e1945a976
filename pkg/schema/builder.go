package schema

import (
	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/serialisation"
)

// Property declares one property of a group. A nil Serialiser leaves the
// property unconfigured: its block position is always written empty.
type Property struct {
	Name       string
	Serialiser serialisation.Serialiser
	Aggregator Aggregator
}

// Definition declares a group for the Builder.
type Definition struct {
	Properties []Property
	GroupBy    []string
}

type pendingGroup struct {
	group string
	kind  element.Kind
	def   Definition
}

// Builder assembles a Schema.
//
//	s, err := schema.NewBuilder().
//	    VertexSerialiser(serialisation.String{}).
//	    Edge("knows", schema.Definition{
//	        Properties: []schema.Property{
//	            {Name: "weight", Serialiser: serialisation.Int{}, Aggregator: schema.Sum},
//	            {Name: "note", Serialiser: serialisation.String{}},
//	        },
//	        GroupBy: []string{"weight"},
//	    }).
//	    Build()
type Builder struct {
	vertex     serialisation.Serialiser
	visibility string
	timestamp  string
	groups     []pendingGroup
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// VertexSerialiser sets the serialiser shared by all vertices.
func (b *Builder) VertexSerialiser(s serialisation.Serialiser) *Builder {
	b.vertex = s
	return b
}

// VisibilityProperty names the property stored in the visibility field.
func (b *Builder) VisibilityProperty(name string) *Builder {
	b.visibility = name
	return b
}

// TimestampProperty names the property stored in the timestamp field.
func (b *Builder) TimestampProperty(name string) *Builder {
	b.timestamp = name
	return b
}

// Entity declares an entity group.
func (b *Builder) Entity(group string, def Definition) *Builder {
	b.groups = append(b.groups, pendingGroup{group: group, kind: element.KindEntity, def: def})
	return b
}

// Edge declares an edge group.
func (b *Builder) Edge(group string, def Definition) *Builder {
	b.groups = append(b.groups, pendingGroup{group: group, kind: element.KindEdge, def: def})
	return b
}

// Build validates the declarations and returns the schema. A missing
// vertex serialiser is not an error here; consumers that encode vertices
// reject such schemas themselves.
func (b *Builder) Build() (*Schema, error) {
	s := &Schema{
		groups:             make(map[string]*ElementDefinition, len(b.groups)),
		vertexSerialiser:   b.vertex,
		visibilityProperty: b.visibility,
		timestampProperty:  b.timestamp,
	}
	if b.visibility != "" && b.visibility == b.timestamp {
		return nil, invalid("visibility and timestamp property are both %q", b.visibility)
	}

	for _, pg := range b.groups {
		if pg.group == "" {
			return nil, invalid("group name must not be empty")
		}
		if _, dup := s.groups[pg.group]; dup {
			return nil, invalid("group %q is declared more than once", pg.group).WithDetail("group", pg.group)
		}
		d, err := b.define(pg)
		if err != nil {
			return nil, err
		}
		s.groups[pg.group] = d
	}

	s.fingerprint = s.computeFingerprint()
	return s, nil
}

func (b *Builder) define(pg pendingGroup) (*ElementDefinition, error) {
	d := &ElementDefinition{
		group:       pg.group,
		kind:        pg.kind,
		properties:  make([]string, 0, len(pg.def.Properties)),
		groupBy:     make([]string, 0, len(pg.def.GroupBy)),
		groupBySet:  make(map[string]struct{}, len(pg.def.GroupBy)),
		serialisers: make(map[string]serialisation.Serialiser, len(pg.def.Properties)),
		aggregators: make(map[string]Aggregator),
	}

	declared := make(map[string]struct{}, len(pg.def.Properties))
	for _, p := range pg.def.Properties {
		if p.Name == "" {
			return nil, invalid("group %q has a property without a name", pg.group)
		}
		if _, dup := declared[p.Name]; dup {
			return nil, invalid("group %q declares property %q twice", pg.group, p.Name)
		}
		declared[p.Name] = struct{}{}
		d.properties = append(d.properties, p.Name)
		if p.Serialiser != nil {
			d.serialisers[p.Name] = p.Serialiser
		}
		if p.Aggregator != nil {
			d.aggregators[p.Name] = p.Aggregator
		}
	}

	for _, g := range pg.def.GroupBy {
		if _, ok := declared[g]; !ok {
			return nil, invalid("group-by property %q is not a property of group %q", g, pg.group)
		}
		if _, dup := d.groupBySet[g]; dup {
			return nil, invalid("group-by property %q is listed twice in group %q", g, pg.group)
		}
		if g == b.visibility || g == b.timestamp {
			return nil, invalid("group-by property %q of group %q is stored in its own field", g, pg.group)
		}
		d.groupBySet[g] = struct{}{}
		d.groupBy = append(d.groupBy, g)
	}
	return d, nil
}

func invalid(format string, args ...interface{}) *errors.Error {
	return errors.Newf(errors.ErrorTypeValidation, format, args...)
}
