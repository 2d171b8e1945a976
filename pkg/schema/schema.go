// Package schema describes the groups a graph stores: for every entity and
// edge group, its ordered properties, the ordered group-by subset, and the
// serialiser and aggregator bound to each property. A Schema also names the
// serialiser used for every vertex and the optional properties that feed
// the visibility and timestamp fields of a stored record.
//
// Schemas are immutable once built and safe for concurrent use.
package schema

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/serialisation"
)

// ElementDefinition describes one group.
type ElementDefinition struct {
	group       string
	kind        element.Kind
	properties  []string
	groupBy     []string
	groupBySet  map[string]struct{}
	serialisers map[string]serialisation.Serialiser
	aggregators map[string]Aggregator
}

// Group returns the group name.
func (d *ElementDefinition) Group() string { return d.group }

// Kind reports whether the group holds entities or edges.
func (d *ElementDefinition) Kind() element.Kind { return d.kind }

// Properties returns the property names in declaration order.
// The slice must not be modified.
func (d *ElementDefinition) Properties() []string { return d.properties }

// GroupBy returns the group-by property names in declaration order.
// The slice must not be modified.
func (d *ElementDefinition) GroupBy() []string { return d.groupBy }

// HasProperty reports whether prop is declared by the group.
func (d *ElementDefinition) HasProperty(prop string) bool {
	for _, p := range d.properties {
		if p == prop {
			return true
		}
	}
	return false
}

// IsGroupBy reports whether prop is a group-by property.
func (d *ElementDefinition) IsGroupBy(prop string) bool {
	_, ok := d.groupBySet[prop]
	return ok
}

// Serialiser returns the serialiser bound to prop, or nil.
func (d *ElementDefinition) Serialiser(prop string) serialisation.Serialiser {
	return d.serialisers[prop]
}

// Aggregator returns the aggregator bound to prop, or nil.
func (d *ElementDefinition) Aggregator(prop string) Aggregator {
	return d.aggregators[prop]
}

// Schema is an immutable set of element definitions.
type Schema struct {
	groups             map[string]*ElementDefinition
	vertexSerialiser   serialisation.Serialiser
	visibilityProperty string
	timestampProperty  string
	fingerprint        string
}

// Element returns the definition for group.
func (s *Schema) Element(group string) (*ElementDefinition, bool) {
	d, ok := s.groups[group]
	return d, ok
}

// MustElement returns the definition for group or an UnknownGroup error.
func (s *Schema) MustElement(group string) (*ElementDefinition, error) {
	d, ok := s.groups[group]
	if !ok {
		return nil, errors.UnknownGroup(group)
	}
	return d, nil
}

// Entity returns the definition of an entity group.
func (s *Schema) Entity(group string) (*ElementDefinition, bool) {
	d, ok := s.groups[group]
	if !ok || d.kind != element.KindEntity {
		return nil, false
	}
	return d, true
}

// Edge returns the definition of an edge group.
func (s *Schema) Edge(group string) (*ElementDefinition, bool) {
	d, ok := s.groups[group]
	if !ok || d.kind != element.KindEdge {
		return nil, false
	}
	return d, true
}

// Groups returns every group name, sorted.
func (s *Schema) Groups() []string {
	out := make([]string, 0, len(s.groups))
	for g := range s.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// GroupsOf returns the sorted group names holding elements of kind.
func (s *Schema) GroupsOf(kind element.Kind) []string {
	out := make([]string, 0, len(s.groups))
	for g, d := range s.groups {
		if d.kind == kind {
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

// VertexSerialiser returns the serialiser shared by all vertices, or nil.
func (s *Schema) VertexSerialiser() serialisation.Serialiser { return s.vertexSerialiser }

// VisibilityProperty returns the visibility property name, or "".
func (s *Schema) VisibilityProperty() string { return s.visibilityProperty }

// TimestampProperty returns the timestamp property name, or "".
func (s *Schema) TimestampProperty() string { return s.timestampProperty }

// Fingerprint identifies the stored layout described by the schema. Two
// schemas with the same fingerprint read and write identical bytes.
func (s *Schema) Fingerprint() string { return s.fingerprint }

// Coerce returns a copy of e whose vertices and properties are converted
// to the native types of their serialisers. Properties the group does not
// declare are kept untouched.
func (s *Schema) Coerce(e *element.Element) (*element.Element, error) {
	d, err := s.MustElement(e.Group)
	if err != nil {
		return nil, err
	}
	if d.kind != e.Kind {
		return nil, errors.Newf(errors.ErrorTypeValidation, "group %q holds %ss, got an %s", e.Group, d.kind, e.Kind)
	}

	out := e.Clone()
	if vs := s.vertexSerialiser; vs != nil {
		if out.Vertex, err = serialisation.Coerce(vs, e.Vertex); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "vertex")
		}
		if out.Source, err = serialisation.Coerce(vs, e.Source); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "source")
		}
		if out.Destination, err = serialisation.Coerce(vs, e.Destination); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "destination")
		}
	}
	for name, v := range e.Properties {
		ser := d.serialisers[name]
		if ser == nil {
			continue
		}
		cv, err := serialisation.Coerce(ser, v)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "property "+name).WithDetail("property", name)
		}
		out.Properties[name] = cv
	}
	return out, nil
}

// computeFingerprint hashes the parts of the schema that affect stored bytes.
func (s *Schema) computeFingerprint() string {
	var sb strings.Builder
	sb.WriteString("vertex=")
	sb.WriteString(serialiserName(s.vertexSerialiser))
	sb.WriteString(";visibility=")
	sb.WriteString(s.visibilityProperty)
	sb.WriteString(";timestamp=")
	sb.WriteString(s.timestampProperty)
	for _, g := range s.Groups() {
		d := s.groups[g]
		sb.WriteString(";")
		sb.WriteString(d.kind.String())
		sb.WriteString(":")
		sb.WriteString(g)
		sb.WriteString("[")
		for _, p := range d.properties {
			sb.WriteString(p)
			sb.WriteString("=")
			sb.WriteString(serialiserName(d.serialisers[p]))
			sb.WriteString(",")
		}
		sb.WriteString("]by[")
		sb.WriteString(strings.Join(d.groupBy, ","))
		sb.WriteString("]")
	}

	sum := xxhash.Sum64String(sb.String())
	var b [8]byte
	for i := range b {
		b[i] = byte(sum >> (56 - 8*i))
	}
	return hex.EncodeToString(b[:])
}

func serialiserName(s serialisation.Serialiser) string {
	if s == nil {
		return "-"
	}
	return s.Name()
}
