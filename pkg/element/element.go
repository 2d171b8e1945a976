// Package element defines the graph elements graphkv stores: entities
// (a single vertex) and edges (a pair of vertices with a direction).
package element

import (
	"fmt"
	"reflect"
)

// Kind tags the variant held by an Element.
type Kind int

const (
	// KindEntity is an element attached to a single vertex.
	KindEntity Kind = iota + 1
	// KindEdge is an element joining a source and a destination vertex.
	KindEdge
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindEdge:
		return "edge"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind resolves a wire name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "entity":
		return KindEntity, nil
	case "edge":
		return KindEdge, nil
	default:
		return 0, fmt.Errorf("unknown element kind %q", s)
	}
}

// Properties maps property names to values typed by the schema.
type Properties map[string]interface{}

// Clone returns a shallow copy of p. A nil map clones to an empty one.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into p.
func (p Properties) Merge(other Properties) {
	for k, v := range other {
		p[k] = v
	}
}

// Element is a tagged variant over Entity and Edge. Vertex is only used by
// entities; Source, Destination and Directed only by edges.
type Element struct {
	Kind        Kind
	Group       string
	Vertex      interface{}
	Source      interface{}
	Destination interface{}
	Directed    bool
	Properties  Properties
}

// NewEntity creates an entity of group on vertex.
func NewEntity(group string, vertex interface{}, props Properties) *Element {
	if props == nil {
		props = Properties{}
	}
	return &Element{Kind: KindEntity, Group: group, Vertex: vertex, Properties: props}
}

// NewEdge creates an edge of group between source and destination.
func NewEdge(group string, source, destination interface{}, directed bool, props Properties) *Element {
	if props == nil {
		props = Properties{}
	}
	return &Element{
		Kind:        KindEdge,
		Group:       group,
		Source:      source,
		Destination: destination,
		Directed:    directed,
		Properties:  props,
	}
}

// IsEntity reports whether e is an entity.
func (e *Element) IsEntity() bool { return e.Kind == KindEntity }

// IsEdge reports whether e is an edge.
func (e *Element) IsEdge() bool { return e.Kind == KindEdge }

// IsSelfEdge reports whether e is an edge whose endpoints are equal.
func (e *Element) IsSelfEdge() bool {
	return e.Kind == KindEdge && valuesEqual(e.Source, e.Destination)
}

// Property returns the named property.
func (e *Element) Property(name string) (interface{}, bool) {
	v, ok := e.Properties[name]
	return v, ok
}

// SetProperty sets a property, allocating the map if needed.
func (e *Element) SetProperty(name string, value interface{}) {
	if e.Properties == nil {
		e.Properties = Properties{}
	}
	e.Properties[name] = value
}

// Clone returns a copy of e with its own property map.
func (e *Element) Clone() *Element {
	c := *e
	c.Properties = e.Properties.Clone()
	return &c
}

// Equal reports whether e and o describe the same element. Undirected
// edges are equal regardless of endpoint order. Nil and empty property
// maps are equal.
func (e *Element) Equal(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Kind != o.Kind || e.Group != o.Group {
		return false
	}
	switch e.Kind {
	case KindEntity:
		if !valuesEqual(e.Vertex, o.Vertex) {
			return false
		}
	case KindEdge:
		if e.Directed != o.Directed {
			return false
		}
		same := valuesEqual(e.Source, o.Source) && valuesEqual(e.Destination, o.Destination)
		if !same {
			if e.Directed {
				return false
			}
			if !valuesEqual(e.Source, o.Destination) || !valuesEqual(e.Destination, o.Source) {
				return false
			}
		}
	default:
		return false
	}
	return propertiesEqual(e.Properties, o.Properties)
}

// String renders e for logs and test failures.
func (e *Element) String() string {
	if e == nil {
		return "<nil>"
	}
	if e.Kind == KindEntity {
		return fmt.Sprintf("Entity[group=%s vertex=%v properties=%v]", e.Group, e.Vertex, e.Properties)
	}
	return fmt.Sprintf("Edge[group=%s source=%v destination=%v directed=%t properties=%v]",
		e.Group, e.Source, e.Destination, e.Directed, e.Properties)
}

func propertiesEqual(a, b Properties) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !valuesEqual(av, bv) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}
