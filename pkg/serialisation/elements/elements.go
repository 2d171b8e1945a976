// Package elements serialises a whole entity or edge, group and properties
// included, into one byte string. Records split an element over a key and
// a value; these codecs keep it in one piece for caches and queues.
//
//	entity  [len][group][len][vertex][properties]
//	edge    [len][group][len][source][len][destination][directed][properties]
//
// Lengths use package varint and the properties are a block (package
// block) over every property the group declares.
package elements

import (
	"bytes"

	"github.com/ajitpratap0/graphkv/pkg/block"
	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/pool"
	"github.com/ajitpratap0/graphkv/pkg/schema"
	"github.com/ajitpratap0/graphkv/pkg/serialisation"
	"github.com/ajitpratap0/graphkv/pkg/varint"
)

// Kind bytes written by Serialiser ahead of the element.
const (
	KindByteEntity byte = 0x01
	KindByteEdge   byte = 0x02
)

type codec struct {
	schema *schema.Schema
	vertex serialisation.Serialiser
}

func newCodec(s *schema.Schema) (codec, error) {
	if s == nil {
		return codec{}, errors.New(errors.ErrorTypeValidation, "schema is required")
	}
	if s.VertexSerialiser() == nil {
		return codec{}, errors.New(errors.ErrorTypeValidation, "vertex serialiser is required")
	}
	return codec{schema: s, vertex: s.VertexSerialiser()}, nil
}

func (c codec) definition(group string, kind element.Kind) (*schema.ElementDefinition, error) {
	def, err := c.schema.MustElement(group)
	if err != nil {
		return nil, err
	}
	if def.Kind() != kind {
		return nil, errors.Newf(errors.ErrorTypeValidation, "group %q is of kind %s, want %s", group, def.Kind(), kind).
			WithDetail("group", group)
	}
	return def, nil
}

func (c codec) encode(e *element.Element, kind element.Kind) ([]byte, error) {
	def, err := c.definition(e.Group, kind)
	if err != nil {
		return nil, err
	}

	buf := pool.GetBuffer(pool.Medium)
	defer pool.PutBuffer(buf, pool.Medium)

	writeField(buf, []byte(e.Group))
	vertices := []interface{}{e.Vertex}
	if kind == element.KindEdge {
		vertices = []interface{}{e.Source, e.Destination}
	}
	for _, v := range vertices {
		b, err := c.vertex.Serialise(v)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to serialise vertex")
		}
		writeField(buf, b)
	}
	if kind == element.KindEdge {
		directed := byte(0)
		if e.Directed {
			directed = 1
		}
		buf.WriteByte(directed)
	}

	props, err := block.Encode(def.Properties(), def.Serialiser, e.Properties)
	if err != nil {
		return nil, err
	}
	buf.Write(props)
	return pool.CopyBytes(buf.Bytes()), nil
}

func (c codec) decode(b []byte, kind element.Kind) (*element.Element, error) {
	r := reader{b: b}
	group := string(r.field("group"))
	if r.err != nil {
		return nil, r.err
	}
	def, err := c.definition(group, kind)
	if err != nil {
		return nil, err
	}

	e := &element.Element{Kind: kind, Group: group}
	if kind == element.KindEntity {
		e.Vertex = r.vertex(c.vertex, "vertex")
	} else {
		e.Source = r.vertex(c.vertex, "source")
		e.Destination = r.vertex(c.vertex, "destination")
		e.Directed = r.flag("directed")
	}
	if r.err != nil {
		return nil, r.err
	}

	if e.Properties, err = block.Decode(b[r.off:], def.Properties(), def.Serialiser); err != nil {
		return nil, err
	}
	return e, nil
}

func writeField(buf *bytes.Buffer, b []byte) {
	var prefix [varint.MaxWidth]byte
	buf.Write(varint.AppendLength(prefix[:0], len(b)))
	buf.Write(b)
}

// reader walks the fields ahead of the property block. The first failure
// sticks and later reads return zero values.
type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) field(what string) []byte {
	if r.err != nil {
		return nil
	}
	if r.off >= len(r.b) {
		r.err = errors.Truncated(what, 1, 0)
		return nil
	}
	n, width, err := varint.DecodeLength(r.b, r.off)
	if err != nil {
		r.err = errors.Wrap(err, errors.TypeOf(err), "failed to read length of "+what)
		return nil
	}
	r.off += width
	if n > len(r.b)-r.off {
		r.err = errors.Truncated(what, n, len(r.b)-r.off)
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) vertex(s serialisation.Serialiser, what string) interface{} {
	b := r.field(what)
	if r.err != nil {
		return nil
	}
	var v interface{}
	var err error
	if len(b) == 0 {
		v, err = s.DeserialiseEmpty()
	} else {
		v, err = s.Deserialise(b)
	}
	if err != nil {
		r.err = errors.Wrap(err, errors.ErrorTypeSerialization, "failed to deserialise "+what)
	}
	return v
}

func (r *reader) flag(what string) bool {
	if r.err != nil {
		return false
	}
	if r.off >= len(r.b) {
		r.err = errors.Truncated(what, 1, 0)
		return false
	}
	f := r.b[r.off]
	r.off++
	if f > 1 {
		r.err = errors.Newf(errors.ErrorTypeSerialization, "invalid %s flag 0x%02x", what, f)
	}
	return f == 1
}

func asElement(v interface{}) *element.Element {
	e, _ := v.(*element.Element)
	return e
}

func handleError(name string, v interface{}) error {
	if e := asElement(v); e != nil {
		return errors.Newf(errors.ErrorTypeSerialization, "%s serialiser cannot handle an element of kind %s", name, e.Kind).
			WithDetail("serialiser", name)
	}
	return errors.Newf(errors.ErrorTypeSerialization, "%s serialiser cannot handle %T", name, v).
		WithDetail("serialiser", name)
}

// EntitySerialiser serialises entities of the groups in its schema.
type EntitySerialiser struct {
	codec codec
}

// NewEntitySerialiser fails when s has no vertex serialiser.
func NewEntitySerialiser(s *schema.Schema) (*EntitySerialiser, error) {
	c, err := newCodec(s)
	if err != nil {
		return nil, err
	}
	return &EntitySerialiser{codec: c}, nil
}

func (s *EntitySerialiser) Name() string { return "entity" }

// CanHandle reports whether v is an entity.
func (s *EntitySerialiser) CanHandle(v interface{}) bool {
	e := asElement(v)
	return e != nil && e.IsEntity()
}

func (s *EntitySerialiser) Serialise(v interface{}) ([]byte, error) {
	if !s.CanHandle(v) {
		return nil, handleError(s.Name(), v)
	}
	return s.codec.encode(asElement(v), element.KindEntity)
}

func (s *EntitySerialiser) Deserialise(b []byte) (interface{}, error) {
	e, err := s.DeserialiseEntity(b)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DeserialiseEntity is Deserialise with a typed result.
func (s *EntitySerialiser) DeserialiseEntity(b []byte) (*element.Element, error) {
	return s.codec.decode(b, element.KindEntity)
}

func (s *EntitySerialiser) DeserialiseEmpty() (interface{}, error) { return nil, nil }

func (s *EntitySerialiser) SerialiseNull() []byte { return []byte{} }

// EdgeSerialiser serialises edges of the groups in its schema.
type EdgeSerialiser struct {
	codec codec
}

// NewEdgeSerialiser fails when s has no vertex serialiser.
func NewEdgeSerialiser(s *schema.Schema) (*EdgeSerialiser, error) {
	c, err := newCodec(s)
	if err != nil {
		return nil, err
	}
	return &EdgeSerialiser{codec: c}, nil
}

func (s *EdgeSerialiser) Name() string { return "edge" }

// CanHandle reports whether v is an edge.
func (s *EdgeSerialiser) CanHandle(v interface{}) bool {
	e := asElement(v)
	return e != nil && e.IsEdge()
}

func (s *EdgeSerialiser) Serialise(v interface{}) ([]byte, error) {
	if !s.CanHandle(v) {
		return nil, handleError(s.Name(), v)
	}
	return s.codec.encode(asElement(v), element.KindEdge)
}

func (s *EdgeSerialiser) Deserialise(b []byte) (interface{}, error) {
	e, err := s.DeserialiseEdge(b)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DeserialiseEdge is Deserialise with a typed result.
func (s *EdgeSerialiser) DeserialiseEdge(b []byte) (*element.Element, error) {
	return s.codec.decode(b, element.KindEdge)
}

func (s *EdgeSerialiser) DeserialiseEmpty() (interface{}, error) { return nil, nil }

func (s *EdgeSerialiser) SerialiseNull() []byte { return []byte{} }

// Serialiser handles both kinds, prefixing each element with its kind
// byte.
type Serialiser struct {
	codec codec
}

// NewSerialiser fails when s has no vertex serialiser.
func NewSerialiser(s *schema.Schema) (*Serialiser, error) {
	c, err := newCodec(s)
	if err != nil {
		return nil, err
	}
	return &Serialiser{codec: c}, nil
}

func (s *Serialiser) Name() string { return "element" }

// CanHandle reports whether v is an entity or an edge.
func (s *Serialiser) CanHandle(v interface{}) bool {
	e := asElement(v)
	return e != nil && (e.IsEntity() || e.IsEdge())
}

func (s *Serialiser) Serialise(v interface{}) ([]byte, error) {
	if !s.CanHandle(v) {
		return nil, handleError(s.Name(), v)
	}
	e := asElement(v)
	kindByte := KindByteEntity
	if e.IsEdge() {
		kindByte = KindByteEdge
	}
	body, err := s.codec.encode(e, e.Kind)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, kindByte)
	return append(out, body...), nil
}

func (s *Serialiser) Deserialise(b []byte) (interface{}, error) {
	e, err := s.DeserialiseElement(b)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DeserialiseElement is Deserialise with a typed result.
func (s *Serialiser) DeserialiseElement(b []byte) (*element.Element, error) {
	if len(b) == 0 {
		return nil, errors.Truncated("element kind", 1, 0)
	}
	switch b[0] {
	case KindByteEntity:
		return s.codec.decode(b[1:], element.KindEntity)
	case KindByteEdge:
		return s.codec.decode(b[1:], element.KindEdge)
	default:
		return nil, errors.Newf(errors.ErrorTypeSerialization, "unknown element kind byte 0x%02x", b[0])
	}
}

func (s *Serialiser) DeserialiseEmpty() (interface{}, error) { return nil, nil }

func (s *Serialiser) SerialiseNull() []byte { return []byte{} }

var (
	_ serialisation.Serialiser = (*EntitySerialiser)(nil)
	_ serialisation.Serialiser = (*EdgeSerialiser)(nil)
	_ serialisation.Serialiser = (*Serialiser)(nil)
)
