// Package converter turns schema-typed graph elements into sorted
// key/value records and back.
//
// A record's fields are filled from disjoint parts of an element:
//
//	Row               vertex (entity) or source and destination (edge), see package rowkey
//	ColumnFamily      group name
//	ColumnQualifier   block of the group-by properties, see package block
//	ColumnVisibility  serialised visibility property
//	Timestamp         timestamp property, or the clock when it is absent
//	Value             block of every other property
//
// A Converter holds only immutable state and is safe for concurrent use.
package converter

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/graphkv/pkg/block"
	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/escape"
	"github.com/ajitpratap0/graphkv/pkg/rowkey"
	"github.com/ajitpratap0/graphkv/pkg/schema"
	"github.com/ajitpratap0/graphkv/pkg/serialisation"
)

// Option configures a Converter.
type Option func(*Converter)

// WithClock replaces the wall clock used for records without a timestamp
// property.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMaxValueSize rejects elements whose value block exceeds n bytes.
// Zero means no limit.
func WithMaxValueSize(n int) Option {
	return func(c *Converter) {
		c.maxValueSize = n
	}
}

// Converter encodes and decodes the elements of one schema.
type Converter struct {
	schema       *schema.Schema
	rows         rowkey.Codec
	vertex       serialisation.Serialiser
	now          func() time.Time
	maxValueSize int

	// properties stored in the value block, per group
	valueProps map[string][]string
}

// New creates a converter for s using the row layout rows.
func New(s *schema.Schema, rows rowkey.Codec, opts ...Option) (*Converter, error) {
	if s == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "converter requires a schema")
	}
	if s.VertexSerialiser() == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "vertex serialiser is required")
	}
	if rows == nil {
		rows = rowkey.ByteEntity{}
	}

	c := &Converter{
		schema:     s,
		rows:       rows,
		vertex:     s.VertexSerialiser(),
		now:        time.Now,
		valueProps: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, group := range s.Groups() {
		def, _ := s.Element(group)
		var props []string
		for _, p := range def.Properties() {
			if c.isStoredInValue(p, def) {
				props = append(props, p)
			}
		}
		c.valueProps[group] = props
	}
	return c, nil
}

// Schema returns the converter's schema.
func (c *Converter) Schema() *schema.Schema { return c.schema }

// RowCodec returns the converter's row layout.
func (c *Converter) RowCodec() rowkey.Codec { return c.rows }

func (c *Converter) isStoredInValue(prop string, def *schema.ElementDefinition) bool {
	return !def.IsGroupBy(prop) &&
		prop != c.schema.VisibilityProperty() &&
		prop != c.schema.TimestampProperty()
}

func (c *Converter) definition(group string) (*schema.ElementDefinition, error) {
	return c.schema.MustElement(group)
}

func (c *Converter) definitionFor(e *element.Element) (*schema.ElementDefinition, error) {
	if e == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "nil element")
	}
	def, err := c.definition(e.Group)
	if err != nil {
		return nil, err
	}
	if def.Kind() != e.Kind {
		return nil, errors.Newf(errors.ErrorTypeValidation, "group %q holds %ss, got an %s", e.Group, def.Kind(), e.Kind).
			WithDetail("group", e.Group)
	}
	return def, nil
}

// KeysFromElement returns the key of every record of e. The second key is
// nil for entities and self-edges.
func (c *Converter) KeysFromElement(e *element.Element) (Key, *Key, error) {
	def, err := c.definitionFor(e)
	if err != nil {
		return Key{}, nil, err
	}

	var primaryRow, secondaryRow []byte
	switch e.Kind {
	case element.KindEntity:
		v, err := c.serialiseVertex(e.Vertex, "vertex")
		if err != nil {
			return Key{}, nil, err
		}
		primaryRow = c.rows.EntityRow(v)
	case element.KindEdge:
		src, err := c.serialiseVertex(e.Source, "source")
		if err != nil {
			return Key{}, nil, err
		}
		dst, err := c.serialiseVertex(e.Destination, "destination")
		if err != nil {
			return Key{}, nil, err
		}
		primaryRow, secondaryRow = c.rows.EdgeRows(src, dst, e.Directed)
	}

	cq, err := c.buildColumnQualifier(def, e.Properties)
	if err != nil {
		return Key{}, nil, err
	}
	cv, err := c.buildColumnVisibility(def, e.Properties)
	if err != nil {
		return Key{}, nil, err
	}
	ts, err := c.BuildTimestamp(e.Properties)
	if err != nil {
		return Key{}, nil, err
	}

	primary := Key{
		Row:              primaryRow,
		ColumnFamily:     c.BuildColumnFamily(e.Group),
		ColumnQualifier:  cq,
		ColumnVisibility: cv,
		Timestamp:        ts,
	}
	if secondaryRow == nil {
		return primary, nil, nil
	}
	secondary := primary.Clone()
	secondary.Row = secondaryRow
	return primary, &secondary, nil
}

// RecordsFromElement returns the one or two records that store e.
func (c *Converter) RecordsFromElement(e *element.Element) ([]Record, error) {
	primary, secondary, err := c.KeysFromElement(e)
	if err != nil {
		return nil, err
	}
	value, err := c.ValueFromElement(e)
	if err != nil {
		return nil, err
	}
	if secondary == nil {
		return []Record{{Key: primary, Value: value}}, nil
	}
	return []Record{
		{Key: primary, Value: value},
		{Key: *secondary, Value: clone(value)},
	}, nil
}

// ValueFromElement encodes the properties of e stored in the value.
func (c *Converter) ValueFromElement(e *element.Element) ([]byte, error) {
	if _, err := c.definitionFor(e); err != nil {
		return nil, err
	}
	return c.ValueFromProperties(e.Group, e.Properties)
}

// ValueFromProperties encodes the value block of group from props.
func (c *Converter) ValueFromProperties(group string, props element.Properties) ([]byte, error) {
	def, err := c.definition(group)
	if err != nil {
		return nil, err
	}
	value, err := block.Encode(c.valueProps[group], def.Serialiser, props)
	if err != nil {
		return nil, withGroup(err, group)
	}
	if c.maxValueSize > 0 && len(value) > c.maxValueSize {
		return nil, errors.Newf(errors.ErrorTypeValidation, "value of %d bytes exceeds the limit of %d", len(value), c.maxValueSize).
			WithDetail("group", group)
	}
	return value, nil
}

// ElementFromKey rebuilds the element identified by a row and column
// family, without properties.
func (c *Converter) ElementFromKey(row, columnFamily []byte, opts rowkey.Options) (*element.Element, error) {
	group := c.GroupFromColumnFamily(columnFamily)
	def, err := c.definition(group)
	if err != nil {
		return nil, err
	}

	if c.rows.IsEntity(row) {
		if def.Kind() != element.KindEntity {
			return nil, kindMismatch(group, def.Kind(), element.KindEntity)
		}
		raw, err := c.rows.EntityVertex(row)
		if err != nil {
			return nil, withGroup(err, group)
		}
		v, err := c.deserialiseVertex(raw, "vertex")
		if err != nil {
			return nil, err
		}
		return element.NewEntity(group, v, nil), nil
	}

	if def.Kind() != element.KindEdge {
		return nil, kindMismatch(group, def.Kind(), element.KindEdge)
	}
	rawSrc, rawDst, directed, err := c.rows.ParseEdgeRow(row, opts)
	if err != nil {
		return nil, withGroup(err, group)
	}
	src, err := c.deserialiseVertex(rawSrc, "source")
	if err != nil {
		return nil, err
	}
	dst, err := c.deserialiseVertex(rawDst, "destination")
	if err != nil {
		return nil, err
	}
	return element.NewEdge(group, src, dst, directed, nil), nil
}

// PropertiesFromValue decodes a value block of group.
func (c *Converter) PropertiesFromValue(group string, value []byte) (element.Properties, error) {
	def, err := c.definition(group)
	if err != nil {
		return nil, err
	}
	props, err := block.Decode(value, c.valueProps[group], def.Serialiser)
	if err != nil {
		return nil, withGroup(err, group)
	}
	return props, nil
}

// PropertiesFromColumnQualifier decodes the group-by properties of group.
func (c *Converter) PropertiesFromColumnQualifier(group string, qualifier []byte) (element.Properties, error) {
	def, err := c.definition(group)
	if err != nil {
		return nil, err
	}
	props, err := block.Decode(qualifier, def.GroupBy(), def.Serialiser)
	if err != nil {
		return nil, withGroup(err, group)
	}
	return props, nil
}

// PropertiesFromColumnVisibility returns the visibility property decoded
// from a column visibility. It is empty when the schema has no visibility
// property or group does not declare it.
func (c *Converter) PropertiesFromColumnVisibility(group string, visibility []byte) (element.Properties, error) {
	def, err := c.definition(group)
	if err != nil {
		return nil, err
	}
	props := element.Properties{}
	name := c.schema.VisibilityProperty()
	if name == "" || !def.HasProperty(name) {
		return props, nil
	}
	ser := def.Serialiser(name)
	if ser == nil {
		return props, nil
	}

	var v interface{}
	if len(visibility) == 0 {
		v, err = ser.DeserialiseEmpty()
	} else {
		v, err = ser.Deserialise(visibility)
	}
	if err != nil {
		return nil, propertyError(err, group, name)
	}
	if v != nil {
		props[name] = v
	}
	return props, nil
}

// PropertiesFromTimestamp returns the timestamp property holding ts, or an
// empty map when group does not declare the schema's timestamp property.
func (c *Converter) PropertiesFromTimestamp(group string, ts int64) (element.Properties, error) {
	def, err := c.definition(group)
	if err != nil {
		return nil, err
	}
	props := element.Properties{}
	if name := c.schema.TimestampProperty(); name != "" && def.HasProperty(name) {
		props[name] = ts
	}
	return props, nil
}

// FullElementFromKeyAndValue rebuilds an element with all its properties.
func (c *Converter) FullElementFromKeyAndValue(key Key, value []byte, opts rowkey.Options) (*element.Element, error) {
	e, err := c.ElementFromKey(key.Row, key.ColumnFamily, opts)
	if err != nil {
		return nil, err
	}

	fromQualifier, err := c.PropertiesFromColumnQualifier(e.Group, key.ColumnQualifier)
	if err != nil {
		return nil, err
	}
	fromVisibility, err := c.PropertiesFromColumnVisibility(e.Group, key.ColumnVisibility)
	if err != nil {
		return nil, err
	}
	fromTimestamp, err := c.PropertiesFromTimestamp(e.Group, key.Timestamp)
	if err != nil {
		return nil, err
	}
	fromValue, err := c.PropertiesFromValue(e.Group, value)
	if err != nil {
		return nil, err
	}

	e.Properties.Merge(fromQualifier)
	e.Properties.Merge(fromVisibility)
	e.Properties.Merge(fromTimestamp)
	e.Properties.Merge(fromValue)
	return e, nil
}

// FullElement rebuilds the element stored in r.
func (c *Converter) FullElement(r Record, opts rowkey.Options) (*element.Element, error) {
	return c.FullElementFromKeyAndValue(r.Key, r.Value, opts)
}

// PropertiesAsBytesFromColumnQualifier returns the raw bytes of the first
// numProps group-by properties of a qualifier.
func (c *Converter) PropertiesAsBytesFromColumnQualifier(group string, qualifier []byte, numProps int) ([]byte, error) {
	def, err := c.definition(group)
	if err != nil {
		return nil, err
	}
	b, err := block.ExtractPrefix(qualifier, def.GroupBy(), numProps)
	if err != nil {
		return nil, withGroup(err, group)
	}
	return b, nil
}

// BuildColumnFamily returns the column family of group.
func (c *Converter) BuildColumnFamily(group string) []byte {
	return []byte(group)
}

// GroupFromColumnFamily returns the group of a column family.
func (c *Converter) GroupFromColumnFamily(columnFamily []byte) string {
	return string(columnFamily)
}

// BuildColumnQualifier encodes the group-by properties of group.
func (c *Converter) BuildColumnQualifier(group string, props element.Properties) ([]byte, error) {
	def, err := c.definition(group)
	if err != nil {
		return nil, err
	}
	return c.buildColumnQualifier(def, props)
}

func (c *Converter) buildColumnQualifier(def *schema.ElementDefinition, props element.Properties) ([]byte, error) {
	cq, err := block.Encode(def.GroupBy(), def.Serialiser, props)
	if err != nil {
		return nil, withGroup(err, def.Group())
	}
	return cq, nil
}

// BuildColumnVisibility serialises the visibility property of props. A
// declared but missing property is written as its serialiser's null bytes.
// Without a visibility property the result is empty.
func (c *Converter) BuildColumnVisibility(group string, props element.Properties) ([]byte, error) {
	def, err := c.definition(group)
	if err != nil {
		return nil, err
	}
	return c.buildColumnVisibility(def, props)
}

func (c *Converter) buildColumnVisibility(def *schema.ElementDefinition, props element.Properties) ([]byte, error) {
	name := c.schema.VisibilityProperty()
	if name == "" || !def.HasProperty(name) {
		return []byte{}, nil
	}
	ser := def.Serialiser(name)
	if ser == nil {
		return []byte{}, nil
	}
	v, ok := props[name]
	if !ok || v == nil {
		return ser.SerialiseNull(), nil
	}
	b, err := ser.Serialise(v)
	if err != nil {
		return nil, propertyError(err, def.Group(), name)
	}
	return b, nil
}

// BuildTimestamp returns the timestamp property of props, which must be an
// int64, or the current time in milliseconds when it is absent.
func (c *Converter) BuildTimestamp(props element.Properties) (int64, error) {
	if name := c.schema.TimestampProperty(); name != "" {
		if v, ok := props[name]; ok && v != nil {
			ts, ok := v.(int64)
			if !ok {
				return 0, errors.Newf(errors.ErrorTypeSerialization, "timestamp property %q must be an int64, got %T", name, v).
					WithDetail("property", name)
			}
			return ts, nil
		}
	}
	return c.now().UnixMilli(), nil
}

// SerialiseVertex returns the escaped bytes of vertex as they appear in a
// row, for seeds and range scans.
func (c *Converter) SerialiseVertex(vertex interface{}) ([]byte, error) {
	b, err := c.serialiseVertex(vertex, "vertex")
	if err != nil {
		return nil, err
	}
	return escape.Escape(b), nil
}

func (c *Converter) serialiseVertex(v interface{}, role string) ([]byte, error) {
	if v == nil {
		return nil, errors.Newf(errors.ErrorTypeSerialization, "%s is missing", role)
	}
	b, err := c.vertex.Serialise(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to serialise "+role).WithDetail("role", role)
	}
	return b, nil
}

func (c *Converter) deserialiseVertex(b []byte, role string) (interface{}, error) {
	v, err := c.vertex.Deserialise(b)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to deserialise "+role).WithDetail("role", role)
	}
	return v, nil
}

func withGroup(err error, group string) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithDetail("group", group)
	}
	return errors.Wrap(err, errors.ErrorTypeSerialization, fmt.Sprintf("group %q", group)).WithDetail("group", group)
}

func propertyError(err error, group, property string) error {
	return errors.Wrap(err, errors.ErrorTypeSerialization, fmt.Sprintf("failed to convert property %q", property)).
		WithDetail("group", group).
		WithDetail("property", property)
}

func kindMismatch(group string, want, got element.Kind) error {
	return errors.Newf(errors.ErrorTypeSerialization, "group %q holds %ss but the row is an %s", group, want, got).
		WithDetail("group", group)
}
