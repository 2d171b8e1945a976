// Package serialisation provides the byte codecs bound to vertices and
// properties by a schema.
//
// Every codec implements Serialiser. The empty byte string is reserved:
// the block codec writes it for a missing value and hands it back through
// DeserialiseEmpty, so the built-in codecs never produce it for a present
// value unless that value round-trips through DeserialiseEmpty.
package serialisation

import (
	"fmt"

	"github.com/ajitpratap0/graphkv/pkg/errors"
)

// Serialiser converts one kind of value to and from bytes.
type Serialiser interface {
	// Serialise encodes v. It fails when v is not of the codec's type.
	Serialise(v interface{}) ([]byte, error)
	// Deserialise decodes a non-empty payload.
	Deserialise(b []byte) (interface{}, error)
	// DeserialiseEmpty returns the value stored as a zero length payload.
	// A nil value with a nil error means no value.
	DeserialiseEmpty() (interface{}, error)
	// SerialiseNull returns the bytes that stand in for a missing value.
	SerialiseNull() []byte
	// Name identifies the codec in schema files and error messages.
	Name() string
}

// Coercer is implemented by serialisers that can convert loosely typed
// input, such as numbers decoded from JSON, into their native type.
type Coercer interface {
	Coerce(v interface{}) (interface{}, error)
}

// Coerce converts v with s when s is a Coercer and returns v unchanged
// otherwise. Nil stays nil.
func Coerce(s Serialiser, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if c, ok := s.(Coercer); ok {
		return c.Coerce(v)
	}
	return v, nil
}

func typeError(s Serialiser, v interface{}) error {
	return errors.Newf(errors.ErrorTypeSerialization, "%s serialiser cannot handle %T", s.Name(), v).
		WithDetail("serialiser", s.Name())
}

func payloadError(s Serialiser, format string, args ...interface{}) error {
	return errors.Newf(errors.ErrorTypeSerialization, "%s serialiser: %s", s.Name(), fmt.Sprintf(format, args...)).
		WithDetail("serialiser", s.Name())
}

func wrapError(s Serialiser, err error, op string) error {
	return errors.Wrap(err, errors.ErrorTypeSerialization, fmt.Sprintf("%s serialiser failed to %s", s.Name(), op)).
		WithDetail("serialiser", s.Name())
}

// empty is embedded by codecs whose empty payload means "no value".
type empty struct{}

func (empty) DeserialiseEmpty() (interface{}, error) { return nil, nil }

func (empty) SerialiseNull() []byte { return []byte{} }
