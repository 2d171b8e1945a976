// Package block packs an ordered list of properties into one byte string
// of (length prefix, payload) entries and unpacks it again.
//
// Entries are positional: entry i belongs to props[i]. A property with no
// value, or with no serialiser configured, is written as a zero length
// entry so every later position stays aligned.
//
//	[ len(p0) ][ p0 ... ][ len(p1) ][ p1 ... ] ...
//
// Lengths use the compact varint of package varint.
package block

import (
	"fmt"

	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/pool"
	"github.com/ajitpratap0/graphkv/pkg/serialisation"
	"github.com/ajitpratap0/graphkv/pkg/varint"
)

// Lookup returns the serialiser configured for a property, or nil.
type Lookup func(property string) serialisation.Serialiser

// Encode serialises values[p] for every p in props, in order. The result
// is owned by the caller. No bytes are returned on error.
func Encode(props []string, lookup Lookup, values element.Properties) ([]byte, error) {
	if len(props) == 0 {
		return []byte{}, nil
	}

	buf := pool.GetBuffer(pool.Medium)
	defer pool.PutBuffer(buf, pool.Medium)

	var prefix [varint.MaxWidth]byte
	for _, p := range props {
		v, ok := values[p]
		ser := lookup(p)
		if !ok || v == nil || ser == nil {
			buf.WriteByte(0)
			continue
		}
		payload, err := ser.Serialise(v)
		if err != nil {
			return nil, propertyError(err, p, "serialise")
		}
		buf.Write(varint.AppendLength(prefix[:0], len(payload)))
		buf.Write(payload)
	}
	return pool.CopyBytes(buf.Bytes()), nil
}

// Decode reverses Encode. Decoding stops without error when b runs out
// before every property is visited. Zero length entries go through the
// serialiser's DeserialiseEmpty and add nothing when it yields nil.
// Payloads of properties without a serialiser are skipped.
func Decode(b []byte, props []string, lookup Lookup) (element.Properties, error) {
	out := make(element.Properties, len(props))
	off := 0
	for _, p := range props {
		if off >= len(b) {
			break
		}
		n, width, err := varint.DecodeLength(b, off)
		if err != nil {
			return nil, propertyError(err, p, "read length of")
		}
		off += width
		if n > len(b)-off {
			return nil, propertyError(errors.Truncated("property payload", n, len(b)-off), p, "read")
		}
		payload := b[off : off+n]
		off += n

		ser := lookup(p)
		if ser == nil {
			continue
		}
		var v interface{}
		if n == 0 {
			v, err = ser.DeserialiseEmpty()
		} else {
			v, err = ser.Deserialise(payload)
		}
		if err != nil {
			return nil, propertyError(err, p, "deserialise")
		}
		if v != nil {
			out[p] = v
		}
	}
	return out, nil
}

// ExtractPrefix returns the bytes of the first numProps entries of b
// without deserialising them. numProps equal to len(props) returns b
// itself; numProps of zero, or an empty b, returns an empty slice.
func ExtractPrefix(b []byte, props []string, numProps int) ([]byte, error) {
	if numProps < 0 || numProps > len(props) {
		return nil, errors.Newf(errors.ErrorTypeSerialization, "cannot extract %d of %d properties", numProps, len(props))
	}
	if numProps == 0 || len(b) == 0 {
		return []byte{}, nil
	}
	if numProps == len(props) {
		return b, nil
	}

	off := 0
	for i := 0; i < numProps && off < len(b); i++ {
		n, width, err := varint.DecodeLength(b, off)
		if err != nil {
			return nil, propertyError(err, props[i], "read length of")
		}
		off += width
		if n > len(b)-off {
			return nil, propertyError(errors.Truncated("property payload", n, len(b)-off), props[i], "read")
		}
		off += n
	}
	return b[:off], nil
}

// propertyError keeps the kind of a conversion error and names the
// property. Anything else is reported as a serialisation failure.
func propertyError(err error, property, op string) error {
	kind := errors.TypeOf(err)
	switch kind {
	case errors.ErrorTypeTruncatedInput, errors.ErrorTypeSerialization, errors.ErrorTypeUnknownGroup:
	default:
		kind = errors.ErrorTypeSerialization
	}
	return errors.Wrap(err, kind, fmt.Sprintf("failed to %s property %q", op, property)).
		WithDetail("property", property)
}
