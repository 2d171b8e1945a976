package serialisation

import (
	"encoding/binary"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/ajitpratap0/graphkv/pkg/json"
	"github.com/ajitpratap0/graphkv/pkg/varint"
)

// String stores UTF-8 text. The empty string is indistinguishable from a
// missing value and decodes as absent.
type String struct{ empty }

func (s String) Name() string { return "string" }

func (s String) Serialise(v interface{}) ([]byte, error) {
	str, ok := v.(string)
	if !ok {
		return nil, typeError(s, v)
	}
	return []byte(str), nil
}

func (s String) Deserialise(b []byte) (interface{}, error) {
	if !utf8.Valid(b) {
		return nil, payloadError(s, "invalid UTF-8")
	}
	return string(b), nil
}

func (s String) Coerce(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case []byte:
		return string(x), nil
	default:
		return nil, typeError(s, v)
	}
}

// Long stores an int64 as a compact varint.
type Long struct{ empty }

func (s Long) Name() string { return "long" }

func (s Long) Serialise(v interface{}) ([]byte, error) {
	n, ok := v.(int64)
	if !ok {
		return nil, typeError(s, v)
	}
	return varint.EncodeLong(n), nil
}

func (s Long) Deserialise(b []byte) (interface{}, error) {
	n, err := varint.DecodeLong(b)
	if err != nil {
		return nil, wrapError(s, err, "decode")
	}
	return n, nil
}

func (s Long) Coerce(v interface{}) (interface{}, error) {
	n, err := toInt64(v)
	if err != nil {
		return nil, wrapError(s, err, "coerce")
	}
	return n, nil
}

// Int stores a Go int as a compact varint.
type Int struct{ empty }

func (s Int) Name() string { return "int" }

func (s Int) Serialise(v interface{}) ([]byte, error) {
	n, ok := v.(int)
	if !ok {
		return nil, typeError(s, v)
	}
	return varint.EncodeLong(int64(n)), nil
}

func (s Int) Deserialise(b []byte) (interface{}, error) {
	n, err := varint.DecodeLong(b)
	if err != nil {
		return nil, wrapError(s, err, "decode")
	}
	if n > math.MaxInt || n < math.MinInt {
		return nil, payloadError(s, "%d overflows int", n)
	}
	return int(n), nil
}

func (s Int) Coerce(v interface{}) (interface{}, error) {
	n, err := toInt64(v)
	if err != nil {
		return nil, wrapError(s, err, "coerce")
	}
	if n > math.MaxInt || n < math.MinInt {
		return nil, payloadError(s, "%d overflows int", n)
	}
	return int(n), nil
}

// Boolean stores a bool as a single byte.
type Boolean struct{ empty }

func (s Boolean) Name() string { return "boolean" }

func (s Boolean) Serialise(v interface{}) ([]byte, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, typeError(s, v)
	}
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (s Boolean) Deserialise(b []byte) (interface{}, error) {
	if len(b) != 1 || b[0] > 1 {
		return nil, payloadError(s, "want a single 0 or 1 byte, got %x", b)
	}
	return b[0] == 1, nil
}

func (s Boolean) Coerce(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return nil, wrapError(s, err, "coerce")
		}
		return b, nil
	default:
		return nil, typeError(s, v)
	}
}

// Double stores a float64 as 8 big-endian IEEE-754 bytes.
type Double struct{ empty }

func (s Double) Name() string { return "double" }

func (s Double) Serialise(v interface{}) ([]byte, error) {
	f, ok := v.(float64)
	if !ok {
		return nil, typeError(s, v)
	}
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), math.Float64bits(f)), nil
}

func (s Double) Deserialise(b []byte) (interface{}, error) {
	if len(b) != 8 {
		return nil, payloadError(s, "want 8 bytes, got %d", len(b))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (s Double) Coerce(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, wrapError(s, err, "coerce")
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, wrapError(s, err, "coerce")
		}
		return f, nil
	}
	n, err := toInt64(v)
	if err != nil {
		return nil, typeError(s, v)
	}
	return float64(n), nil
}

// Raw stores bytes unchanged. An empty slice decodes as absent.
type Raw struct{ empty }

func (s Raw) Name() string { return "raw" }

func (s Raw) Serialise(v interface{}) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, typeError(s, v)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s Raw) Deserialise(b []byte) (interface{}, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s Raw) Coerce(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return nil, typeError(s, v)
	}
}
