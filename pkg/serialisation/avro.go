package serialisation

import (
	"fmt"
	"sort"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/json"
)

// Avro stores values in Avro binary encoding for a fixed schema. Record
// values are map[string]interface{} in goavro's native form.
type Avro struct {
	empty
	codec *goavro.Codec
}

// NewAvro compiles an Avro schema. Schemas containing a map type are
// rejected: goavro writes map entries in Go map iteration order, so the
// same value would not always produce the same bytes.
func NewAvro(schema string) (*Avro, error) {
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create Avro codec: %w", err)
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(schema), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse Avro schema: %w", err)
	}
	if path, ok := findMapType(parsed, "$"); ok {
		return nil, errors.Newf(errors.ErrorTypeValidation, "avro schema has a map type at %s, which has no stable encoding", path).
			WithDetail("path", path)
	}
	return &Avro{codec: codec}, nil
}

// findMapType walks a parsed schema and returns the path of the first map
// type it declares.
func findMapType(node interface{}, path string) (string, bool) {
	switch n := node.(type) {
	case map[string]interface{}:
		if t, ok := n["type"].(string); ok && t == "map" {
			return path, true
		}
		for _, key := range sortedKeys(n) {
			if p, ok := findMapType(n[key], path+"."+key); ok {
				return p, true
			}
		}
	case []interface{}:
		for i, child := range n {
			if p, ok := findMapType(child, fmt.Sprintf("%s[%d]", path, i)); ok {
				return p, true
			}
		}
	}
	return "", false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Avro) Name() string { return "avro" }

// Schema returns the canonical form of the schema.
func (s *Avro) Schema() string { return s.codec.CanonicalSchema() }

func (s *Avro) Serialise(v interface{}) ([]byte, error) {
	b, err := s.codec.BinaryFromNative(nil, v)
	if err != nil {
		return nil, wrapError(s, err, "encode")
	}
	return b, nil
}

func (s *Avro) Deserialise(b []byte) (interface{}, error) {
	native, rest, err := s.codec.NativeFromBinary(b)
	if err != nil {
		return nil, wrapError(s, err, "decode")
	}
	if len(rest) != 0 {
		return nil, payloadError(s, "%d trailing bytes after datum", len(rest))
	}
	return native, nil
}

// Coerce routes v through Avro's textual form, which turns JSON numbers
// into the schema's native numeric types.
func (s *Avro) Coerce(v interface{}) (interface{}, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return nil, wrapError(s, err, "coerce")
	}
	native, _, err := s.codec.NativeFromTextual(text)
	if err != nil {
		return nil, wrapError(s, err, "coerce")
	}
	return native, nil
}
