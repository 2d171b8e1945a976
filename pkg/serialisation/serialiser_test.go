package serialisation

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphkv/pkg/compression"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/json"
)

func roundTrip(t *testing.T, s Serialiser, v interface{}) interface{} {
	t.Helper()
	b, err := s.Serialise(v)
	require.NoError(t, err)
	require.NotEmpty(t, b, "%s produced an empty payload for %v", s.Name(), v)
	out, err := s.Deserialise(b)
	require.NoError(t, err)
	return out
}

func TestPrimitiveRoundTrips(t *testing.T) {
	tests := []struct {
		s Serialiser
		v interface{}
	}{
		{String{}, "alice"},
		{String{}, "ünïcødé"},
		{Int{}, 5},
		{Int{}, -1000000},
		{Long{}, int64(math.MaxInt64)},
		{Long{}, int64(math.MinInt64)},
		{Boolean{}, true},
		{Boolean{}, false},
		{Double{}, 3.25},
		{Double{}, math.Inf(-1)},
		{Raw{}, []byte{0x00, 0x01, 0xff}},
		{UUID{}, uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")},
	}
	for _, tt := range tests {
		t.Run(tt.s.Name(), func(t *testing.T) {
			assert.Equal(t, tt.v, roundTrip(t, tt.s, tt.v))
		})
	}
}

func TestIntPayloadIsCompactVarint(t *testing.T) {
	b, err := Int{}.Serialise(5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05}, b)
}

func TestSerialiseRejectsWrongType(t *testing.T) {
	for _, tt := range []struct {
		s Serialiser
		v interface{}
	}{
		{String{}, 5},
		{Int{}, int64(5)},
		{Long{}, 5},
		{Boolean{}, "true"},
		{Double{}, 1},
		{Raw{}, "x"},
		{UUID{}, "not-a-uuid-type"},
	} {
		_, err := tt.s.Serialise(tt.v)
		require.Error(t, err, "%s accepted %T", tt.s.Name(), tt.v)
		assert.True(t, errors.IsType(err, errors.ErrorTypeSerialization))
	}
}

func TestDeserialiseRejectsBadPayloads(t *testing.T) {
	for _, tt := range []struct {
		s Serialiser
		b []byte
	}{
		{String{}, []byte{0xff, 0xfe}},
		{Long{}, []byte{0x8e, 0x01}},
		{Long{}, []byte{0x05, 0x06}},
		{Boolean{}, []byte{0x02}},
		{Double{}, []byte{1, 2, 3}},
		{UUID{}, []byte{1, 2, 3}},
		{JSON{}, []byte("{")},
	} {
		_, err := tt.s.Deserialise(tt.b)
		require.Error(t, err, "%s accepted %x", tt.s.Name(), tt.b)
		assert.True(t, errors.IsConversionError(err))
	}
}

func TestEmptyMeansAbsent(t *testing.T) {
	for _, s := range []Serialiser{String{}, Int{}, Long{}, Boolean{}, Double{}, Raw{}, UUID{}, JSON{}} {
		v, err := s.DeserialiseEmpty()
		require.NoError(t, err)
		assert.Nil(t, v, s.Name())
		assert.Equal(t, []byte{}, s.SerialiseNull(), s.Name())
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		s    Serialiser
		in   interface{}
		want interface{}
	}{
		{Int{}, json.Number("5"), 5},
		{Int{}, float64(7), 7},
		{Long{}, json.Number("1700000000000"), int64(1700000000000)},
		{Long{}, 3, int64(3)},
		{Double{}, json.Number("2.5"), 2.5},
		{Double{}, 2, 2.0},
		{String{}, json.Number("42"), "42"},
		{Boolean{}, "true", true},
		{Raw{}, "ab", []byte("ab")},
		{UUID{}, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")},
		{JSON{}, map[string]interface{}{"a": 1}, map[string]interface{}{"a": 1}},
	}
	for _, tt := range tests {
		got, err := Coerce(tt.s, tt.in)
		require.NoError(t, err, tt.s.Name())
		assert.Equal(t, tt.want, got, tt.s.Name())
	}

	_, err := Coerce(Int{}, 2.5)
	assert.Error(t, err)

	v, err := Coerce(Int{}, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestJSONSerialiser(t *testing.T) {
	in := map[string]interface{}{"tags": []interface{}{"a", "b"}, "n": json.Number("12")}
	b, err := JSON{}.Serialise(in)
	require.NoError(t, err)
	assert.Equal(t, `{"n":12,"tags":["a","b"]}`, string(b))

	out, err := JSON{}.Deserialise(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

const personSchema = `{
	"type": "record",
	"name": "Person",
	"fields": [
		{"name": "name", "type": "string"},
		{"name": "age", "type": "long"}
	]
}`

func TestAvroSerialiser(t *testing.T) {
	s, err := NewAvro(personSchema)
	require.NoError(t, err)

	in := map[string]interface{}{"name": "alice", "age": int64(30)}
	out := roundTrip(t, s, in)
	assert.Equal(t, in, out)

	coerced, err := s.Coerce(map[string]interface{}{"name": "bob", "age": json.Number("41")})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "bob", "age": int64(41)}, coerced)

	_, err = s.Serialise(map[string]interface{}{"name": "carol"})
	assert.Error(t, err)

	b, _ := s.Serialise(in)
	_, err = s.Deserialise(append(b, 0x00))
	assert.Error(t, err)

	_, err = NewAvro(`{"type":"nope"}`)
	assert.Error(t, err)
}

func TestAvroRejectsMapTypes(t *testing.T) {
	schemas := []string{
		`{"type": "map", "values": "long"}`,
		`{"type": "record", "name": "tags", "fields": [{"name": "labels", "type": {"type": "map", "values": "string"}}]}`,
		`{"type": "array", "items": {"type": "map", "values": "long"}}`,
		`["null", {"type": "map", "values": "long"}]`,
	}
	for _, schema := range schemas {
		_, err := NewAvro(schema)
		require.Error(t, err, schema)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), schema)
	}

	// a field called "map" is not a map type
	_, err := NewAvro(`{"type": "record", "name": "r", "fields": [{"name": "map", "type": "long"}]}`)
	assert.NoError(t, err)
}

func TestAvroEncodingIsStable(t *testing.T) {
	s, err := NewAvro(`{
	"type": "record",
	"name": "profile",
	"fields": [
		{"name": "name", "type": "string"},
		{"name": "age", "type": "long"},
		{"name": "tags", "type": {"type": "array", "items": "string"}},
		{"name": "city", "type": ["null", "string"]}
	]
}`)
	require.NoError(t, err)

	in := map[string]interface{}{
		"name": "alice",
		"age":  int64(30),
		"tags": []interface{}{"a", "b", "c", "d", "e", "f", "g", "h"},
		"city": map[string]interface{}{"string": "Paris"},
	}
	first, err := s.Serialise(in)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		b, err := s.Serialise(in)
		require.NoError(t, err)
		require.Equal(t, first, b, "encoding %d differs", i)
	}
}

func TestJSONEncodingIsStable(t *testing.T) {
	in := map[string]interface{}{"h": 8, "g": 7, "f": 6, "e": 5, "d": 4, "c": 3, "b": 2, "a": 1}
	first, err := JSON{}.Serialise(in)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		b, err := JSON{}.Serialise(in)
		require.NoError(t, err)
		require.Equal(t, first, b, "encoding %d differs", i)
	}
}

func TestCompressedSerialiser(t *testing.T) {
	s, err := NewCompressed(String{}, &compression.Config{Algorithm: compression.Zstd})
	require.NoError(t, err)
	assert.Equal(t, "compressed(zstd,string)", s.Name())

	text := "a long note that repeats, a long note that repeats, a long note that repeats"
	assert.Equal(t, text, roundTrip(t, s, text))

	// compressed "" is non-empty, but still decodes through the inner empty path
	b, err := s.Serialise("")
	require.NoError(t, err)
	v, err := s.Deserialise(b)
	require.NoError(t, err)
	assert.Nil(t, v)

	coerced, err := s.Coerce(json.Number("7"))
	require.NoError(t, err)
	assert.Equal(t, "7", coerced)

	_, err = NewCompressed(nil, nil)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	s, err := r.Build("STRING", nil)
	require.NoError(t, err)
	assert.Equal(t, String{}, s)

	s, err = r.Build("compressed", Options{"inner": "avro", "inner.schema": personSchema, "algorithm": "lz4", "level": "best"})
	require.NoError(t, err)
	assert.Equal(t, "compressed(lz4,avro)", s.Name())

	_, err = r.Build("compressed", Options{"level": "extreme"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = r.Build("avro", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = r.Build("protobuf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered: avro, boolean, compressed")

	r.Register("text", func(Options, *Registry) (Serialiser, error) { return String{}, nil })
	assert.Contains(t, r.Names(), "text")
	assert.Same(t, defaultRegistry, Default())
}
