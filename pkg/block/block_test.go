package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/serialisation"
)

// sentinel decodes an empty payload as a marker value.
type sentinel struct{ serialisation.String }

func (sentinel) DeserialiseEmpty() (interface{}, error) { return "<empty>", nil }

var (
	props   = []string{"weight", "note", "count", "flag"}
	lookups = map[string]serialisation.Serialiser{
		"weight": serialisation.Int{},
		"note":   serialisation.String{},
		"count":  serialisation.Long{},
		"flag":   serialisation.Boolean{},
	}
)

func lookup(p string) serialisation.Serialiser { return lookups[p] }

func TestEncodeKnownBytes(t *testing.T) {
	b, err := Encode([]string{"weight"}, lookup, element.Properties{"weight": 5})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x05}, b)

	b, err = Encode([]string{"note"}, lookup, element.Properties{"note": "x"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 'x'}, b)
}

func TestEncodeMissingValuesKeepPositions(t *testing.T) {
	b, err := Encode(props, lookup, element.Properties{"note": "hi", "flag": true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x02, 'h', 'i', 0x00, 0x01, 0x01}, b)

	decoded, err := Decode(b, props, lookup)
	require.NoError(t, err)
	assert.Equal(t, element.Properties{"note": "hi", "flag": true}, decoded)
}

func TestRoundTrip(t *testing.T) {
	values := element.Properties{"weight": -7, "note": "hello", "count": int64(1 << 40), "flag": false}
	b, err := Encode(props, lookup, values)
	require.NoError(t, err)

	decoded, err := Decode(b, props, lookup)
	require.NoError(t, err)
	assert.Equal(t, values, decoded)
}

func TestEncodeIgnoresUndeclaredProperties(t *testing.T) {
	b, err := Encode([]string{"weight"}, lookup, element.Properties{"weight": 1, "stray": "x"})
	require.NoError(t, err)
	decoded, err := Decode(b, []string{"weight"}, lookup)
	require.NoError(t, err)
	assert.Equal(t, element.Properties{"weight": 1}, decoded)
}

func TestEmptyPropertyList(t *testing.T) {
	b, err := Encode(nil, lookup, element.Properties{"weight": 1})
	require.NoError(t, err)
	assert.Equal(t, []byte{}, b)

	decoded, err := Decode(b, nil, lookup)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestUnconfiguredSerialiserIsSkipped(t *testing.T) {
	partial := func(p string) serialisation.Serialiser {
		if p == "note" {
			return nil
		}
		return lookups[p]
	}
	b, err := Encode(props, partial, element.Properties{"weight": 1, "note": "dropped", "count": int64(2)})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x01, 0x00, 0x01, 0x02, 0x00}, b)

	decoded, err := Decode(b, props, partial)
	require.NoError(t, err)
	assert.Equal(t, element.Properties{"weight": 1, "count": int64(2)}, decoded)
}

func TestDecodeSkipsPayloadWithoutSerialiser(t *testing.T) {
	// written while "note" had a serialiser, read after it was removed
	b, err := Encode(props, lookup, element.Properties{"note": "abc", "count": int64(9)})
	require.NoError(t, err)

	noNote := func(p string) serialisation.Serialiser {
		if p == "note" {
			return nil
		}
		return lookups[p]
	}
	decoded, err := Decode(b, props, noNote)
	require.NoError(t, err)
	assert.Equal(t, element.Properties{"count": int64(9)}, decoded)
}

func TestDecodeEmptyUsesDeserialiseEmpty(t *testing.T) {
	withSentinel := func(p string) serialisation.Serialiser {
		if p == "note" {
			return sentinel{}
		}
		return lookups[p]
	}
	b, err := Encode(props, withSentinel, element.Properties{"weight": 3})
	require.NoError(t, err)

	decoded, err := Decode(b, props, withSentinel)
	require.NoError(t, err)
	assert.Equal(t, element.Properties{"weight": 3, "note": "<empty>"}, decoded)
}

func TestDecodeStopsWhenInputEnds(t *testing.T) {
	b, err := Encode(props[:2], lookup, element.Properties{"weight": 1, "note": "n"})
	require.NoError(t, err)

	decoded, err := Decode(b, props, lookup)
	require.NoError(t, err)
	assert.Equal(t, element.Properties{"weight": 1, "note": "n"}, decoded)

	decoded, err = Decode(nil, props, lookup)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeTruncatedPayload(t *testing.T) {
	b, err := Encode(props, lookup, element.Properties{"note": "hello"})
	require.NoError(t, err)

	_, err = Decode(b[:4], props, lookup)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTruncatedInput))
	assert.True(t, errors.IsConversionError(err))
	assert.Contains(t, err.Error(), `"note"`)
}

func TestDecodeTruncatedPrefix(t *testing.T) {
	// a two byte length header with only the header present
	_, err := Decode([]byte{0x8f}, props, lookup)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTruncatedInput))
}

func TestSerialiserFailureNamesProperty(t *testing.T) {
	_, err := Encode(props, lookup, element.Properties{"weight": "five"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSerialization))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "weight", e.Details["property"])

	_, err = Decode([]byte{0x01, 0x02}, []string{"flag"}, lookup)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSerialization))
	assert.Contains(t, err.Error(), `"flag"`)
}

func TestExtractPrefixMatchesEncodeOfPrefix(t *testing.T) {
	values := element.Properties{"weight": 300, "note": "abc", "flag": true}
	full, err := Encode(props, lookup, values)
	require.NoError(t, err)

	for n := 0; n <= len(props); n++ {
		want, err := Encode(props[:n], lookup, values)
		require.NoError(t, err)

		got, err := ExtractPrefix(full, props, n)
		require.NoError(t, err)
		assert.Equal(t, want, got, "numProps=%d", n)
	}
}

func TestExtractPrefixEdgeCases(t *testing.T) {
	got, err := ExtractPrefix(nil, props, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, got)

	// the full count returns the input unparsed, even if it is not a block
	junk := []byte{0xff, 0xff}
	got, err = ExtractPrefix(junk, props, len(props))
	require.NoError(t, err)
	assert.Equal(t, junk, got)

	_, err = ExtractPrefix(junk, props, 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTruncatedInput))

	_, err = ExtractPrefix(junk, props, len(props)+1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSerialization))
	assert.True(t, errors.IsConversionError(err))

	_, err = ExtractPrefix(junk, props, -1)
	assert.True(t, errors.IsConversionError(err))
}
