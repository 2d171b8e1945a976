package json

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCompactIsStable(t *testing.T) {
	v := map[string]interface{}{"b": 2, "a": "<x>"}

	first, err := MarshalCompact(v)
	require.NoError(t, err)
	second, err := MarshalCompact(v)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, `{"a":"<x>","b":2}`, string(first))
}

func TestUnmarshalUseNumber(t *testing.T) {
	var v map[string]interface{}
	require.NoError(t, UnmarshalUseNumber([]byte(`{"n":9007199254740993}`), &v))

	n, ok := v["n"].(Number)
	require.True(t, ok)
	i, err := n.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), i)
}

func TestStreamingEncoderArray(t *testing.T) {
	var buf bytes.Buffer
	se := NewStreamingEncoder(&buf, true)
	require.NoError(t, se.Encode(map[string]int{"a": 1}))
	require.NoError(t, se.Encode(map[string]int{"b": 2}))
	require.NoError(t, se.Close())

	var out []map[string]int
	require.NoError(t, Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, []map[string]int{{"a": 1}, {"b": 2}}, out)
}

func TestStreamingEncoderEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	se := NewStreamingEncoder(&buf, true)
	require.NoError(t, se.Close())
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestStreamingEncoderLines(t *testing.T) {
	var buf bytes.Buffer
	se := NewStreamingEncoder(&buf, false)
	require.NoError(t, se.Encode("x"))
	require.NoError(t, se.Encode("y"))
	require.NoError(t, se.Close())
	assert.Equal(t, "\"x\"\n\"y\"\n", buf.String())
}
