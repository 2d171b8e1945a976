package varint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphkv/pkg/errors"
)

func TestEncodeLongKnownBytes(t *testing.T) {
	tests := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{5, []byte{0x05}},
		{127, []byte{0x7f}},
		{-1, []byte{0xff}},
		{-112, []byte{0x90}},
		{128, []byte{0x8f, 0x80}},
		{255, []byte{0x8f, 0xff}},
		{256, []byte{0x8e, 0x01, 0x00}},
		{-113, []byte{0x87, 0x70}},
	}

	for _, tt := range tests {
		got := EncodeLong(tt.v)
		assert.Equal(t, tt.want, got, "EncodeLong(%d)", tt.v)
		assert.Equal(t, len(got), PrefixWidth(got[0]), "PrefixWidth for %d", tt.v)
	}
}

func TestLongRoundTrip(t *testing.T) {
	values := []int64{
		0, 1, -1, 100, -100, 127, 128, -112, -113, -120, -121,
		1 << 16, -(1 << 16), 1<<31 - 1, -(1 << 31), 1 << 40,
		math.MaxInt64, math.MinInt64,
	}
	for _, v := range values {
		b := EncodeLong(v)
		require.LessOrEqual(t, len(b), MaxWidth)

		got, n, err := ReadLong(b, 0)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(b), n)

		decoded, err := DecodeLong(b)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

func TestReadLongAtOffset(t *testing.T) {
	buf := []byte{0xaa}
	buf = AppendLong(buf, 300)
	buf = AppendLong(buf, 7)

	v, n, err := ReadLong(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(300), v)
	assert.Equal(t, 3, n)

	v, n, err = ReadLong(buf, 1+n)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
	assert.Equal(t, 1, n)
}

func TestReadLongTruncated(t *testing.T) {
	b := EncodeLong(1 << 20)
	_, _, err := ReadLong(b[:len(b)-1], 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTruncatedInput))

	_, _, err = ReadLong(nil, 0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTruncatedInput))
}

func TestDecodeLongRejectsTrailingBytes(t *testing.T) {
	_, err := DecodeLong([]byte{0x05, 0x06})
	assert.True(t, errors.IsType(err, errors.ErrorTypeSerialization))
}

func TestLengthPrefix(t *testing.T) {
	for _, n := range []int{0, 1, 127, 128, 1000, 70000, 1 << 30} {
		prefix := EncodeLength(n)
		assert.Equal(t, len(prefix), PrefixWidth(prefix[0]))

		got, width, err := DecodeLength(prefix, 0)
		require.NoError(t, err)
		assert.Equal(t, n, got)
		assert.Equal(t, len(prefix), width)
	}
}

func TestDecodeLengthRejectsNegative(t *testing.T) {
	_, _, err := DecodeLength(EncodeLong(-3), 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTruncatedInput))
}
