// Package varint implements the compact variable-length integer format used
// for length prefixes and for the compact integer serialisers.
//
// A value in [-112, 127] is stored as a single byte. Any other value is
// stored as a header byte followed by 1 to 8 big-endian magnitude bytes:
//
//	[ -113 .. -120 ]  positive, 1..8 magnitude bytes follow
//	[ -121 .. -128 ]  negative (one's complement), 1..8 magnitude bytes follow
//
// The header alone tells a reader how many bytes the whole value occupies,
// see PrefixWidth.
package varint

import (
	"math"

	"github.com/ajitpratap0/graphkv/pkg/errors"
)

// MaxWidth is the largest number of bytes a single encoded value occupies.
const MaxWidth = 9

// AppendLong appends the encoding of v to dst.
func AppendLong(dst []byte, v int64) []byte {
	if v >= -112 && v <= 127 {
		return append(dst, byte(int8(v)))
	}

	header := -112
	if v < 0 {
		v ^= -1
		header = -120
	}
	for tmp := v; tmp != 0; tmp >>= 8 {
		header--
	}
	dst = append(dst, byte(int8(header)))

	n := -(header + 112)
	if header < -120 {
		n = -(header + 120)
	}
	for idx := n; idx != 0; idx-- {
		dst = append(dst, byte(v>>uint((idx-1)*8)))
	}
	return dst
}

// EncodeLong returns the encoding of v.
func EncodeLong(v int64) []byte {
	return AppendLong(make([]byte, 0, MaxWidth), v)
}

// PrefixWidth returns the total number of bytes, header included, of the
// value whose first byte is first.
func PrefixWidth(first byte) int {
	b := int(int8(first))
	switch {
	case b >= -112:
		return 1
	case b < -120:
		return -119 - b
	default:
		return -111 - b
	}
}

func isNegative(first byte) bool {
	b := int8(first)
	return b < -120 || (b >= -112 && b < 0)
}

// ReadLong decodes the value starting at b[off] and returns it with the
// number of bytes consumed.
func ReadLong(b []byte, off int) (int64, int, error) {
	if off < 0 || off >= len(b) {
		return 0, 0, errors.Truncated("varint header", 1, 0)
	}
	first := b[off]
	width := PrefixWidth(first)
	if width == 1 {
		return int64(int8(first)), 1, nil
	}
	if remaining := len(b) - off; remaining < width {
		return 0, 0, errors.Truncated("varint", width, remaining)
	}

	var v int64
	for i := 1; i < width; i++ {
		v = v<<8 | int64(b[off+i])
	}
	if isNegative(first) {
		v ^= -1
	}
	return v, width, nil
}

// DecodeLong decodes a value that occupies all of b.
func DecodeLong(b []byte) (int64, error) {
	v, n, err := ReadLong(b, 0)
	if err != nil {
		return 0, err
	}
	if n != len(b) {
		return 0, errors.Newf(errors.ErrorTypeSerialization, "varint occupies %d bytes but %d were given", n, len(b))
	}
	return v, nil
}

// AppendLength appends the length prefix for n to dst.
func AppendLength(dst []byte, n int) []byte {
	return AppendLong(dst, int64(n))
}

// EncodeLength returns the length prefix for a non-negative n.
func EncodeLength(n int) []byte {
	return AppendLength(make([]byte, 0, MaxWidth), n)
}

// DecodeLength reads the length prefix at b[off] and returns the length
// and the width of the prefix.
func DecodeLength(b []byte, off int) (int, int, error) {
	v, n, err := ReadLong(b, off)
	if err != nil {
		return 0, 0, err
	}
	if v < 0 || v > math.MaxInt {
		return 0, 0, errors.Newf(errors.ErrorTypeTruncatedInput, "corrupt length prefix %d at offset %d", v, off)
	}
	return int(v), n, nil
}
