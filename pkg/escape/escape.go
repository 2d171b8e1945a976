// Package escape removes the row key delimiter from serialised identifiers.
//
// Row keys join several escaped vertex byte strings with Delimiter. Escaped
// output never contains Delimiter, so a row can be split on it without
// ambiguity:
//
//	0x00 -> [ 0x01 ][ 0x02 ]
//	0x01 -> [ 0x01 ][ 0x01 ]
//
// Every other byte is copied unchanged.
package escape

const (
	// Delimiter separates the parts of a composite row key.
	Delimiter byte = 0x00
	// EscapeChar introduces a two byte escape sequence.
	EscapeChar byte = 0x01
	// ReplacementChar follows EscapeChar in place of an escaped Delimiter.
	ReplacementChar byte = 0x02
)

// Escape returns a copy of b in which Delimiter does not occur.
func Escape(b []byte) []byte {
	return AppendEscaped(make([]byte, 0, escapedLen(b)), b)
}

// AppendEscaped appends the escaped form of src to dst.
func AppendEscaped(dst, src []byte) []byte {
	for _, c := range src {
		switch c {
		case EscapeChar:
			dst = append(dst, EscapeChar, EscapeChar)
		case Delimiter:
			dst = append(dst, EscapeChar, ReplacementChar)
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

// Unescape reverses Escape. A trailing EscapeChar or an escape pair that
// Escape never produces is kept literally.
func Unescape(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != EscapeChar || i+1 == len(b) {
			out = append(out, c)
			continue
		}
		switch b[i+1] {
		case EscapeChar:
			out = append(out, EscapeChar)
			i++
		case ReplacementChar:
			out = append(out, Delimiter)
			i++
		default:
			out = append(out, c)
		}
	}
	return out
}

func escapedLen(b []byte) int {
	n := len(b)
	for _, c := range b {
		if c == Delimiter || c == EscapeChar {
			n++
		}
	}
	return n
}
