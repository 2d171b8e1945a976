package escape

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeKnownSequences(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"empty", []byte{}, []byte{}},
		{"plain", []byte("alice"), []byte("alice")},
		{"delimiter", []byte{0x00}, []byte{0x01, 0x02}},
		{"escape char", []byte{0x01}, []byte{0x01, 0x01}},
		{"replacement char alone", []byte{0x02}, []byte{0x02}},
		{"mixed", []byte{'a', 0x00, 0x01, 'b'}, []byte{'a', 0x01, 0x02, 0x01, 0x01, 'b'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Escape(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, string(got), string([]byte{Delimiter}))
			assert.Equal(t, tt.in, Unescape(got))
		})
	}
}

func TestEscapeRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		b := make([]byte, rng.Intn(24))
		for j := range b {
			// bias towards the special bytes
			b[j] = byte(rng.Intn(4))
			if rng.Intn(3) == 0 {
				b[j] = byte(rng.Intn(256))
			}
		}
		escaped := Escape(b)
		require.Equal(t, -1, bytes.IndexByte(escaped, Delimiter), "escaped output contains delimiter: %v", escaped)
		require.Equal(t, b, Unescape(escaped))
	}
}

func TestEscapeInjective(t *testing.T) {
	inputs := [][]byte{
		{}, {0x00}, {0x01}, {0x02}, {0x01, 0x02}, {0x00, 0x00}, {0x01, 0x01},
		{0x00, 0x02}, {0x02, 0x00}, {0x01, 0x00}, {'a'}, {'a', 0x00}, {0x00, 'a'},
	}
	seen := make(map[string][]byte)
	for _, in := range inputs {
		key := string(Escape(in))
		if prev, ok := seen[key]; ok {
			t.Fatalf("Escape(%v) == Escape(%v) == %v", in, prev, []byte(key))
		}
		seen[key] = in
	}
}

func TestAppendEscapedKeepsPrefix(t *testing.T) {
	dst := []byte{'x', Delimiter}
	got := AppendEscaped(dst, []byte{0x00, 'y'})
	assert.Equal(t, []byte{'x', Delimiter, 0x01, 0x02, 'y'}, got)
}

func TestUnescapeTolerantOfForeignInput(t *testing.T) {
	assert.Equal(t, []byte{'a', 0x01}, Unescape([]byte{'a', 0x01}))
	assert.Equal(t, []byte{0x01, 0x07}, Unescape([]byte{0x01, 0x07}))
}
