package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphkv/pkg/pool"
)

var algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}

func TestCompressorRoundTrip(t *testing.T) {
	original := []byte(`{"note":"met at the conference","tags":["work","work","work"]}`)

	for _, algo := range algorithms {
		t.Run(string(algo), func(t *testing.T) {
			comp, err := NewCompressor(&Config{Algorithm: algo, Level: Default})
			require.NoError(t, err)
			assert.Equal(t, algo, comp.Algorithm())

			compressed, err := comp.Compress(original)
			require.NoError(t, err)

			decompressed, err := comp.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, original, decompressed)
		})
	}
}

func TestCompressorEmptyPayload(t *testing.T) {
	for _, algo := range algorithms {
		t.Run(string(algo), func(t *testing.T) {
			comp, err := NewCompressor(&Config{Algorithm: algo})
			require.NoError(t, err)

			compressed, err := comp.Compress([]byte{})
			require.NoError(t, err)
			decompressed, err := comp.Decompress(compressed)
			require.NoError(t, err)
			assert.Len(t, decompressed, 0)
		})
	}
}

func TestLZ4CompressionLevels(t *testing.T) {
	testData := bytes.Repeat([]byte("test data for compression "), 100)

	for _, level := range []Level{Fastest, Default, Better, Best} {
		t.Run(level.String(), func(t *testing.T) {
			comp, err := NewCompressor(&Config{Algorithm: LZ4, Level: level})
			require.NoError(t, err)

			compressed, err := comp.Compress(testData)
			require.NoError(t, err)
			assert.Less(t, len(compressed), len(testData))

			decompressed, err := comp.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, testData, decompressed)
		})
	}
}

func TestDecompressLimit(t *testing.T) {
	testData := bytes.Repeat([]byte{'a'}, 4096)

	for _, algo := range []Algorithm{Gzip, Snappy, LZ4, S2, Deflate} {
		t.Run(string(algo), func(t *testing.T) {
			comp, err := NewCompressor(&Config{Algorithm: algo, MaxDecompressedSize: 1024})
			require.NoError(t, err)

			compressed, err := comp.Compress(testData)
			require.NoError(t, err)

			_, err = comp.Decompress(compressed)
			assert.Error(t, err)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	algo, err := ParseAlgorithm(" ZSTD ")
	require.NoError(t, err)
	assert.Equal(t, Zstd, algo)

	algo, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, None, algo)

	_, err = ParseAlgorithm("brotli")
	assert.Error(t, err)
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewCompressor(&Config{Algorithm: "brotli"})
	assert.Error(t, err)

	_, err = NewCompressorPool(&Config{Algorithm: "brotli"})
	assert.Error(t, err)
}

func TestCompressorPool(t *testing.T) {
	cp, err := NewCompressorPool(&Config{Algorithm: Zstd, Level: Better})
	require.NoError(t, err)
	assert.Equal(t, Zstd, cp.Algorithm())

	data := bytes.Repeat([]byte("alice knows bob "), 50)
	compressed, err := cp.Compress(data)
	require.NoError(t, err)

	decompressed, err := cp.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, data, decompressed)
}

func TestStreamingDecompressUsesLargeBuffers(t *testing.T) {
	testData := bytes.Repeat([]byte("0123456789abcdef"), 8*1024)

	for _, algo := range []Algorithm{Gzip, LZ4, Deflate} {
		t.Run(string(algo), func(t *testing.T) {
			comp, err := NewCompressor(&Config{Algorithm: algo})
			require.NoError(t, err)
			compressed, err := comp.Compress(testData)
			require.NoError(t, err)

			_, _, hitsBefore, _ := pool.BufferStats(pool.Large)
			first, err := comp.Decompress(compressed)
			require.NoError(t, err)
			second, err := comp.Decompress(compressed)
			require.NoError(t, err)
			_, _, hitsAfter, _ := pool.BufferStats(pool.Large)

			assert.Equal(t, hitsBefore+2, hitsAfter)
			assert.Equal(t, testData, first)
			assert.Equal(t, testData, second)
			// each result owns its bytes
			first[0] = 'x'
			assert.Equal(t, byte('0'), second[0])
		})
	}
}
