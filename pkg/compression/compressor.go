// Package compression compresses property payloads before they are length
// prefixed into a value block.
//
// # Algorithm Selection
//
//   - Snappy/S2: fast, moderate ratio, good for small JSON payloads
//   - LZ4: fastest, decent ratio
//   - Zstd: best ratio, good speed, good for large Avro records
//   - Gzip/Deflate: wide compatibility
//
// # Basic Usage
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Better,
//	})
//
//	compressed, err := comp.Compress(payload)
//	original, err := comp.Decompress(compressed)
//
// Compressors are safe for concurrent use. A CompressorPool reuses
// compressor instances for algorithms with expensive initialisation.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/graphkv/pkg/pool"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents deflate compression
	Deflate Algorithm = "deflate"
)

// ParseAlgorithm resolves a case-insensitive algorithm name. The empty
// string selects None.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case "":
		return None, nil
	case None, Gzip, Snappy, LZ4, Zstd, S2, Deflate:
		return a, nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm: %s", name)
	}
}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case Fastest:
		return "Fastest"
	case Default:
		return "Default"
	case Better:
		return "Better"
	case Best:
		return "Best"
	default:
		return "Unknown"
	}
}

// DefaultMaxDecompressedSize bounds the output of Decompress when Config
// leaves MaxDecompressedSize unset.
const DefaultMaxDecompressedSize = 64 << 20

// Compressor compresses and decompresses whole payloads.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress compresses data and returns the compressed bytes.
	// The input data is not modified.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data and returns the original bytes.
	// The input data is not modified.
	Decompress(data []byte) ([]byte, error)

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level
}

// Config represents compressor configuration.
type Config struct {
	Algorithm           Algorithm // Compression algorithm to use
	Level               Level     // Compression level
	MaxDecompressedSize int       // Upper bound on decompressed output, 0 means DefaultMaxDecompressedSize
}

// DefaultConfig returns the default configuration: Snappy at the default level.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:           Snappy,
		Level:               Default,
		MaxDecompressedSize: DefaultMaxDecompressedSize,
	}
}

// NewCompressor creates a new compressor based on the provided configuration.
// If config is nil, default configuration is used.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	base := baseCompressor{
		algorithm: config.Algorithm,
		level:     config.Level,
		limit:     config.MaxDecompressedSize,
	}
	if base.limit <= 0 {
		base.limit = DefaultMaxDecompressedSize
	}

	switch config.Algorithm {
	case None, "":
		base.algorithm = None
		return &noneCompressor{baseCompressor: base}, nil
	case Gzip:
		return newGzipCompressor(base), nil
	case Snappy:
		return &snappyCompressor{baseCompressor: base}, nil
	case LZ4:
		return &lz4Compressor{baseCompressor: base, compressionLevel: mapLZ4Level(config.Level)}, nil
	case Zstd:
		return newZstdCompressor(base)
	case S2:
		return &s2Compressor{baseCompressor: base}, nil
	case Deflate:
		return &deflateCompressor{baseCompressor: base, flateLevel: mapDeflateLevel(config.Level)}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", config.Algorithm)
	}
}

// CompressorPool provides pooled compressors for better performance by
// reusing compressor instances.
//
// CompressorPool is safe for concurrent use.
type CompressorPool struct {
	pool   sync.Pool
	config *Config
}

// NewCompressorPool creates a new compressor pool with the specified
// configuration. The configuration is validated eagerly so pooled
// construction can never fail.
func NewCompressorPool(config *Config) (*CompressorPool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	first, err := NewCompressor(config)
	if err != nil {
		return nil, err
	}

	cp := &CompressorPool{config: config}
	cp.pool.New = func() interface{} {
		comp, _ := NewCompressor(config)
		return comp
	}
	cp.pool.Put(first)
	return cp, nil
}

// Get gets a compressor from pool
func (cp *CompressorPool) Get() Compressor {
	return cp.pool.Get().(Compressor)
}

// Put returns compressor to pool
func (cp *CompressorPool) Put(c Compressor) {
	cp.pool.Put(c)
}

// Algorithm returns the pool's algorithm.
func (cp *CompressorPool) Algorithm() Algorithm {
	if cp.config.Algorithm == "" {
		return None
	}
	return cp.config.Algorithm
}

// Compress compresses data using a pooled compressor
func (cp *CompressorPool) Compress(data []byte) ([]byte, error) {
	c := cp.Get()
	defer cp.Put(c)
	return c.Compress(data)
}

// Decompress decompresses data using a pooled compressor
func (cp *CompressorPool) Decompress(data []byte) ([]byte, error) {
	c := cp.Get()
	defer cp.Put(c)
	return c.Decompress(data)
}

type baseCompressor struct {
	algorithm Algorithm
	level     Level
	limit     int
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

// readAll drains r into an owned slice, failing once more than limit bytes
// are produced.
func (bc *baseCompressor) readAll(r io.Reader) ([]byte, error) {
	buf := pool.GetBuffer(pool.Large)
	defer pool.PutBuffer(buf, pool.Large)

	n, err := io.Copy(buf, io.LimitReader(r, int64(bc.limit)+1))
	if err != nil {
		return nil, err
	}
	if n > int64(bc.limit) {
		return nil, fmt.Errorf("%s: decompressed size exceeds limit of %d bytes", bc.algorithm, bc.limit)
	}
	return pool.CopyBytes(buf.Bytes()), nil
}

func (bc *baseCompressor) checkLen(n int, err error) error {
	if err != nil {
		return err
	}
	if n > bc.limit {
		return fmt.Errorf("%s: decompressed size %d exceeds limit of %d bytes", bc.algorithm, n, bc.limit)
	}
	return nil
}

// None compressor (no compression)
type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error) {
	return pool.CopyBytes(data), nil
}

func (nc *noneCompressor) Decompress(data []byte) ([]byte, error) {
	return pool.CopyBytes(data), nil
}

// Gzip compressor
type gzipCompressor struct {
	baseCompressor
	writerPool sync.Pool
	readerPool sync.Pool
}

func newGzipCompressor(base baseCompressor) *gzipCompressor {
	level := mapGzipLevel(base.level)
	gc := &gzipCompressor{baseCompressor: base}
	gc.writerPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, level)
		return w
	}
	gc.readerPool.New = func() interface{} {
		return new(gzip.Reader)
	}
	return gc
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	buf := pool.GetBuffer(pool.Medium)
	defer pool.PutBuffer(buf, pool.Medium)

	w := gc.writerPool.Get().(*gzip.Writer)
	defer gc.writerPool.Put(w)

	w.Reset(buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return pool.CopyBytes(buf.Bytes()), nil
}

func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r := gc.readerPool.Get().(*gzip.Reader)
	defer gc.readerPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return gc.readAll(r)
}

// Snappy compressor
type snappyCompressor struct {
	baseCompressor
}

func (sc *snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (sc *snappyCompressor) Decompress(data []byte) ([]byte, error) {
	if err := sc.checkLen(snappy.DecodedLen(data)); err != nil {
		return nil, err
	}
	return snappy.Decode(nil, data)
}

// LZ4 compressor
type lz4Compressor struct {
	baseCompressor
	compressionLevel lz4.CompressionLevel
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	buf := pool.GetBuffer(pool.Medium)
	defer pool.PutBuffer(buf, pool.Medium)

	w := lz4.NewWriter(buf)
	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel)); err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return pool.CopyBytes(buf.Bytes()), nil
}

func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	return lc.readAll(lz4.NewReader(bytes.NewReader(data)))
}

// Zstd compressor
type zstdCompressor struct {
	baseCompressor
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor(base baseCompressor) (*zstdCompressor, error) {
	// EncodeAll and DecodeAll are safe for concurrent use, so one pair is shared.
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(mapZstdLevel(base.level)))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(base.limit)))
	if err != nil {
		return nil, err
	}
	return &zstdCompressor{baseCompressor: base, encoder: enc, decoder: dec}, nil
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return zc.encoder.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	return zc.decoder.DecodeAll(data, nil)
}

// S2 compressor (Snappy-compatible but better compression)
type s2Compressor struct {
	baseCompressor
}

func (sc *s2Compressor) Compress(data []byte) ([]byte, error) {
	return s2.Encode(nil, data), nil
}

func (sc *s2Compressor) Decompress(data []byte) ([]byte, error) {
	if err := sc.checkLen(s2.DecodedLen(data)); err != nil {
		return nil, err
	}
	return s2.Decode(nil, data)
}

// Deflate compressor
type deflateCompressor struct {
	baseCompressor
	flateLevel int
}

func (dc *deflateCompressor) Compress(data []byte) ([]byte, error) {
	buf := pool.GetBuffer(pool.Medium)
	defer pool.PutBuffer(buf, pool.Medium)

	w, err := flate.NewWriter(buf, dc.flateLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return pool.CopyBytes(buf.Bytes()), nil
}

func (dc *deflateCompressor) Decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return dc.readAll(r)
}

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}
