package serialisation

import (
	"fmt"

	"github.com/ajitpratap0/graphkv/pkg/compression"
)

// Compressed compresses the payload of another serialiser.
type Compressed struct {
	inner Serialiser
	pool  *compression.CompressorPool
}

// NewCompressed wraps inner with the given compression configuration.
func NewCompressed(inner Serialiser, config *compression.Config) (*Compressed, error) {
	if inner == nil {
		return nil, fmt.Errorf("compressed serialiser needs an inner serialiser")
	}
	cp, err := compression.NewCompressorPool(config)
	if err != nil {
		return nil, err
	}
	return &Compressed{inner: inner, pool: cp}, nil
}

func (s *Compressed) Name() string {
	return fmt.Sprintf("compressed(%s,%s)", s.pool.Algorithm(), s.inner.Name())
}

// Inner returns the wrapped serialiser.
func (s *Compressed) Inner() Serialiser { return s.inner }

func (s *Compressed) Serialise(v interface{}) ([]byte, error) {
	raw, err := s.inner.Serialise(v)
	if err != nil {
		return nil, err
	}
	b, err := s.pool.Compress(raw)
	if err != nil {
		return nil, wrapError(s, err, "compress")
	}
	return b, nil
}

func (s *Compressed) Deserialise(b []byte) (interface{}, error) {
	raw, err := s.pool.Decompress(b)
	if err != nil {
		return nil, wrapError(s, err, "decompress")
	}
	if len(raw) == 0 {
		return s.inner.DeserialiseEmpty()
	}
	return s.inner.Deserialise(raw)
}

func (s *Compressed) DeserialiseEmpty() (interface{}, error) {
	return s.inner.DeserialiseEmpty()
}

func (s *Compressed) SerialiseNull() []byte {
	return s.inner.SerialiseNull()
}

func (s *Compressed) Coerce(v interface{}) (interface{}, error) {
	return Coerce(s.inner, v)
}
