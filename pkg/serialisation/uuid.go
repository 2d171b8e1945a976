package serialisation

import (
	"github.com/google/uuid"
)

// UUID stores a uuid.UUID as its 16 raw bytes.
type UUID struct{ empty }

func (s UUID) Name() string { return "uuid" }

func (s UUID) Serialise(v interface{}) ([]byte, error) {
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil, typeError(s, v)
	}
	b, _ := id.MarshalBinary()
	return b, nil
}

func (s UUID) Deserialise(b []byte) (interface{}, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, wrapError(s, err, "decode")
	}
	return id, nil
}

func (s UUID) Coerce(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case string:
		id, err := uuid.Parse(x)
		if err != nil {
			return nil, wrapError(s, err, "coerce")
		}
		return id, nil
	default:
		return nil, typeError(s, v)
	}
}
