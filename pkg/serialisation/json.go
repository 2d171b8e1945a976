package serialisation

import (
	"github.com/ajitpratap0/graphkv/pkg/json"
)

// JSON stores any JSON-representable value as compact JSON text. Decoded
// numbers are json.Number, objects map[string]interface{}.
type JSON struct{ empty }

func (s JSON) Name() string { return "json" }

func (s JSON) Serialise(v interface{}) ([]byte, error) {
	b, err := json.MarshalCompact(v)
	if err != nil {
		return nil, wrapError(s, err, "encode")
	}
	return b, nil
}

func (s JSON) Deserialise(b []byte) (interface{}, error) {
	var v interface{}
	if err := json.UnmarshalUseNumber(b, &v); err != nil {
		return nil, wrapError(s, err, "decode")
	}
	return v, nil
}
