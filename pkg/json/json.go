// Package json wraps goccy/go-json for graphkv's JSON surfaces: the JSON
// property serialiser, the element wire form and the CLI.
package json

import (
	"bytes"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/graphkv/pkg/pool"
)

// Number is a JSON number literal kept as text.
type Number = gojson.Number

// RawMessage is a raw encoded JSON value.
type RawMessage = gojson.RawMessage

// Delim is one of the array or object delimiters returned by Decoder.Token.
type Delim = gojson.Delim

// Marshal is a drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a drop-in replacement for json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// MarshalCompact marshals v without HTML escaping and without the trailing
// newline an Encoder adds. Stored payloads use it so the bytes for equal
// values are identical.
func MarshalCompact(v interface{}) ([]byte, error) {
	buf := pool.GetBuffer(pool.Medium)
	defer pool.PutBuffer(buf, pool.Medium)

	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return pool.CopyBytes(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})), nil
}

// UnmarshalUseNumber decodes data into v keeping numbers as Number so
// integers survive untouched.
func UnmarshalUseNumber(data []byte, v interface{}) error {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// NewDecoder returns a decoder that keeps numbers as Number.
func NewDecoder(r io.Reader) *gojson.Decoder {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// StreamingEncoder writes values one at a time, either as a JSON array or
// as line-delimited JSON.
type StreamingEncoder struct {
	writer      io.Writer
	encoder     *gojson.Encoder
	firstRecord bool
	isArray     bool
	pretty      bool
	err         error
}

// NewStreamingEncoder creates a new streaming encoder
func NewStreamingEncoder(w io.Writer, isArray bool) *StreamingEncoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)

	se := &StreamingEncoder{
		writer:      w,
		encoder:     enc,
		firstRecord: true,
		isArray:     isArray,
	}
	if isArray {
		se.write([]byte{'['})
	}
	return se
}

// SetPretty enables pretty printing
func (se *StreamingEncoder) SetPretty(pretty bool, indent string) {
	se.pretty = pretty
	if pretty {
		se.encoder.SetIndent("", indent)
	}
}

func (se *StreamingEncoder) write(b []byte) {
	if se.err != nil {
		return
	}
	_, se.err = se.writer.Write(b)
}

// Encode encodes a single value
func (se *StreamingEncoder) Encode(v interface{}) error {
	if se.isArray {
		if !se.firstRecord {
			se.write([]byte{','})
		}
		se.firstRecord = false
	}
	if se.err != nil {
		return se.err
	}
	// Encode terminates every value with a newline, which keeps array
	// output readable and line-delimited output valid.
	se.err = se.encoder.Encode(v)
	return se.err
}

// Close finalizes the encoding
func (se *StreamingEncoder) Close() error {
	if se.isArray {
		if se.firstRecord && se.pretty {
			se.write([]byte{'\n'})
		}
		se.write([]byte{']', '\n'})
	}
	return se.err
}
