package rowkey

import (
	"bytes"

	"github.com/ajitpratap0/graphkv/pkg/escape"
)

// Classic is the compact layout. Entity rows hold no delimiter at all:
//
//	entity  v
//	edge    a 0x00 b 0x00 F
type Classic struct{}

func (Classic) Name() string { return "classic" }

func (Classic) EntityRow(vertex []byte) []byte {
	return escape.Escape(vertex)
}

func (Classic) EdgeRows(source, destination []byte, directed bool) (primary, secondary []byte) {
	forward, reverse := edgeFlags(directed)
	primary = classicEdgeRow(source, destination, forward)
	if IsSelfEdge(source, destination) {
		return primary, nil
	}
	return primary, classicEdgeRow(destination, source, reverse)
}

func classicEdgeRow(first, second []byte, flag byte) []byte {
	return buildRow(func(row []byte) []byte {
		row = escape.AppendEscaped(row, first)
		row = append(row, escape.Delimiter)
		row = escape.AppendEscaped(row, second)
		return append(row, escape.Delimiter, flag)
	})
}

func (Classic) IsEntity(row []byte) bool {
	return bytes.IndexByte(row, escape.Delimiter) < 0
}

func (Classic) EntityVertex(row []byte) ([]byte, error) {
	if bytes.IndexByte(row, escape.Delimiter) >= 0 {
		return nil, malformed("entity row holds a delimiter")
	}
	return escape.Unescape(row), nil
}

func (Classic) ParseEdgeRow(row []byte, opts Options) ([]byte, []byte, bool, error) {
	n := len(row)
	if n < 3 || row[n-2] != escape.Delimiter {
		return nil, nil, false, malformed("edge row must end in 0x00 and a flag")
	}
	body := row[:n-2]
	split := bytes.IndexByte(body, escape.Delimiter)
	if split < 0 || bytes.IndexByte(body[split+1:], escape.Delimiter) >= 0 {
		return nil, nil, false, malformed("edge row must hold exactly two vertices")
	}
	first := escape.Unescape(body[:split])
	second := escape.Unescape(body[split+1:])
	return orient(first, second, row[n-1], opts)
}
