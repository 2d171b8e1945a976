package rowkey

import (
	"bytes"

	"github.com/ajitpratap0/graphkv/pkg/escape"
)

// ByteEntity is the default layout. Every row ends in a flag byte, so
// entities and edges of one vertex sort together but never collide:
//
//	entity  v 0x00 0x01
//	edge    a 0x00 F 0x00 b 0x00 F
type ByteEntity struct{}

func (ByteEntity) Name() string { return "byteentity" }

func (ByteEntity) EntityRow(vertex []byte) []byte {
	return buildRow(func(row []byte) []byte {
		row = escape.AppendEscaped(row, vertex)
		return append(row, escape.Delimiter, FlagEntity)
	})
}

func (ByteEntity) EdgeRows(source, destination []byte, directed bool) (primary, secondary []byte) {
	forward, reverse := edgeFlags(directed)
	primary = byteEntityEdgeRow(source, destination, forward)
	if IsSelfEdge(source, destination) {
		return primary, nil
	}
	return primary, byteEntityEdgeRow(destination, source, reverse)
}

func byteEntityEdgeRow(first, second []byte, flag byte) []byte {
	return buildRow(func(row []byte) []byte {
		row = escape.AppendEscaped(row, first)
		row = append(row, escape.Delimiter, flag, escape.Delimiter)
		row = escape.AppendEscaped(row, second)
		return append(row, escape.Delimiter, flag)
	})
}

func (ByteEntity) IsEntity(row []byte) bool {
	return len(row) > 0 && row[len(row)-1] == FlagEntity
}

func (ByteEntity) EntityVertex(row []byte) ([]byte, error) {
	n := len(row)
	if n < 2 || row[n-1] != FlagEntity || row[n-2] != escape.Delimiter {
		return nil, malformed("entity row must end in 0x00 0x01")
	}
	body := row[:n-2]
	if bytes.IndexByte(body, escape.Delimiter) >= 0 {
		return nil, malformed("entity row holds more than one vertex")
	}
	return escape.Unescape(body), nil
}

func (ByteEntity) ParseEdgeRow(row []byte, opts Options) ([]byte, []byte, bool, error) {
	if len(row) == 0 {
		return nil, nil, false, malformed("empty edge row")
	}
	// the trailing flag may be any byte, so delimiters are searched before it
	var pos [3]int
	found := 0
	for i := 0; i < len(row)-1; i++ {
		if row[i] != escape.Delimiter {
			continue
		}
		if found == len(pos) {
			return nil, nil, false, malformed("edge row has more than 3 delimiters")
		}
		pos[found] = i
		found++
	}
	if found != len(pos) {
		return nil, nil, false, malformed("edge row has %d delimiters, want 3", found)
	}
	// a 0x00 F 0x00 b 0x00 F
	if pos[1] != pos[0]+2 || pos[2] != len(row)-2 {
		return nil, nil, false, malformed("misplaced delimiters in edge row")
	}
	flag := row[len(row)-1]
	if row[pos[0]+1] != flag {
		return nil, nil, false, malformed("edge row flags 0x%02x and 0x%02x differ", row[pos[0]+1], flag)
	}

	first := escape.Unescape(row[:pos[0]])
	second := escape.Unescape(row[pos[1]+1 : pos[2]])
	return orient(first, second, flag, opts)
}
