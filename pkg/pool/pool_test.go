package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolGetPutResets(t *testing.T) {
	p := New(
		func() []byte { return make([]byte, 0, 8) },
		nil,
	)
	reset := 0
	p.reset = func([]byte) { reset++ }

	b := p.Get()
	assert.Equal(t, 0, len(b))
	p.Put(b)
	assert.Equal(t, 1, reset)

	allocated, inUse, hits, _ := p.Stats()
	assert.GreaterOrEqual(t, allocated, int64(1))
	assert.Equal(t, int64(0), inUse)
	assert.Equal(t, int64(1), hits)
}

func TestBufferPoolReturnsEmptyBuffers(t *testing.T) {
	buf := GetBuffer(Small)
	buf.WriteString("row-key")
	PutBuffer(buf, Small)

	again := GetBuffer(Small)
	defer PutBuffer(again, Small)
	assert.Equal(t, 0, again.Len())
}

func TestPutBufferDropsOversized(t *testing.T) {
	_, before, _, _ := BufferStats(Small)

	buf := GetBuffer(Small)
	buf.Grow(maxRetained[Small] * 2)
	PutBuffer(buf, Small)

	_, after, _, _ := BufferStats(Small)
	assert.Equal(t, before, after)
}

func TestPutBufferNil(t *testing.T) {
	assert.NotPanics(t, func() { PutBuffer(nil, Medium) })
}

func TestBucketFallsBackToSmall(t *testing.T) {
	buf := GetBuffer(BufferSize(42))
	assert.IsType(t, &bytes.Buffer{}, buf)
	PutBuffer(buf, BufferSize(42))
}

func TestCopyBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	dst := CopyBytes(src)
	src[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, dst)

	empty := CopyBytes(nil)
	assert.NotNil(t, empty)
	assert.Len(t, empty, 0)
}
