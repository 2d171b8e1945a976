// Package pool provides object pooling for graphkv's encode paths.
//
// Row keys are built in Small buffers and property blocks in Medium ones.
// Compressed values are inflated into Large buffers. Callers always keep an
// owned copy, so no pooled memory ever escapes into a Record.
//
// Example usage:
//
//	buf := pool.GetBuffer(pool.Small)
//	defer pool.PutBuffer(buf, pool.Small)
//
//	buf.Write(prefix)
//	buf.Write(payload)
//	out := pool.CopyBytes(buf.Bytes())
package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with additional features like statistics tracking
// and automatic reset functionality. The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
		misses    int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The new function is called when the pool is empty and a new object is needed.
// The reset function is called before returning an object to the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		atomic.AddInt64(&p.stats.misses, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse, resetting it first when a
// reset function was provided.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns allocation count, objects in use, Get calls and pool misses.
func (p *Pool[T]) Stats() (allocated, inUse, hits, misses int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits),
		atomic.LoadInt64(&p.stats.misses)
}

// BufferSize selects a buffer bucket.
type BufferSize int

const (
	Small  BufferSize = iota // row keys, qualifiers (< 256B)
	Medium                   // values (< 16KB)
	Large                    // bulk value blobs
)

// maxRetained caps the capacity of buffers returned to a bucket so one
// oversized value does not pin memory forever.
var maxRetained = [...]int{4 * 1024, 64 * 1024, 1024 * 1024}

var bufferPools = [...]*Pool[*bytes.Buffer]{
	newBufferPool(256),
	newBufferPool(16 * 1024),
	newBufferPool(64 * 1024),
}

func newBufferPool(capacity int) *Pool[*bytes.Buffer] {
	return New(
		func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, capacity)) },
		func(b *bytes.Buffer) { b.Reset() },
	)
}

func bucket(size BufferSize) int {
	if size < Small || size > Large {
		return int(Small)
	}
	return int(size)
}

// GetBuffer returns an empty buffer from the bucket for size.
func GetBuffer(size BufferSize) *bytes.Buffer {
	return bufferPools[bucket(size)].Get()
}

// PutBuffer returns buf to its bucket. Nil buffers are ignored.
func PutBuffer(buf *bytes.Buffer, size BufferSize) {
	if buf == nil {
		return
	}
	i := bucket(size)
	if buf.Cap() > maxRetained[i] {
		// let the GC have it, but keep the stats balanced
		atomic.AddInt64(&bufferPools[i].stats.inUse, -1)
		return
	}
	bufferPools[i].Put(buf)
}

// BufferStats returns the statistics of the bucket for size.
func BufferStats(size BufferSize) (allocated, inUse, hits, misses int64) {
	return bufferPools[bucket(size)].Stats()
}

// CopyBytes returns an owned copy of b. A nil or empty input yields an
// empty, non-nil slice.
func CopyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
