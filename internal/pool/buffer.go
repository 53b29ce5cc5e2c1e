// Package pool provides reusable copy buffers for streaming object bodies.
//
// Object bodies are copied into caller sinks through io.CopyBuffer; pooling
// the buffers keeps repeated downloads from allocating a fresh buffer per call.
package pool

import (
	"io"
	"sync"
)

const (
	// SmallBufferSize is used for bodies known to be small (4KB)
	SmallBufferSize = 4 * 1024
	// MediumBufferSize is the default copy buffer (64KB)
	MediumBufferSize = 64 * 1024
	// LargeBufferSize is used for bodies of at least one megabyte (1MB)
	LargeBufferSize = 1024 * 1024
)

// BufferPool manages reusable buffers of different sizes to reduce allocations.
type BufferPool struct {
	small  *sync.Pool
	medium *sync.Pool
	large  *sync.Pool
}

func newSizedPool(size int) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			buf := make([]byte, size)
			return &buf
		},
	}
}

// NewBufferPool creates a new buffer pool with default sizes.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small:  newSizedPool(SmallBufferSize),
		medium: newSizedPool(MediumBufferSize),
		large:  newSizedPool(LargeBufferSize),
	}
}

// GetBuffer returns a full-length buffer suited to a body of the given size.
// A non-positive size means unknown and yields a medium buffer.
// The caller is responsible for calling PutBuffer to return the buffer to the pool.
func (bp *BufferPool) GetBuffer(size int64) []byte {
	var p *sync.Pool
	switch {
	case size <= 0:
		p = bp.medium
	case size <= SmallBufferSize:
		p = bp.small
	case size < LargeBufferSize:
		p = bp.medium
	default:
		p = bp.large
	}
	bufPtr := p.Get().(*[]byte)
	return (*bufPtr)[:cap(*bufPtr)]
}

// PutBuffer returns a buffer to the pool matching its capacity.
// Buffers of any other capacity are dropped.
func (bp *BufferPool) PutBuffer(buf []byte) {
	buf = buf[:cap(buf)]
	switch cap(buf) {
	case SmallBufferSize:
		bp.small.Put(&buf)
	case MediumBufferSize:
		bp.medium.Put(&buf)
	case LargeBufferSize:
		bp.large.Put(&buf)
	}
}

// Copy streams src into dst using a pooled buffer sized by sizeHint.
func (bp *BufferPool) Copy(dst io.Writer, src io.Reader, sizeHint int64) (int64, error) {
	buf := bp.GetBuffer(sizeHint)
	defer bp.PutBuffer(buf)
	return io.CopyBuffer(dst, src, buf)
}

var globalBufferPool = NewBufferPool()

// Copy streams src into dst using a buffer from the global pool.
func Copy(dst io.Writer, src io.Reader, sizeHint int64) (int64, error) {
	return globalBufferPool.Copy(dst, src, sizeHint)
}
