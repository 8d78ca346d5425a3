// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package bufferpool

import (
	"bytes"
	"sync"
)

// ChunkSize is the size of the byte chunks handed out by Chunks.
const ChunkSize = 256 * 1024

// Buffers is the shared pool of growable buffers.
var Buffers = New()

// Chunks is the shared pool of fixed-size chunks used for streaming copies.
var Chunks = NewChunkPool(ChunkSize)

// BufferPool recycles bytes.Buffer values.
type BufferPool struct {
	pool sync.Pool
}

// New creates a BufferPool
func New() *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				return new(bytes.Buffer)
			},
		},
	}
}

// Get returns an empty buffer
func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put resets buf and returns it to the pool
func (p *BufferPool) Put(buf *bytes.Buffer) {
	buf.Reset()
	p.pool.Put(buf)
}

// ChunkPool recycles fixed-size byte slices.
type ChunkPool struct {
	size int
	pool sync.Pool
}

// NewChunkPool creates a ChunkPool handing out slices of the given size
func NewChunkPool(size int) *ChunkPool {
	p := &ChunkPool{size: size}
	p.pool.New = func() any {
		chunk := make([]byte, size)
		return &chunk
	}
	return p
}

// Get returns a chunk of the pool's size
func (p *ChunkPool) Get() *[]byte {
	return p.pool.Get().(*[]byte)
}

// Put returns a chunk to the pool. Chunks of another size are dropped.
func (p *ChunkPool) Put(chunk *[]byte) {
	if chunk == nil || cap(*chunk) != p.size {
		return
	}
	*chunk = (*chunk)[:p.size]
	p.pool.Put(chunk)
}
