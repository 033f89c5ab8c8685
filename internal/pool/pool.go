// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool provides typed [sync.Pool] wrappers and a [*bytes.Buffer] pool.
package pool

import (
	"bytes"
	"sync"
)

// maxPooledSize keeps oversized buffers from pinning memory.
const maxPooledSize = 64 << 10

// Resetter is implemented by pooled values that are reset on Put.
type Resetter interface {
	Reset()
}

// Pool is a strongly typed [sync.Pool].
type Pool[T any] struct {
	p sync.Pool
}

// New returns a Pool that calls fn when empty.
func New[T any](fn func() T) *Pool[T] {
	return &Pool[T]{
		p: sync.Pool{
			New: func() any { return fn() },
		},
	}
}

// Get gets a T from the pool, or creates a new one if the pool is empty.
func (p *Pool[T]) Get() T {
	return p.p.Get().(T)
}

// Put resets x when it is a Resetter and returns it to the pool.
func (p *Pool[T]) Put(x T) {
	if r, ok := any(x).(Resetter); ok {
		r.Reset()
	}
	p.p.Put(x)
}

var buffers = New(func() *bytes.Buffer { return new(bytes.Buffer) })

// GetBuffer returns an empty buffer.
func GetBuffer() *bytes.Buffer {
	return buffers.Get()
}

// PutBuffer returns buf to the pool. Buffers grown past 64KiB are dropped.
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledSize {
		return
	}
	buffers.Put(buf)
}
