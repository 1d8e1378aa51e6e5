// pool.go: scratch buffer pool for the writer loop's compression pass
//
// The writer loop needs a scratch []byte per drained entry to hold the
// varint-compressed form before it goes to the file sink; pooling that
// scratch buffer avoids an allocation per log entry on the writer's hot
// path. Adapted from the teacher's internal/bufferpool/pool.go, unchanged
// in shape beyond translating its comments to English.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package bufferpool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool statistics for monitoring and debugging.
var (
	getCount   int64
	putCount   int64
	allocCount int64
	dropCount  int64
)

const (
	// MaxBufferSize is the maximum buffer capacity before dropping.
	// Buffers larger than this are discarded to prevent memory bloat.
	MaxBufferSize = 1 << 20 // 1 MiB

	// DefaultCapacity is the initial capacity hint for new buffers,
	// sized for a typical compressed entry rather than a raw one.
	DefaultCapacity = 512
)

// pool is the global sync.Pool backing Get/Put.
var pool = sync.Pool{
	New: func() any {
		atomic.AddInt64(&allocCount, 1)
		buf := bytes.NewBuffer(make([]byte, 0, DefaultCapacity))
		return buf
	},
}

// Get returns a clean *bytes.Buffer from the pool, ready for immediate use.
func Get() *bytes.Buffer {
	atomic.AddInt64(&getCount, 1)
	b := pool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// Put returns b to the pool. A buffer that grew past MaxBufferSize has its
// backing array replaced rather than retained, so one oversized entry
// doesn't inflate the pool's steady-state footprint.
func Put(b *bytes.Buffer) {
	if b == nil {
		return
	}

	atomic.AddInt64(&putCount, 1)

	if b.Cap() > MaxBufferSize {
		atomic.AddInt64(&dropCount, 1)
		*b = *bytes.NewBuffer(make([]byte, 0, DefaultCapacity))
	}

	b.Reset()
	pool.Put(b)
}

// Stats is a snapshot of pool activity, returned by this package's
// GetStats; cnanolog.GetStats does not include it.
type Stats struct {
	Gets        int64
	Puts        int64
	Allocations int64
	Drops       int64
}

// GetStats returns a snapshot of current pool statistics.
func GetStats() Stats {
	return Stats{
		Gets:        atomic.LoadInt64(&getCount),
		Puts:        atomic.LoadInt64(&putCount),
		Allocations: atomic.LoadInt64(&allocCount),
		Drops:       atomic.LoadInt64(&dropCount),
	}
}

// ResetStats resets all pool statistics to zero.
func ResetStats() {
	atomic.StoreInt64(&getCount, 0)
	atomic.StoreInt64(&putCount, 0)
	atomic.StoreInt64(&allocCount, 0)
	atomic.StoreInt64(&dropCount, 0)
}
