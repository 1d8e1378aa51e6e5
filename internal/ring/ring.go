// ring.go: per-thread single-producer/single-consumer staging buffer
//
// This is the hot-path data structure: the producing thread reserves a
// span, packs its argument payload directly into it, and commits; the
// writer loop is the sole consumer, draining buffers round-robin. The
// only synchronization between the two sides is the release-store /
// acquire-load pair on `committed` (spec §4.3, §5) — read_pos is made an
// atomic field too (unlike the plain `usize` in spec §3's data model) so
// that the producer's wrap-safety check, which reads it, is race-free
// under the Go memory model; this changes no observable behavior since
// read_pos is still written by the consumer alone (see DESIGN.md).
//
// Cache layout follows the teacher's padded-atomic idiom
// (zephyroslite.AtomicPaddedInt64, notus.AtomicPaddedInt64): the
// producer-only write_pos, the shared committed cursor, and the
// consumer-only read_pos each get their own cache line so a producer
// write never invalidates a line the consumer is polling, or vice versa.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package ring

import (
	"github.com/zachgenius/cnanolog/internal/binfile"
)

// SafetyMargin is the minimum distance the consumer must have already
// read past a prospective wrap target before the producer is allowed to
// overwrite that region (spec §4.3).
const SafetyMargin = 64

// DefaultSize is the default staging buffer capacity (spec §3: 12 MiB).
const DefaultSize = 12 * 1024 * 1024

// Ring is a fixed-size byte-addressed SPSC ring carrying framed,
// uncompressed entries. Exactly one producer (the owning thread) calls
// Reserve/AdjustReservation/Commit; exactly one consumer (the writer
// loop) calls Available/PeekHeader/PeekPayload/Consume/WrapReadPos.
type Ring struct {
	data []byte
	size int64

	// Producer-only.
	writePos int64
	_        [64]byte

	// Shared: release-store by the producer, acquire-load by the consumer.
	committed PaddedInt64
	_         [64]byte

	// Consumer-owned, but read (never written) by the producer during the
	// wrap-safety check; see package doc for why this is atomic in Go.
	readPos PaddedInt64

	threadID uint32
	active   int32 // 1 = producer thread still live, 0 = exited (drain continues regardless)
}

// New allocates a Ring of the given size for threadID. size must be large
// enough to hold at least one EntryHeader.
func New(size int64, threadID uint32) *Ring {
	if size <= 0 {
		size = DefaultSize
	}
	r := &Ring{
		data:     make([]byte, size),
		size:     size,
		threadID: threadID,
		active:   1,
	}
	return r
}

// ThreadID returns the owning producer thread's identifier.
func (r *Ring) ThreadID() uint32 { return r.threadID }

// MarkInactive records that the owning thread has exited. The writer
// loop keeps draining an inactive buffer to exhaustion; Go has no
// goroutine-exit hook, so callers that track thread lifetime explicitly
// (e.g. via runtime.AddCleanup or an explicit Close) call this themselves.
func (r *Ring) MarkInactive() { r.active = 0 }

// Active reports whether the owning thread is still considered live.
func (r *Ring) Active() bool { return r.active != 0 }

// Reserve allocates n bytes for the producer to pack an entry into,
// returning a slice of exactly n bytes, or nil if there is no room. A
// zero-byte reservation is a no-op (spec §4.3 edge case).
func (r *Ring) Reserve(n int) []byte {
	if n == 0 {
		return r.data[r.writePos:r.writePos]
	}
	sz := int64(n)
	if sz > r.size {
		return nil
	}

	if r.writePos+sz <= r.size {
		start := r.writePos
		r.writePos += sz
		return r.data[start : start+sz]
	}

	// Tail doesn't fit; attempt to wrap. The marker itself must always fit
	// in the remaining tail space.
	if r.size-r.writePos < binfile.EntryHeaderSize {
		return nil
	}

	rp := r.readPos.Load()
	if rp <= sz+SafetyMargin {
		return nil
	}

	var markerBuf [binfile.EntryHeaderSize]byte
	binfile.EntryHeader{LogID: binfile.WrapMarker, Timestamp: 0, DataLength: 0}.Encode(markerBuf[:])
	copy(r.data[r.writePos:], markerBuf[:])
	r.committed.Store(r.writePos + binfile.EntryHeaderSize)

	r.writePos = sz
	return r.data[0:sz]
}

// AdjustReservation shrinks the most recent reservation from reserved
// bytes down to actual bytes once the real payload size is known (used
// when a pessimistic reservation, e.g. for a string argument, turns out
// to need less space). When actual is 0 the reservation is abandoned in
// place rather than rolled back: the span becomes "ghost" space that is
// reclaimed only the next time the producer wraps (spec §4.3, §9 open
// question — see DESIGN.md for why this implementation keeps that
// behavior instead of always rolling back).
func (r *Ring) AdjustReservation(reserved, actual int) {
	if actual <= 0 {
		return
	}
	if actual > reserved {
		actual = reserved
	}
	r.writePos -= int64(reserved - actual)
}

// Commit publishes every byte written since the last Commit by
// release-storing the producer's current write_pos into committed.
func (r *Ring) Commit() {
	r.committed.Store(r.writePos)
}

// Available returns the number of bytes the consumer may read starting
// at read_pos without crossing an uncommitted boundary. When committed
// has wrapped behind read_pos (a wrap is pending), it returns the
// distance to the tail of the buffer instead, so the consumer reads up
// to the wrap marker (spec §4.3).
func (r *Ring) Available() int64 {
	committed := r.committed.Load()
	rp := r.readPos.Load()
	if committed >= rp {
		return committed - rp
	}
	return r.size - rp
}

// PeekHeader decodes, without consuming, the EntryHeader at the current
// read position. ok is false if fewer than EntryHeaderSize bytes are
// available.
func (r *Ring) PeekHeader() (hdr binfile.EntryHeader, ok bool) {
	if r.Available() < binfile.EntryHeaderSize {
		return binfile.EntryHeader{}, false
	}
	rp := r.readPos.Load()
	return binfile.DecodeEntryHeader(r.data[rp : rp+binfile.EntryHeaderSize]), true
}

// PeekPayload returns, without consuming, the n bytes immediately after
// the current header.
func (r *Ring) PeekPayload(n uint16) []byte {
	rp := r.readPos.Load()
	start := rp + binfile.EntryHeaderSize
	return r.data[start : start+int64(n)]
}

// Consume advances read_pos by n bytes.
func (r *Ring) Consume(n int64) {
	r.readPos.Store(r.readPos.Load() + n)
}

// WrapReadPos resets read_pos to 0 after the consumer has processed a
// wrap marker, realigning it with the producer's new lap. If committed
// was still sitting at the tail (the producer has not yet committed any
// bytes of the new lap), it is snapped to 0 too, so Available reports 0
// for the new lap instead of the stale tail distance until the producer
// actually commits (spec §4.3). The reset uses a compare-and-swap rather
// than a plain store: committed is otherwise producer-owned, so this only
// takes effect when the producer hasn't raced ahead and committed new-lap
// bytes already — in that case the CAS simply fails and the producer's
// real committed value is left untouched.
func (r *Ring) WrapReadPos() {
	tail := r.readPos.Load()
	r.committed.CompareAndSwap(tail, 0)
	r.readPos.Store(0)
}
