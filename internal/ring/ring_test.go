// ring_test.go: staging buffer framing and wrap-safety tests
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package ring

import (
	"testing"

	"github.com/zachgenius/cnanolog/internal/binfile"
)

func TestReserveZeroLength(t *testing.T) {
	r := New(1024, 1)
	span := r.Reserve(0)
	if len(span) != 0 {
		t.Fatalf("expected zero-length span, got %d", len(span))
	}
}

func TestReserveCommitConsumeRoundTrip(t *testing.T) {
	r := New(1024, 1)

	payload := []byte("hello")
	need := binfile.EntryHeaderSize + len(payload)
	span := r.Reserve(need)
	if span == nil {
		t.Fatal("expected a non-nil reservation")
	}

	binfile.EntryHeader{LogID: 7, Timestamp: 42, DataLength: uint16(len(payload))}.Encode(span)
	copy(span[binfile.EntryHeaderSize:], payload)
	r.Commit()

	if got := r.Available(); got != int64(need) {
		t.Fatalf("Available() = %d, want %d", got, need)
	}

	hdr, ok := r.PeekHeader()
	if !ok {
		t.Fatal("PeekHeader reported no data available")
	}
	if hdr.LogID != 7 || hdr.Timestamp != 42 || hdr.DataLength != uint16(len(payload)) {
		t.Fatalf("unexpected header: %+v", hdr)
	}

	got := r.PeekPayload(hdr.DataLength)
	if string(got) != "hello" {
		t.Fatalf("PeekPayload() = %q, want %q", got, "hello")
	}

	r.Consume(int64(need))
	if r.Available() != 0 {
		t.Fatalf("expected buffer drained, Available() = %d", r.Available())
	}
}

func TestReserveFailsWhenTooLarge(t *testing.T) {
	r := New(64, 1)
	if span := r.Reserve(1024); span != nil {
		t.Fatal("expected nil reservation for an oversized request")
	}
}

func TestAdjustReservationShrinks(t *testing.T) {
	r := New(1024, 1)
	span := r.Reserve(20)
	if span == nil {
		t.Fatal("expected a reservation")
	}
	r.AdjustReservation(20, 8)
	r.Commit()

	if got := r.Available(); got != 8 {
		t.Fatalf("Available() after shrink = %d, want 8", got)
	}
}

func TestAdjustReservationAbandonedLeavesGhostSpace(t *testing.T) {
	r := New(1024, 1)
	r.Reserve(20)
	r.AdjustReservation(20, 0) // abandoned: spec says don't roll back write_pos
	r.Commit()

	// write_pos advanced by the full 20 bytes even though nothing of
	// substance was committed for this reservation; the region is ghost
	// space until the next wrap.
	if got := r.Available(); got != 20 {
		t.Fatalf("Available() = %d, want 20 (ghost space still counted)", got)
	}
}

func TestWrapRejectedWhenTailTooSmallAndReadPosTooClose(t *testing.T) {
	// Small buffer: first reservation near-fills it, second reservation
	// would have to wrap because the remaining tail can't fit the request.
	size := int64(binfile.EntryHeaderSize) + 32
	r := New(size, 1)

	first := r.Reserve(binfile.EntryHeaderSize + 10)
	if first == nil {
		t.Fatal("expected first reservation to succeed")
	}
	binfile.EntryHeader{LogID: 1, DataLength: 10}.Encode(first)
	r.Commit()

	// Drain the first entry so read_pos moves off 0 (only to 24, which is
	// still short of the safety margin the second Reserve checks).
	hdr, ok := r.PeekHeader()
	if !ok {
		t.Fatal("expected first entry available")
	}
	r.Consume(int64(binfile.EntryHeaderSize) + int64(hdr.DataLength))

	// read_pos is now small (consumed == reserved), so the wrap-safety
	// check (read_pos > n + SafetyMargin) will reject a wrap in this tiny
	// buffer; this exercises the rejection path rather than a successful
	// wrap, which needs read_pos to be comfortably ahead.
	second := r.Reserve(binfile.EntryHeaderSize + 10)
	if second != nil {
		t.Fatal("expected second reservation to be rejected by the wrap-safety check in a tiny buffer")
	}
}

func TestWrapSucceedsWhenReadPosIsFarEnoughAhead(t *testing.T) {
	r := New(256, 1)

	// Fill most of the buffer with one big reservation, commit, and
	// fully consume it so read_pos advances well past SafetyMargin.
	first := r.Reserve(200)
	if first == nil {
		t.Fatal("expected first reservation to succeed")
	}
	r.Commit()
	r.Consume(200)

	// Now the tail (256-200=56 bytes) can't fit a 64-byte request, so
	// Reserve must wrap. read_pos (200) is far past SafetyMargin (64).
	second := r.Reserve(64)
	if second == nil {
		t.Fatal("expected wrap to succeed when read_pos is far enough ahead")
	}

	hdr, ok := r.PeekHeader()
	if !ok {
		t.Fatal("expected the wrap marker to be visible to the consumer")
	}
	if !hdr.IsWrapMarker() {
		t.Fatalf("expected a wrap marker, got LogID=%d", hdr.LogID)
	}

	r.Consume(int64(binfile.EntryHeaderSize))
	r.WrapReadPos()

	// The new post-wrap reservation only becomes visible to the consumer
	// once it is committed.
	r.Commit()
	if got := r.Available(); got != 64 {
		t.Fatalf("Available() after wrap = %d, want 64", got)
	}
}

func TestMarkInactiveAndActive(t *testing.T) {
	r := New(64, 5)
	if !r.Active() {
		t.Fatal("expected a fresh ring to be active")
	}
	r.MarkInactive()
	if r.Active() {
		t.Fatal("expected MarkInactive to clear Active()")
	}
	if r.ThreadID() != 5 {
		t.Fatalf("ThreadID() = %d, want 5", r.ThreadID())
	}
}
