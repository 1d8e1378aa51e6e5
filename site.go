// site.go: producer handles and cached call-site handles
//
// Spec §3 models the staging buffer as per-OS-thread state reached
// implicitly via thread-local storage; idiomatic Go has no public
// goroutine-local storage, so this port makes that ownership explicit
// instead: a *Handle is a single producer's staging buffer, obtained once
// (typically per goroutine, mirroring the original's per-thread model)
// and reused for every call that goroutine makes. *Site additionally
// caches a call site's LogID and argument types the way spec §4.1
// describes ("caller caches the result locally, one cache per call
// site"), so repeat logging from the same site skips the registry
// lookup entirely. See DESIGN.md for why this redesign was chosen over
// simulating thread-local storage.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"sync/atomic"

	"github.com/zachgenius/cnanolog/internal/binfile"
	"github.com/zachgenius/cnanolog/internal/ring"
)

// Handle is one producer's staging buffer. It is not safe for concurrent
// use by more than one goroutine at a time, matching the ring's single-
// producer contract (spec §3, §5).
type Handle struct {
	logger *Logger
	ring   *ring.Ring
}

// NewHandle registers a fresh staging buffer with the active engine and
// returns a handle bound to it. Call once per producing goroutine and
// reuse the result; Handle is cheap to hold but not to recreate, since
// each one consumes a MaxBuffers slot until the engine shuts down.
func NewHandle() (*Handle, error) {
	l := activeLogger.Load()
	if l == nil {
		return nil, NewEngineError(ErrCodeNotInitialized, "cnanolog was not initialized")
	}
	return l.newHandle()
}

// Close marks h's buffer inactive. The writer loop keeps draining any
// bytes already committed; no new Reserve calls are expected afterward
// (spec §4.8: buffers outlive the producer thread that created them).
func (h *Handle) Close() {
	h.ring.MarkInactive()
}

// Log packs and commits one entry using the given call site identity
// directly, registering it on first use. Prefer Prepare for a hot call
// site: Log re-derives the argument-type vector and performs a registry
// lookup (amortized to a single RWMutex read after the first call) on
// every invocation.
func (h *Handle) Log(level Level, file string, line uint32, format string, args ...ArgValue) error {
	site, err := h.logger.registry.register(file, line, format, uint8(level), argTypesOf(args))
	if err != nil {
		h.logger.drop()
		return err
	}
	return h.logger.emit(h.ring, site, args)
}

// Site is a call site's cached LogID and argument-type vector, bound to
// one Handle. Obtain it once (e.g. as a package-level var initialized
// lazily with sync.Once, the same caching idiom the spec's reference
// implementation uses) and call Log repeatedly without touching the
// registry again.
type Site struct {
	handle *Handle
	site   *binfile.LogSite
}

// Prepare registers a call site against h's engine and returns a *Site
// that caches the resulting LogID for fast repeat logging.
func (h *Handle) Prepare(level Level, file string, line uint32, format string, argTypes ...ArgType) (*Site, error) {
	site, err := h.logger.registry.register(file, line, format, uint8(level), argTypes)
	if err != nil {
		return nil, err
	}
	return &Site{handle: h, site: site}, nil
}

// Log packs and commits one entry for s's call site. args must match the
// argument types s.Prepare was built with, in order and count; a
// mismatch is a programmer error and returns ErrCodeRegistryMismatch
// rather than corrupting the staging buffer.
func (s *Site) Log(args ...ArgValue) error {
	if len(args) != int(s.site.NumArgs) {
		s.handle.logger.drop()
		return NewEngineError(ErrCodeRegistryMismatch, "argument count does not match the prepared call site")
	}
	for i, a := range args {
		if a.typ != s.site.ArgTypes[i] {
			s.handle.logger.drop()
			return NewEngineError(ErrCodeRegistryMismatch, "argument type does not match the prepared call site")
		}
	}
	return s.handle.logger.emit(s.handle.ring, s.site, args)
}

// emit packs args for site into r and commits them, or counts a drop if
// the staging buffer has no room (spec §4.3 edge case: Reserve failure is
// a silent drop, never a blocking wait).
func (l *Logger) emit(r *ring.Ring, site *binfile.LogSite, args []ArgValue) error {
	payloadLen := packedSize(args)
	if payloadLen > binfile.MaxEntryPayload {
		l.drop()
		return NewEngineError(ErrCodeEntryTooLarge, "entry exceeds the maximum on-wire size")
	}
	need := binfile.EntryHeaderSize + payloadLen

	span := r.Reserve(need)
	if span == nil {
		l.drop()
		return nil
	}

	ts := elapsedNanos(l.anchorMonotonic)
	binfile.EntryHeader{LogID: site.LogID, Timestamp: ts, DataLength: uint16(payloadLen)}.Encode(span)
	pack(span[binfile.EntryHeaderSize:], args)
	r.Commit()

	l.count()
	return nil
}

func (l *Logger) count() { atomic.AddInt64(&l.entriesLogged, 1) }
func (l *Logger) drop()  { atomic.AddInt64(&l.entriesDropped, 1) }
