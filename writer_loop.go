// writer_loop.go: the single background consumer draining every ring
//
// Mirrors spec §4.6's iteration algorithm: round-robin scan over every
// registered buffer, compress-and-write whatever is committed, flush on a
// batch-size or time trigger, check rotation, and sleep briefly when a
// full pass finds nothing. This is the sole reader of each ring and the
// sole writer of the binfile.Writer (spec §5 "the file is touched only by
// the writer"), the same single-goroutine-owns-the-sink shape as the
// teacher's own background flush loop.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package cnanolog

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/zachgenius/cnanolog/internal/binfile"
	"github.com/zachgenius/cnanolog/internal/bufferpool"
	"github.com/zachgenius/cnanolog/internal/ring"
	"github.com/zachgenius/cnanolog/internal/varint"
)

func (l *Logger) runWriterLoop() {
	defer close(l.doneCh)

	idle := l.cfg.IdleStrategy
	if idle == nil {
		idle = ring.NewSleepingIdleStrategy(l.cfg.IdlePause, 1000)
	}

	var sinceFlush int
	lastFlush := time.Now()

	for {
		select {
		case <-l.shutdownCh:
			l.drainToExhaustion()
			l.flushLocked()
			return
		case cpu := <-l.affinityCh:
			applyWriterAffinity(cpu)
		default:
		}

		atomic.AddInt64(&l.backgroundWakeups, 1)

		drained := l.scanOnce()
		sinceFlush += drained

		if drained == 0 {
			idle.Idle()
		} else {
			idle.Reset()
		}

		flushBatchSize := int(atomic.LoadInt64(&l.flushBatchSize))
		flushInterval := time.Duration(atomic.LoadInt64(&l.flushIntervalNS))
		if sinceFlush >= flushBatchSize || time.Since(lastFlush) >= flushInterval {
			if sinceFlush > 0 {
				l.flushLocked()
			}
			sinceFlush = 0
			lastFlush = time.Now()
		}

		l.checkRotation()
	}
}

// scanOnce makes one round-robin pass over every registered buffer,
// starting just after the slot the previous pass ended on (spec §4.6 step
// 2), draining whatever is committed, and returns the number of entries
// written.
func (l *Logger) scanOnce() int {
	rings := l.buffers.snapshot()
	count := len(rings)
	if count == 0 {
		return 0
	}

	start := (l.lastBufIdx + 1) % count
	drained := 0
	for i := 0; i < count; i++ {
		idx := (start + i) % count
		drained += l.drainRing(rings[idx])
	}
	l.lastBufIdx = (start + count - 1) % count
	return drained
}

// drainToExhaustion keeps scanning every buffer until none has any
// committed data left, draining inactive producers' final bytes too
// (spec §4.8 shutdown sequence).
func (l *Logger) drainToExhaustion() {
	for {
		rings := l.buffers.snapshot()
		total := 0
		for _, r := range rings {
			total += l.drainRing(r)
		}
		if total == 0 {
			return
		}
	}
}

// drainRing drains every fully-available entry currently sitting in r,
// matching spec §4.6's per-buffer step ("drain all available entries,
// not just one, before moving to the next buffer").
func (l *Logger) drainRing(r *ring.Ring) int {
	n := 0
	for {
		hdr, ok := r.PeekHeader()
		if !ok {
			return n
		}
		if hdr.IsWrapMarker() {
			r.Consume(binfile.EntryHeaderSize)
			r.WrapReadPos()
			continue
		}

		// Frame not yet fully committed (spec §4.6 step 2): stop on this
		// buffer rather than peek past what the producer has published.
		if r.Available() < int64(binfile.EntryHeaderSize)+int64(hdr.DataLength) {
			return n
		}

		payload := r.PeekPayload(hdr.DataLength)
		if err := l.writeCompressed(hdr, payload); err != nil {
			handleError(WrapEngineError(err, ErrCodeWriterFailed, "writer loop failed to persist entry"))
		}
		r.Consume(int64(binfile.EntryHeaderSize) + int64(hdr.DataLength))
		n++
	}
}

// writeCompressed compresses one entry's uncompressed payload and hands
// it to the binfile writer.
func (l *Logger) writeCompressed(hdr binfile.EntryHeader, payload []byte) error {
	site, ok := l.registry.get(hdr.LogID)
	if !ok {
		return NewEngineError(ErrCodeRegistryMismatch, "drained entry references an unknown log site")
	}

	buf := bufferpool.Get()
	defer bufferpool.Put(buf)

	maxSize := varint.MaxSize(site, len(payload))
	scratch := buf.Bytes()[:0]
	if cap(scratch) < maxSize {
		scratch = make([]byte, maxSize)
		scratch = scratch[:0]
	}
	scratch = scratch[:maxSize]

	n, err := varint.Compress(site, payload, scratch)
	if err != nil {
		return err
	}
	atomic.AddInt64(&l.compressedInBytes, int64(len(payload)))
	atomic.AddInt64(&l.compressedOutBytes, int64(n))

	l.writerMu.Lock()
	err = l.writer.WriteEntry(hdr.LogID, hdr.Timestamp, scratch[:n])
	l.writerMu.Unlock()
	return err
}

func (l *Logger) flushLocked() {
	l.writerMu.Lock()
	err := l.writer.Flush()
	l.writerMu.Unlock()
	if err != nil {
		handleError(WrapEngineError(err, ErrCodeWriterIO, "writer loop failed to flush"))
	}
}

func (l *Logger) checkRotation() {
	policy := RotationPolicy(atomic.LoadInt32(&l.rotationPolicy))
	switch policy {
	case RotationDaily:
		now := time.Now().UTC()
		last := time.Unix(atomic.LoadInt64(&l.lastRotationDay), 0).UTC()
		if now.YearDay() != last.YearDay() || now.Year() != last.Year() {
			atomic.StoreInt64(&l.lastRotationDay, now.Unix())
			l.rotate(nextRotationPath(l.cfg.OutputPath, now))
		}
	}
}

func (l *Logger) rotate(newPath string) {
	l.writerMu.Lock()
	err := l.writer.Rotate(newPath, l.registry.snapshot(), levelsForDictionary())
	l.writerMu.Unlock()
	if err != nil {
		handleError(WrapEngineError(err, ErrCodeRotationFailed, "writer loop failed to rotate output file"))
		return
	}
	atomic.AddInt64(&l.rotations, 1)
	runtime.Gosched()
}
