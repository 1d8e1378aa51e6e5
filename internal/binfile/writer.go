// writer.go: buffered binary file sink for CNanoLog
//
// The Writer is single-threaded by contract: it is owned exclusively by
// the background writer loop (spec §4.5, §5 "the file is touched only by
// the writer"). It batches entries into an in-memory buffer and flushes
// to the OS on the caller's schedule, the same buffered-file shape the
// teacher's FileWriter (writer.go) uses for its ConsoleWriter/FileWriter
// pair, generalized here with header/dictionary framing.
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package binfile

import (
	"fmt"
	"os"
)

// DefaultWriteBufferSize is the default size of the in-memory write
// buffer before a flush to the OS is forced.
const DefaultWriteBufferSize = 256 * 1024

// Writer is the buffered, single-threaded binary file sink described in
// spec §4.5.
type Writer struct {
	path string
	fp   *os.File

	buf     []byte
	bufUsed int

	entriesWritten uint64
	bytesWritten   uint64

	headerOffset int64

	calib CalibrationBlock

	// failed is set once an unrecoverable I/O error occurs; subsequent
	// writes are dropped silently. The dropped writes are not counted,
	// here or by the writer loop; only Failed() reports the state.
	failed bool
}

// CalibrationBlock is the (freq_hz, anchor_tsc, anchor_wall_sec,
// anchor_wall_nsec) tuple written into the file header and reused,
// unchanged, across rotations.
type CalibrationBlock struct {
	FreqHz         uint64
	AnchorTSC      uint64
	AnchorWallSec  int64
	AnchorWallNsec int32
}

// Create opens path for read/write, truncating any existing content, and
// returns a Writer with a fresh write buffer. The caller must still call
// WriteHeader before any WriteEntry.
func Create(path string, bufSize int) (*Writer, error) {
	if bufSize <= 0 {
		bufSize = DefaultWriteBufferSize
	}
	// #nosec G304 -- path is supplied by the application via Config, not by untrusted input
	fp, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("binfile: create %q: %w", path, err)
	}
	return &Writer{
		path: path,
		fp:   fp,
		buf:  make([]byte, 0, bufSize),
	}, nil
}

// WriteHeader emits the fixed file header with a placeholder
// dictionary_offset and entry_count of zero; both are patched by Close.
func (w *Writer) WriteHeader(calib CalibrationBlock) error {
	w.calib = calib
	w.headerOffset = 0

	var hdr [FileHeaderSize]byte
	FileHeader{
		Magic:              Magic,
		VersionMajor:       VersionMajor,
		VersionMinor:       VersionMinor,
		TimestampFrequency: calib.FreqHz,
		StartTimestamp:     calib.AnchorTSC,
		StartTimeSec:       calib.AnchorWallSec,
		StartTimeNsec:      calib.AnchorWallNsec,
		Endianness:         Magic,
		DictionaryOffset:   0,
		EntryCount:         0,
	}.Encode(hdr[:])

	n, err := w.fp.WriteAt(hdr[:], 0)
	if err != nil {
		return fmt.Errorf("binfile: write header: %w", err)
	}
	w.bytesWritten += uint64(n)

	// WriteAt does not advance the file offset; without this seek the
	// first Flush (or a write-through of an oversized entry) would start
	// writing at offset 0 again and overwrite the header we just wrote.
	if _, err := w.fp.Seek(FileHeaderSize, os.SEEK_SET); err != nil {
		return fmt.Errorf("binfile: seek past header: %w", err)
	}
	return nil
}

// WriteEntry buffers one EntryHeader followed by its payload. If the
// write would overflow the in-memory buffer it is flushed first. An
// oversized payload fails without touching the buffer.
func (w *Writer) WriteEntry(logID uint32, ts uint64, payload []byte) error {
	if w.failed {
		return nil
	}
	if len(payload) > MaxEntryPayload {
		return fmt.Errorf("binfile: entry payload %d exceeds MaxEntryPayload %d", len(payload), MaxEntryPayload)
	}

	need := EntryHeaderSize + len(payload)
	if w.bufUsed+need > cap(w.buf) {
		if err := w.Flush(); err != nil {
			return err
		}
	}

	var hdr [EntryHeaderSize]byte
	EntryHeader{LogID: logID, Timestamp: ts, DataLength: uint16(len(payload))}.Encode(hdr[:])

	if need > cap(w.buf) {
		// Entry larger than the whole buffer: write straight through.
		if _, err := w.fp.Write(hdr[:]); err != nil {
			return w.ioFailure("write entry header", err)
		}
		if len(payload) > 0 {
			if _, err := w.fp.Write(payload); err != nil {
				return w.ioFailure("write entry payload", err)
			}
		}
		w.bytesWritten += uint64(need)
		w.entriesWritten++
		return nil
	}

	w.buf = append(w.buf[:w.bufUsed], hdr[:]...)
	w.buf = append(w.buf, payload...)
	w.bufUsed += need
	w.entriesWritten++
	return nil
}

// Flush writes the in-memory buffer to the file and asks the OS to flush it.
func (w *Writer) Flush() error {
	if w.failed {
		return nil
	}
	if w.bufUsed == 0 {
		return nil
	}
	n, err := w.fp.Write(w.buf[:w.bufUsed])
	w.bytesWritten += uint64(n)
	w.buf = w.buf[:0]
	w.bufUsed = 0
	if err != nil {
		return w.ioFailure("flush", err)
	}
	if err := w.fp.Sync(); err != nil {
		return w.ioFailure("sync", err)
	}
	return nil
}

// ioFailure marks the writer as failed (subsequent writes drop silently
// per spec §7) and returns a wrapped error for the caller to log.
func (w *Writer) ioFailure(op string, err error) error {
	w.failed = true
	return fmt.Errorf("binfile: %s: %w", op, err)
}

// Close flushes pending data, writes the dictionary trailer (sites plus
// custom levels), patches dictionary_offset and entry_count in the file
// header, and closes the file.
func (w *Writer) Close(sites []*LogSite, levels []CustomLevel) error {
	if err := w.Flush(); err != nil {
		_ = w.fp.Close()
		return err
	}

	dictOffset, err := w.fp.Seek(0, os.SEEK_END)
	if err != nil {
		_ = w.fp.Close()
		return fmt.Errorf("binfile: seek to dictionary offset: %w", err)
	}

	dict := encodeDictionary(sites, levels)
	if _, err := w.fp.Write(dict); err != nil {
		_ = w.fp.Close()
		return fmt.Errorf("binfile: write dictionary: %w", err)
	}
	if err := w.fp.Sync(); err != nil {
		_ = w.fp.Close()
		return fmt.Errorf("binfile: sync dictionary: %w", err)
	}

	var patch [16]byte
	putUint64LE(patch[0:8], uint64(dictOffset))
	putUint64LE(patch[8:16], w.entriesWritten)
	if _, err := w.fp.WriteAt(patch[:], 40); err != nil {
		_ = w.fp.Close()
		return fmt.Errorf("binfile: patch header: %w", err)
	}

	return w.fp.Close()
}

// Rotate closes the current file (writing its dictionary) and opens
// newPath with a fresh header sharing the same calibration. All log-site
// IDs assigned so far remain valid: every rotated file carries a complete
// dictionary of every site observed up to that point (spec §4.5).
func (w *Writer) Rotate(newPath string, sites []*LogSite, levels []CustomLevel) error {
	if err := w.Close(sites, levels); err != nil {
		return err
	}
	next, err := Create(newPath, cap(w.buf))
	if err != nil {
		return err
	}
	if err := next.WriteHeader(w.calib); err != nil {
		_ = next.fp.Close()
		return err
	}
	*w = *next
	return nil
}

// Stats returns the writer's running totals for the façade's statistics.
func (w *Writer) Stats() (entries uint64, bytes uint64) {
	return w.entriesWritten, w.bytesWritten
}

// Failed reports whether the writer has entered the unrecoverable error
// state described in spec §7.
func (w *Writer) Failed() bool { return w.failed }

func encodeDictionary(sites []*LogSite, levels []CustomLevel) []byte {
	body := make([]byte, 0, 64*len(sites))
	for _, s := range sites {
		body = EncodeSiteRecord(body, s)
	}

	var levelCount [4]byte
	putUint32LE(levelCount[:], uint32(len(levels)))
	body = append(body, levelCount[:]...)
	for _, lvl := range levels {
		body = EncodeCustomLevel(body, lvl)
	}

	out := make([]byte, DictHeaderSize, DictHeaderSize+len(body))
	DictHeader{
		DictMagic:  Magic,
		NumEntries: uint32(len(sites)),
		TotalSize:  uint32(DictHeaderSize + len(body)),
		Reserved:   0,
	}.Encode(out)
	out = append(out, body...)
	return out
}

func putUint64LE(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func putUint32LE(dst []byte, v uint32) {
	for i := 0; i < 4; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}
