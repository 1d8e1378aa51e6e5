// writer_test.go: header patch, entry round-trip, and dictionary framing
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package binfile

import (
	"os"
	"path/filepath"
	"testing"
)

func testCalib() CalibrationBlock {
	return CalibrationBlock{
		FreqHz:         1_000_000_000,
		AnchorTSC:      0,
		AnchorWallSec:  1_700_000_000,
		AnchorWallNsec: 0,
	}
}

func TestWriteHeaderThenCloseWithNoEntriesPatchesZeroCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.cnlog")
	w, err := Create(path, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteHeader(testCalib()); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if err := w.Close(nil, nil); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fp, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fp.Close()

	hdr, err := ReadFileHeader(fp)
	if err != nil {
		t.Fatalf("ReadFileHeader: %v", err)
	}
	if hdr.Magic != Magic {
		t.Fatalf("Magic = %#x, want %#x", hdr.Magic, Magic)
	}
	if hdr.EntryCount != 0 {
		t.Fatalf("EntryCount = %d, want 0", hdr.EntryCount)
	}
	if hdr.DictionaryOffset != FileHeaderSize {
		t.Fatalf("DictionaryOffset = %d, want %d", hdr.DictionaryOffset, FileHeaderSize)
	}

	sites, levels, err := ReadDictionary(fp, hdr)
	if err != nil {
		t.Fatalf("ReadDictionary: %v", err)
	}
	if len(sites) != 0 || len(levels) != 0 {
		t.Fatalf("expected empty dictionary, got %d sites, %d levels", len(sites), len(levels))
	}
}

func TestWriteEntryThenCloseRoundTripsThroughReadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.cnlog")
	w, err := Create(path, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteHeader(testCalib()); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	payloads := [][]byte{
		[]byte("first"),
		{},
		[]byte("third payload, a little longer"),
	}
	for i, p := range payloads {
		if err := w.WriteEntry(uint32(i+1), uint64(1000+i), p); err != nil {
			t.Fatalf("WriteEntry(%d): %v", i, err)
		}
	}

	site := &LogSite{LogID: 1, Level: 0, File: "main.go", Line: 42, Format: "hello %s", NumArgs: 1}
	site.ArgTypes[0] = ArgString

	if err := w.Close([]*LogSite{site}, nil); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fp, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fp.Close()

	hdr, err := ReadFileHeader(fp)
	if err != nil {
		t.Fatalf("ReadFileHeader: %v", err)
	}
	if hdr.EntryCount != uint64(len(payloads)) {
		t.Fatalf("EntryCount = %d, want %d", hdr.EntryCount, len(payloads))
	}

	sites, _, err := ReadDictionary(fp, hdr)
	if err != nil {
		t.Fatalf("ReadDictionary: %v", err)
	}
	if len(sites) != 1 || sites[0].Format != "hello %s" || sites[0].Line != 42 {
		t.Fatalf("unexpected dictionary: %+v", sites)
	}

	var got [][]byte
	var ids []uint32
	err = ReadEntries(fp, hdr, func(eh EntryHeader, payload []byte) error {
		ids = append(ids, eh.LogID)
		cp := append([]byte(nil), payload...)
		got = append(got, cp)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if len(got) != len(payloads) {
		t.Fatalf("got %d entries, want %d", len(got), len(payloads))
	}
	for i, p := range payloads {
		if string(got[i]) != string(p) {
			t.Errorf("entry %d payload = %q, want %q", i, got[i], p)
		}
		if ids[i] != uint32(i+1) {
			t.Errorf("entry %d log_id = %d, want %d", i, ids[i], i+1)
		}
	}
}

func TestWriteEntryRejectsOversizedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oversized.cnlog")
	w, err := Create(path, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteHeader(testCalib()); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	big := make([]byte, MaxEntryPayload+1)
	if err := w.WriteEntry(1, 0, big); err == nil {
		t.Fatal("expected error for oversized payload")
	}
}

func TestWriteEntryFlushesWhenBufferFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small-buf.cnlog")
	// A buffer too small to hold two entries forces a Flush mid-write.
	w, err := Create(path, EntryHeaderSize+8)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteHeader(testCalib()); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := w.WriteEntry(uint32(i+1), uint64(i), []byte("abcdefgh")); err != nil {
			t.Fatalf("WriteEntry(%d): %v", i, err)
		}
	}
	if err := w.Close(nil, nil); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fp, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fp.Close()

	hdr, err := ReadFileHeader(fp)
	if err != nil {
		t.Fatalf("ReadFileHeader: %v", err)
	}
	if hdr.EntryCount != 5 {
		t.Fatalf("EntryCount = %d, want 5", hdr.EntryCount)
	}

	count := 0
	err = ReadEntries(fp, hdr, func(EntryHeader, []byte) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if count != 5 {
		t.Fatalf("read %d entries, want 5", count)
	}
}

func TestRotatePreservesCalibrationAndStartsFreshEntryCount(t *testing.T) {
	dir := t.TempDir()
	path1 := filepath.Join(dir, "a.cnlog")
	path2 := filepath.Join(dir, "b.cnlog")

	w, err := Create(path1, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	calib := testCalib()
	if err := w.WriteHeader(calib); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if err := w.WriteEntry(1, 0, []byte("x")); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}

	site := &LogSite{LogID: 1, File: "a.go", Line: 1, Format: "x"}
	if err := w.Rotate(path2, []*LogSite{site}, nil); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	// The old file must have been closed with its dictionary and entry count.
	fp1, err := os.Open(path1)
	if err != nil {
		t.Fatalf("open path1: %v", err)
	}
	defer fp1.Close()
	hdr1, err := ReadFileHeader(fp1)
	if err != nil {
		t.Fatalf("ReadFileHeader(path1): %v", err)
	}
	if hdr1.EntryCount != 1 {
		t.Fatalf("path1 EntryCount = %d, want 1", hdr1.EntryCount)
	}

	if err := w.WriteEntry(2, 0, []byte("y")); err != nil {
		t.Fatalf("WriteEntry after rotate: %v", err)
	}
	if err := w.Close([]*LogSite{site}, nil); err != nil {
		t.Fatalf("Close path2: %v", err)
	}

	fp2, err := os.Open(path2)
	if err != nil {
		t.Fatalf("open path2: %v", err)
	}
	defer fp2.Close()
	hdr2, err := ReadFileHeader(fp2)
	if err != nil {
		t.Fatalf("ReadFileHeader(path2): %v", err)
	}
	if hdr2.EntryCount != 1 {
		t.Fatalf("path2 EntryCount = %d, want 1", hdr2.EntryCount)
	}
	if hdr2.TimestampFrequency != calib.FreqHz || hdr2.StartTimeSec != calib.AnchorWallSec {
		t.Fatalf("rotated file did not preserve calibration: %+v", hdr2)
	}
}

func TestCloseEncodesCustomLevelsInDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels.cnlog")
	w, err := Create(path, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteHeader(testCalib()); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	levels := []CustomLevel{
		{Value: 4, Name: "TRACE"},
		{Value: 5, Name: "AUDIT"},
	}
	if err := w.Close(nil, levels); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fp, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fp.Close()
	hdr, err := ReadFileHeader(fp)
	if err != nil {
		t.Fatalf("ReadFileHeader: %v", err)
	}
	_, gotLevels, err := ReadDictionary(fp, hdr)
	if err != nil {
		t.Fatalf("ReadDictionary: %v", err)
	}
	if len(gotLevels) != 2 || gotLevels[0].Name != "TRACE" || gotLevels[1].Name != "AUDIT" {
		t.Fatalf("unexpected custom levels: %+v", gotLevels)
	}
}

func TestWriterMarksFailedAfterIOErrorAndDropsSubsequentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fail.cnlog")
	// A small buffer keeps the forcing payload under MaxEntryPayload.
	w, err := Create(path, EntryHeaderSize+8)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteHeader(testCalib()); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	// Force a write failure by closing the underlying fd out from under
	// the writer, then confirm Failed() latches and further writes no-op.
	if err := w.fp.Close(); err != nil {
		t.Fatalf("pre-close fd: %v", err)
	}
	if err := w.WriteEntry(1, 0, make([]byte, cap(w.buf))); err == nil {
		t.Fatal("expected an I/O error once an entry larger than the buffer is written through")
	}
	if !w.Failed() {
		t.Fatal("expected writer to be marked failed")
	}
	if err := w.WriteEntry(2, 0, []byte("dropped")); err != nil {
		t.Fatalf("WriteEntry after failure should no-op, got: %v", err)
	}
}
